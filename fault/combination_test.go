// This file is part of faultsim.
//
// faultsim is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// faultsim is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with faultsim.  If not, see <https://www.gnu.org/licenses/>.

package fault_test

import (
	"testing"

	"github.com/armory-go/faultsim/fault"
	"github.com/armory-go/faultsim/test"
)

var skipModel = &fault.InstructionFaultModel{Name: "skip", Lifetime: fault.Transient}

func mkInstr(addr uint32, t uint32) fault.InstructionFault {
	return fault.InstructionFault{Model: skipModel, Time: t, Address: addr, InstrSize: 2,
		Original: [4]byte{1, 2, 0, 0}, Manipulated: [4]byte{3, 4, 0, 0}}
}

func TestIncludesReflexive(t *testing.T) {
	c := fault.New()
	c.AddInstructionFault(mkInstr(0x100, 1))
	c.AddInstructionFault(mkInstr(0x200, 2))
	test.ExpectSuccess(t, c.Includes(c))
}

func TestIncludesTransitive(t *testing.T) {
	a := fault.New()
	a.AddInstructionFault(mkInstr(0x100, 1))

	b := fault.New()
	b.AddInstructionFault(mkInstr(0x100, 1))
	b.AddInstructionFault(mkInstr(0x200, 2))

	c := fault.New()
	c.AddInstructionFault(mkInstr(0x100, 1))
	c.AddInstructionFault(mkInstr(0x200, 2))
	c.AddInstructionFault(mkInstr(0x300, 3))

	test.ExpectSuccess(t, b.Includes(a))
	test.ExpectSuccess(t, c.Includes(b))
	test.ExpectSuccess(t, c.Includes(a))
}

func TestEqualImpliesIncludesBothWays(t *testing.T) {
	a := fault.New()
	a.AddInstructionFault(mkInstr(0x100, 1))
	b := fault.New()
	b.AddInstructionFault(mkInstr(0x100, 1))

	test.ExpectSuccess(t, a.Equal(b))
	test.ExpectSuccess(t, a.Includes(b))
	test.ExpectSuccess(t, b.Includes(a))
}

func TestEqualIsOrderSensitive(t *testing.T) {
	a := fault.New()
	a.AddInstructionFault(mkInstr(0x100, 1))
	a.AddInstructionFault(mkInstr(0x200, 2))

	b := fault.New()
	b.AddInstructionFault(mkInstr(0x200, 2))
	b.AddInstructionFault(mkInstr(0x100, 1))

	test.ExpectFailure(t, a.Equal(b))
	// but the sets are the same, so inclusion holds both ways.
	test.ExpectSuccess(t, a.Includes(b))
	test.ExpectSuccess(t, b.Includes(a))
}

func TestHashStableAcrossCacheRebuild(t *testing.T) {
	c := fault.New()
	c.AddInstructionFault(mkInstr(0x100, 1))
	c.AddInstructionFault(mkInstr(0x200, 2))

	h1 := c.Hash()
	// force a cache rebuild: Size() grows, so the cached sorted view is
	// stale the next time it is consulted.
	c.AddInstructionFault(mkInstr(0x300, 3))
	h2 := c.Hash()
	test.ExpectInequality(t, h1, h2)

	c2 := fault.New()
	c2.AddInstructionFault(mkInstr(0x100, 1))
	c2.AddInstructionFault(mkInstr(0x200, 2))
	c2.AddInstructionFault(mkInstr(0x300, 3))
	test.Equate(t, c.Hash(), c2.Hash())
}

func TestSubsetsCountIsTwoToTheNMinusOne(t *testing.T) {
	c := fault.New()
	c.AddInstructionFault(mkInstr(0x100, 1))
	c.AddInstructionFault(mkInstr(0x200, 2))
	subs := c.Subsets()
	test.Equate(t, len(subs), 3)
}

func TestValidateRejectsOverlappingPermanentFaults(t *testing.T) {
	permModel := &fault.InstructionFaultModel{Name: "perm", Lifetime: fault.Permanent}
	c := fault.New()
	c.AddInstructionFault(fault.InstructionFault{Model: permModel, Address: 0x100, Time: 1})
	c.AddInstructionFault(fault.InstructionFault{Model: permModel, Address: 0x100, Time: 5})
	test.ExpectFailure(t, c.Validate() == nil)
}
