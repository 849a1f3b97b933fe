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

package explore

import (
	"testing"

	"github.com/armory-go/faultsim/test"
)

func TestValidateRejectsZeroTimeout(t *testing.T) {
	c := &Context{HaltingPoints: []uint32{0x100}}
	test.ExpectFailure(t, c.Validate() == nil)
}

func TestValidateRejectsNoHaltingPoints(t *testing.T) {
	c := &Context{EmulationTimeout: 10}
	test.ExpectFailure(t, c.Validate() == nil)
}

func TestValidateAcceptsWellFormedContext(t *testing.T) {
	c := &Context{EmulationTimeout: 10, HaltingPoints: []uint32{0x100}}
	test.ExpectSuccess(t, c.Validate() == nil)
}

func TestIsHaltingPointUsesSortedCache(t *testing.T) {
	c := &Context{HaltingPoints: []uint32{0x300, 0x100, 0x200}}
	test.ExpectSuccess(t, c.isHaltingPoint(0x200))
	test.ExpectFailure(t, c.isHaltingPoint(0x150))
}

func TestIgnoreTimeRangeIsHalfOpen(t *testing.T) {
	c := &Context{IgnoreTimeRanges: []Range{{Start: 10, End: 20}}}
	test.ExpectSuccess(t, c.inIgnoreTimeRange(10))
	test.ExpectSuccess(t, c.inIgnoreTimeRange(19))
	test.ExpectFailure(t, c.inIgnoreTimeRange(20))
}

func TestIgnoreMemoryRange(t *testing.T) {
	c := &Context{IgnoreMemoryRanges: []Range{{Start: 0x08000010, End: 0x08000020}}}
	test.ExpectSuccess(t, c.inIgnoreMemoryRange(0x08000010))
	test.ExpectFailure(t, c.inIgnoreMemoryRange(0x08000020))
}

func TestOracleDefaultsToAlwaysExploitable(t *testing.T) {
	c := &Context{}
	test.Equate(t, c.oracle().Evaluate(nil, 0), Exploitable)
}
