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

package memory_test

import (
	"testing"

	"github.com/armory-go/faultsim/memory"
	"github.com/armory-go/faultsim/test"
)

func TestFlashInitializedToFF(t *testing.T) {
	f := memory.NewFlash(0x08000000, 16)
	for _, b := range f.Bytes {
		test.Equate(t, b, byte(0xFF))
	}
	test.Equate(t, f.Access.Read, true)
	test.Equate(t, f.Access.Execute, true)
	test.Equate(t, f.Access.Write, false)
}

func TestRAMZeroed(t *testing.T) {
	r := memory.NewRAM(0x20000000, 16)
	for _, b := range r.Bytes {
		test.Equate(t, b, byte(0x00))
	}
	test.Equate(t, r.Access.Write, true)
	test.Equate(t, r.Access.Execute, false)
}

func TestContainsHalfOpen(t *testing.T) {
	r := memory.NewRAM(0x20000000, 16)
	test.ExpectSuccess(t, r.Contains(0x20000000, 16))
	test.ExpectFailure(t, r.Contains(0x20000000, 17))
	test.ExpectFailure(t, r.Contains(0x1fffffff, 1))
	test.ExpectFailure(t, r.Contains(0x20000010, 1))
	test.ExpectSuccess(t, r.Contains(0x2000000f, 1))
}

func TestReadWriteRoundTrip(t *testing.T) {
	r := memory.NewRAM(0x20000000, 16)
	r.Write(0x20000004, []byte{1, 2, 3, 4})
	got := r.Read(0x20000004, 4)
	test.Equate(t, len(got), 4)
	for i, b := range got {
		test.Equate(t, b, byte(i+1))
	}
}

func TestClone(t *testing.T) {
	r := memory.NewRAM(0x20000000, 4)
	r.Write(0x20000000, []byte{9, 9, 9, 9})
	c := r.Clone()
	c.Write(0x20000000, []byte{0, 0, 0, 0})
	test.Equate(t, r.Bytes[0], byte(9))
	test.Equate(t, c.Bytes[0], byte(0))
}
