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

package snapshot_test

import (
	"testing"

	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/memory"
	"github.com/armory-go/faultsim/emulator"
	"github.com/armory-go/faultsim/snapshot"
	"github.com/armory-go/faultsim/test"
)

func newEmulator(t *testing.T) *emulator.Emulator {
	t.Helper()
	e := emulator.New(cpu.ARMv7M)
	flash := memory.NewFlash(0x08000000, 0x100)
	e.SetFlashRegion(flash)
	e.SetRAMRegion(memory.NewRAM(0x20000000, 0x1000))
	e.State.Registers.Write(cpu.PC, 0x08000000)
	e.State.Registers.Write(cpu.SP, 0x20000800)
	return e
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	e := newEmulator(t)
	s := snapshot.New(e)
	defer s.Close()

	e.WriteMemory(0x20000100, []byte{0xAA})
	s.Backup()

	e.WriteRegister(cpu.R0, 0x12345678)
	e.WriteMemory(0x20000100, []byte{0xBB})
	e.WriteMemory(0x20000900, []byte{0xCC})

	s.Restore()

	test.Equate(t, e.ReadRegister(cpu.R0), uint32(0))
	data, rc := e.ReadMemory(0x20000100, 1)
	test.Equate(t, rc, emulator.OK)
	test.Equate(t, data[0], byte(0xAA))
	data, rc = e.ReadMemory(0x20000900, 1)
	test.Equate(t, rc, emulator.OK)
	test.Equate(t, data[0], byte(0x00))
}

func TestBackupOnlyCopiesDirtyWindowsAfterFirst(t *testing.T) {
	e := newEmulator(t)
	s := snapshot.New(e)
	defer s.Close()

	s.Backup() // first backup: full copy

	e.WriteMemory(0x20000100, []byte{0x01})
	s.Backup() // incremental: only 0x20000100 tracked dirty

	e.WriteMemory(0x20000200, []byte{0x02})
	s.Restore()

	data, _ := e.ReadMemory(0x20000100, 1)
	test.Equate(t, data[0], byte(0x01))
	data, _ = e.ReadMemory(0x20000200, 1)
	test.Equate(t, data[0], byte(0x00))
}

func TestResetForcesFullCopyOnNextBackup(t *testing.T) {
	e := newEmulator(t)
	s := snapshot.New(e)
	defer s.Close()

	s.Backup()
	e.WriteMemory(0x20000100, []byte{0x01})
	s.Reset()

	e.WriteMemory(0x20000200, []byte{0x02})
	s.Backup()

	e.WriteMemory(0x20000100, []byte{0x99})
	s.Restore()

	data, _ := e.ReadMemory(0x20000100, 1)
	test.Equate(t, data[0], byte(0x01))
	data, _ = e.ReadMemory(0x20000200, 1)
	test.Equate(t, data[0], byte(0x02))
}

func TestWritesBelowStackPointerMarginTrackLowWindow(t *testing.T) {
	e := newEmulator(t)
	s := snapshot.New(e)
	defer s.Close()

	s.Backup()

	// SP is 0x20000800; an address well below SP-80 falls in the low window,
	// one above SP falls in the high window. Both must still round-trip.
	e.WriteMemory(0x20000010, []byte{0x11})
	e.WriteMemory(0x20000900, []byte{0x22})
	s.Backup()

	e.WriteMemory(0x20000010, []byte{0xFF})
	e.WriteMemory(0x20000900, []byte{0xFF})
	s.Restore()

	data, _ := e.ReadMemory(0x20000010, 1)
	test.Equate(t, data[0], byte(0x11))
	data, _ = e.ReadMemory(0x20000900, 1)
	test.Equate(t, data[0], byte(0x22))
}
