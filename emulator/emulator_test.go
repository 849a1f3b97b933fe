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

package emulator_test

import (
	"testing"

	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/decode"
	"github.com/armory-go/faultsim/emulator"
	"github.com/armory-go/faultsim/memory"
	"github.com/armory-go/faultsim/test"
)

func newIdentityEmulator(t *testing.T) *emulator.Emulator {
	t.Helper()
	e := emulator.New(cpu.ARMv7M)
	flash := memory.NewFlash(0x08000000, 0x100)
	flash.Write(0x08000000, []byte{0x00, 0xbf, 0x00, 0xbf, 0x70, 0x47}) // NOP; NOP; BX LR
	e.SetFlashRegion(flash)
	e.SetRAMRegion(memory.NewRAM(0x20000000, 0x100))
	e.State.Registers.Write(cpu.PC, 0x08000000)
	e.State.Registers.Write(cpu.LR, 0xFFFFFFFF)
	return e
}

// S1: identity run.
func TestIdentityRun(t *testing.T) {
	e := newIdentityEmulator(t)
	rc := e.EmulateToAddress(0xFFFFFFFE, 10)
	test.Equate(t, rc, emulator.EndAddressReached)
	test.Equate(t, e.GetTime(), uint32(3))
}

func TestMaxInstructionsReached(t *testing.T) {
	e := newIdentityEmulator(t)
	rc := e.Emulate(2)
	test.Equate(t, rc, emulator.MaxInstructionsReached)
	test.Equate(t, e.GetTime(), uint32(2))
}

func TestPCReadIsStoredPlusFour(t *testing.T) {
	e := newIdentityEmulator(t)
	test.Equate(t, e.ReadRegister(cpu.PC), uint32(0x08000004))
}

func TestSPWriteTruncatesLowTwoBits(t *testing.T) {
	e := newIdentityEmulator(t)
	e.WriteRegister(cpu.SP, 0x20000103)
	test.Equate(t, e.ReadRegister(cpu.SP), uint32(0x20000100))
}

func TestStopEmulation(t *testing.T) {
	e := newIdentityEmulator(t)
	id := e.AddBeforeFetchHook(func(em *emulator.Emulator) {
		if em.GetEmulatedTime() >= 1 {
			em.StopEmulation()
		}
	})
	rc := e.Emulate(10)
	test.Equate(t, rc, emulator.StopEmulationCalled)
	e.RemoveBeforeFetchHook(id)
}

func TestHookRemovalDuringDispatchIsDeferredThenSwept(t *testing.T) {
	e := newIdentityEmulator(t)
	calls := 0
	var id emulator.HookID
	id = e.AddExecuteHook(func(em *emulator.Emulator, _ decode.Instruction) {
		calls++
		em.RemoveExecuteHook(id)
	})
	e.Emulate(3)
	test.Equate(t, calls, 1)
}

func TestConditionalBranchTaken(t *testing.T) {
	e := emulator.New(cpu.ARMv7M)
	flash := memory.NewFlash(0x08000000, 0x100)
	// MOVS r0,#0 ; CMP r0,#0 ; BEQ (offset 0) ; NOP(skipped) ; NOP(target)
	flash.Write(0x08000000, []byte{
		0x00, 0x20, // MOVS r0, #0
		0x00, 0x28, // CMP r0, #0
		0x00, 0xd0, // BEQ offset 0: target is its address + 4, skipping the next NOP
		0x00, 0xbf, // NOP (skipped)
		0x00, 0xbf, // NOP (target)
	})
	e.SetFlashRegion(flash)
	e.SetRAMRegion(memory.NewRAM(0x20000000, 0x100))
	e.State.Registers.Write(cpu.PC, 0x08000000)
	rc := e.Emulate(4)
	test.Equate(t, rc, emulator.MaxInstructionsReached)
	test.ExpectSuccess(t, e.State.Registers.Status().Zero())
	test.Equate(t, e.State.Registers.Raw(cpu.PC), uint32(0x0800000a))
}
