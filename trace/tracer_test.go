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

package trace

import (
	"bytes"
	"testing"

	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/emulator"
	"github.com/armory-go/faultsim/explore"
	"github.com/armory-go/faultsim/fault"
	"github.com/armory-go/faultsim/memory"
	"github.com/armory-go/faultsim/test"
)

// guardedEmulator builds the same guarded-return program used by the
// explorer's own tests:
//
//	0x08000000  MOVS r0, #1
//	0x08000002  CMP  r0, #0
//	0x08000004  BNE  +0     ; taken whenever r0 != 0
//	0x08000006  BX   LR     ; reached only by falling through
//	0x08000008  B    .
func guardedEmulator(t *testing.T) *emulator.Emulator {
	t.Helper()
	e := emulator.New(cpu.ARMv7M)
	flash := memory.NewFlash(0x08000000, 0x10)
	flash.Write(0x08000000, []byte{
		0x01, 0x20,
		0x00, 0x28,
		0x00, 0xd1,
		0x70, 0x47,
		0xfe, 0xe7,
	})
	e.SetFlashRegion(flash)
	e.SetRAMRegion(memory.NewRAM(0x20000000, 0x100))
	e.State.Registers.Write(cpu.PC, 0x08000000)
	e.State.Registers.Write(cpu.LR, 0xFFFFFFFF)
	e.State.Registers.Write(cpu.R0, 0xAAAAAAAA)
	return e
}

func guardedContext() explore.Context {
	return explore.Context{HaltingPoints: []uint32{0xFFFFFFFE}, EmulationTimeout: 20}
}

// TestVerifyConfirmsDiscoveredInstructionSkip replays the combination S2
// (explore package) discovers -- a transient skip of the BNE guard at
// 0x08000004, fired right before that instruction's own fetch (time 2,
// after MOVS and CMP have retired) -- and checks it still verifies.
func TestVerifyConfirmsDiscoveredInstructionSkip(t *testing.T) {
	base := guardedEmulator(t)
	combo := fault.New()
	combo.AddInstructionFault(fault.InstructionFault{
		Model: &fault.InstructionFaultModel{Name: "skip", Lifetime: fault.Transient},
		Time:  2,
		Address:     0x08000004,
		InstrSize:   2,
		Original:    [4]byte{0x00, 0xd1},
		Manipulated: [4]byte{0x00, 0xbf},
	})

	tr := New(guardedContext(), nil)
	test.ExpectSuccess(t, tr.Verify(base, combo))
}

// TestVerifyRejectsFaultThatMissesEveryHaltingPoint checks that a fault
// combination which never reaches a halting point -- because it mutates an
// instruction the guard doesn't depend on -- is correctly not exploitable.
func TestVerifyRejectsFaultThatMissesEveryHaltingPoint(t *testing.T) {
	base := guardedEmulator(t)
	combo := fault.New()
	combo.AddInstructionFault(fault.InstructionFault{
		Model: &fault.InstructionFaultModel{Name: "nop", Lifetime: fault.Transient},
		Time:  0,
		Address:     0x08000000,
		InstrSize:   2,
		Original:    [4]byte{0x01, 0x20},
		Manipulated: [4]byte{0x00, 0xbf},
	})

	tr := New(guardedContext(), nil)
	test.ExpectFailure(t, tr.Verify(base, combo))
}

// TestTraceLogsFromFirstFaultOnward checks that Trace withholds instruction
// logging until the fault has actually fired when startAfterFirstFault is
// set, and still reports the exploit result afterward.
func TestTraceLogsFromFirstFaultOnward(t *testing.T) {
	base := guardedEmulator(t)
	combo := fault.New()
	combo.AddRegisterFault(fault.RegisterFault{
		Model: &fault.RegisterFaultModel{Name: "clear", Lifetime: fault.Transient},
		Time:  1,
		Reg:         cpu.R0,
		Original:    1,
		Manipulated: 0,
	})

	var buf bytes.Buffer
	tr := New(guardedContext(), &buf)
	exploitable := tr.Trace(base, combo, true, false)

	test.ExpectSuccess(t, exploitable)
	test.ExpectSuccess(t, buf.Len() > 0)
	test.ExpectFailure(t, bytes.Contains(buf.Bytes(), []byte("MOVS")))
}

func TestTraceWarnsWhenNoFaultWasInjected(t *testing.T) {
	base := guardedEmulator(t)
	combo := fault.New()

	var buf bytes.Buffer
	tr := New(guardedContext(), &buf)
	tr.Trace(base, combo, false, false)

	test.ExpectSuccess(t, bytes.Contains(buf.Bytes(), []byte("no fault was injected")))
}
