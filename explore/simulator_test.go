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

	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/decode"
	"github.com/armory-go/faultsim/emulator"
	"github.com/armory-go/faultsim/fault"
	"github.com/armory-go/faultsim/memory"
	"github.com/armory-go/faultsim/test"
)

// branchGuardedEmulator builds a tiny program shaped like a guarded-return
// check:
//
//	0x08000000  MOVS r0, #1     ; r0 = 1 ("access denied")
//	0x08000002  CMP  r0, #0     ; Z set only if r0 == 0
//	0x08000004  BNE  +0         ; guard: taken (away from danger) whenever
//	                            ;   r0 != 0, i.e. on every correct run
//	0x08000006  BX   LR         ; danger: reached only by falling through
//	                            ;   the guard, i.e. only when r0 == 0
//	0x08000008  B    .          ; guard's taken target: parked forever (safe)
//
// Without a fault the guard is always taken (r0 != 0), so the trial parks at
// 0x08000008 and the emulation budget runs out: not exploitable. A fault
// that clears r0 before the CMP makes the guard see zero and fall through.
// A fault that skips the guard branch itself falls through regardless of
// r0. Either way execution reaches the BX LR and the halting point beyond
// it.
func branchGuardedEmulator(t *testing.T) *emulator.Emulator {
	t.Helper()
	e := emulator.New(cpu.ARMv7M)
	flash := memory.NewFlash(0x08000000, 0x10)
	flash.Write(0x08000000, []byte{
		0x01, 0x20, // MOVS r0, #1
		0x00, 0x28, // CMP r0, #0
		0x00, 0xd1, // BNE +0
		0x70, 0x47, // BX LR
		0xfe, 0xe7, // B .
	})
	e.SetFlashRegion(flash)
	e.SetRAMRegion(memory.NewRAM(0x20000000, 0x100))
	e.State.Registers.Write(cpu.PC, 0x08000000)
	e.State.Registers.Write(cpu.LR, 0xFFFFFFFF) // thumb bit set, required by BX
	e.State.Registers.Write(cpu.R0, 0xAAAAAAAA)  // nonzero sentinel: a skipped
	// MOVS must not coincidentally leave r0 at the same zero value a fault
	// is trying to produce.
	return e
}

var skipModel = &fault.InstructionFaultModel{
	Name:           "skip",
	Lifetime:       fault.Transient,
	IterationCount: func(decode.Instruction) int { return 1 },
	Applicable:     func(decode.Instruction, int) bool { return true },
	Mutate: func(in decode.Instruction, iteration int) [4]byte {
		var m [4]byte
		m[0], m[1] = 0x00, 0xbf // NOP, T1 encoding
		return m
	},
}

var clearRegisterModel = &fault.RegisterFaultModel{
	Name:           "clear",
	Lifetime:       fault.Transient,
	IterationCount: func(reg int, value uint32) int { return 1 },
	Applicable:     func(reg int, value uint32, iteration int) bool { return value != 0 },
	Mutate:         func(reg int, value uint32, iteration int) uint32 { return 0 },
}

func branchGuardedContext() Context {
	return Context{HaltingPoints: []uint32{0xFFFFFFFE}, EmulationTimeout: 20}
}

// S2: a transient instruction-skip fault on the BNE guard turns it into a
// no-op, so execution falls through to the privileged return regardless of
// r0.
func TestSimulateFaultsInstructionSkipReachesPrivilegedReturn(t *testing.T) {
	base := branchGuardedEmulator(t)
	fs, err := NewFaultSimulator(branchGuardedContext())
	test.ExpectSuccess(t, err)

	models := []fault.ModelMultiplicity{
		{Model: fault.NewInstructionModel(skipModel), Multiplicity: 1},
	}
	combos, err := fs.SimulateFaults(base, models, 1)
	test.ExpectSuccess(t, err)
	test.Equate(t, len(combos), 1)
	test.Equate(t, len(combos[0].InstructionFaults()), 1)
	test.Equate(t, combos[0].InstructionFaults()[0].Address, uint32(0x08000004))
}

// S3: a transient register-clear fault on r0, applied at the CMP's read,
// makes the guard see a zero value and fall through.
func TestSimulateFaultsRegisterClearReachesPrivilegedReturn(t *testing.T) {
	base := branchGuardedEmulator(t)
	fs, err := NewFaultSimulator(branchGuardedContext())
	test.ExpectSuccess(t, err)

	models := []fault.ModelMultiplicity{
		{Model: fault.NewRegisterModel(clearRegisterModel), Multiplicity: 1},
	}
	combos, err := fs.SimulateFaults(base, models, 1)
	test.ExpectSuccess(t, err)
	test.Equate(t, len(combos), 1)
	test.Equate(t, len(combos[0].RegisterFaults()), 1)
	test.Equate(t, combos[0].RegisterFaults()[0].Reg, cpu.R0)
}

// S4: once the single instruction-skip fault is known exploitable, every
// two-fault combination that merely adds a second skip on top of it is a
// superset and must be pruned by the redundancy filter.
func TestSimulateFaultsPrunesRedundantSupersets(t *testing.T) {
	base := branchGuardedEmulator(t)
	fs, err := NewFaultSimulator(branchGuardedContext())
	test.ExpectSuccess(t, err)

	models := []fault.ModelMultiplicity{
		{Model: fault.NewInstructionModel(skipModel), Multiplicity: 2},
	}
	combos, err := fs.SimulateFaults(base, models, 2)
	test.ExpectSuccess(t, err)
	for _, c := range combos {
		test.Equate(t, c.Size(), 1)
	}
}

// S6: the result set must not depend on how many workers searched it.
func TestSimulateFaultsResultIndependentOfThreadCount(t *testing.T) {
	models := []fault.ModelMultiplicity{
		{Model: fault.NewInstructionModel(skipModel), Multiplicity: 1},
	}

	fs1, err := NewFaultSimulator(branchGuardedContext())
	test.ExpectSuccess(t, err)
	fs1.SetNumberOfThreads(1)
	single, err := fs1.SimulateFaults(branchGuardedEmulator(t), models, 1)
	test.ExpectSuccess(t, err)

	fs4, err := NewFaultSimulator(branchGuardedContext())
	test.ExpectSuccess(t, err)
	fs4.SetNumberOfThreads(4)
	multi, err := fs4.SimulateFaults(branchGuardedEmulator(t), models, 1)
	test.ExpectSuccess(t, err)

	test.Equate(t, len(single), len(multi))
	for _, a := range single {
		found := false
		for _, b := range multi {
			if a.Equal(b) {
				found = true
				break
			}
		}
		test.ExpectSuccess(t, found)
	}
}

func TestDumpMemoizationFailsBeforeAnySearch(t *testing.T) {
	fs, err := NewFaultSimulator(branchGuardedContext())
	test.ExpectSuccess(t, err)
	test.ExpectFailure(t, fs.DumpMemoization(nil) == nil)
}
