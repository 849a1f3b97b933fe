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
	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/decode"
	"github.com/armory-go/faultsim/emulator"
	"github.com/armory-go/faultsim/fault"
)

// registerRead is one (instruction address, register, time) observation
// recorded while tracing a run for candidate transient register-fault
// sites (spec.md §4.6, grounded on simulate_register_fault's transient
// branch, which collects the read-register set of every retired
// instruction via a register-read hook).
type registerRead struct {
	Address uint32
	Reg     int
	Time    uint32
}

func traceRegisterReads(emu *emulator.Emulator, ctx *Context, maxInstructions uint32) []registerRead {
	var reads []registerRead
	start := emu.GetTime()
	var curAddr uint32

	decID := emu.AddDecodeHook(func(e *emulator.Emulator, in decode.Instruction) {
		curAddr = in.Address
	})
	defer emu.RemoveDecodeHook(decID)

	readID := emu.AddRegisterReadHook(func(e *emulator.Emulator, reg int) {
		if reg == cpu.PC {
			return
		}
		t := e.GetTime() - start
		if ctx.inIgnoreTimeRange(t) {
			return
		}
		if ctx.inIgnoreMemoryRange(curAddr) {
			return
		}
		reads = append(reads, registerRead{Address: curAddr, Reg: reg, Time: t})
	})
	defer emu.RemoveRegisterReadHook(readID)

	emu.Emulate(maxInstructions)
	return reads
}

func chainHasRegisterSite(chain *fault.FaultCombination, reg int) bool {
	for _, f := range chain.RegisterFaults() {
		if f.Reg == reg {
			return true
		}
	}
	return false
}

// registerAlreadyFaulted reports whether reg already carries an earlier
// fault in chain that would conflict with faulting it again right now: a
// permanent fault on reg always wins out over anything layered after it,
// and a second transient fault at the exact same instruction time would
// simply overwrite the first's effect before it's ever observed (spec.md
// §4.6, grounded on simulate_register_fault's already_processed checks).
func registerAlreadyFaulted(chain *fault.FaultCombination, reg int, now uint32) bool {
	for _, f := range chain.RegisterFaults() {
		if f.Reg == reg && (f.Model.IsPermanent() || f.Time == now) {
			return true
		}
	}
	return false
}

// simulateRegisterFault injects a transient register fault: for every
// register read observed while tracing the upcoming instructions, it
// overwrites the register immediately before the instruction that reads it
// retires, then reverts the register afterward (spec.md §4.6, transient
// branch).
func (fs *FaultSimulator) simulateRegisterFault(tc *ThreadContext, order int, remaining uint32, chain *fault.FaultCombination, sites []instructionSite) {
	snap := tc.snapshots[order]
	snap.Backup()

	reads := traceRegisterReads(tc.emu, &fs.ctx, remaining)
	snap.Restore()

	var local int
	for {
		i, ok := fs.claimSite(order, len(reads), &local)
		if !ok {
			break
		}
		r := reads[i]

		if registerAlreadyFaulted(chain, r.Reg, r.Time) {
			continue
		}

		fs.tryTransientRegisterFault(tc, order, remaining, chain, r, sites)
	}
}

// tryTransientRegisterFault walks to the read site, reads the register's
// value there, and tries every applicable iteration of the model against
// it: overwrite the register and drive the emulator through the rest of the
// budget in a single run, with a revert hook watching for the one
// instruction retiring at the fault's exact time to put the original value
// back right after it, so everything that follows sees the unfaulted
// register again. If a trial isn't exploitable on its own and another model
// remains, the next model is laid on top of this one's effect directly,
// with no revert, exactly as a non-terminal transient register fault
// behaves in the original (spec.md §4.6, grounded on
// simulate_register_fault's transient branch).
func (fs *FaultSimulator) tryTransientRegisterFault(tc *ThreadContext, order int, remaining uint32, chain *fault.FaultCombination, r registerRead, sites []instructionSite) {
	snap := tc.snapshots[order]
	snap.Restore()

	rc := tc.emu.EmulateToAddress(r.Address, remaining)
	if rc != emulator.EndAddressReached {
		return
	}
	budget := remaining - tc.emu.GetEmulatedTime()
	if budget == 0 {
		return
	}
	snap.Backup()

	model := fs.currentModels[order].Register
	value := tc.emu.ReadRegister(r.Reg)
	count := model.IterationCount(r.Reg, value)
	for iter := 0; iter < count; iter++ {
		if !model.Applicable(r.Reg, value, iter) {
			continue
		}
		fs.tryTransientRegisterIteration(tc, order, budget, chain, r, value, iter, sites)
	}
}

func (fs *FaultSimulator) tryTransientRegisterIteration(tc *ThreadContext, order int, budget uint32, chain *fault.FaultCombination, r registerRead, value uint32, iter int, sites []instructionSite) {
	snap := tc.snapshots[order]
	snap.Restore()
	model := fs.currentModels[order].Register
	manipulated := model.Mutate(r.Reg, value, iter)
	if manipulated == value {
		return
	}

	f := fault.RegisterFault{
		Model:       model,
		Time:        tc.emu.GetTime(),
		Iteration:   iter,
		Reg:         r.Reg,
		Original:    value,
		Manipulated: manipulated,
	}

	child := chain.Clone()
	child.AddRegisterFault(f)

	if fs.redundancy.isRedundant(child) {
		return
	}

	tc.emu.WriteRegister(r.Reg, manipulated)
	if tc.emu.ReadRegister(r.Reg) != manipulated {
		return
	}

	faultTime := f.Time
	hookID := tc.emu.AddExecuteHook(func(e *emulator.Emulator, in decode.Instruction) {
		if e.GetTime() == faultTime+1 {
			e.State.Registers.Write(r.Reg, value)
		}
	})
	tc.endReached = false
	tc.decision = ContinueSimulation
	tc.emu.Emulate(budget)
	tc.emu.RemoveExecuteHook(hookID)

	if tc.endReached && tc.decision == Exploitable {
		tc.newFaults = append(tc.newFaults, child)
	} else if order < len(fs.currentModels)-1 && budget > 0 {
		snap.Restore()
		tc.emu.WriteRegister(r.Reg, manipulated)
		tc.snapshots[order+1].Backup()
		fs.simulateFault(tc, order+1, budget, child, sites)
	}

	tc.endReached = false
	tc.decision = ContinueSimulation
}

// simulatePermanentRegisterFault injects a permanent register fault: it
// walks the fixed 17-register file (spec.md §4.6, permanent branch) and
// installs a write hook that re-applies the mutator to the register on
// every subsequent write, so the manipulation survives the rest of the
// trial no matter what later writes the program performs.
func (fs *FaultSimulator) simulatePermanentRegisterFault(tc *ThreadContext, order int, remaining uint32, chain *fault.FaultCombination, sites []instructionSite) {
	model := fs.currentModels[order].Register
	snap := tc.snapshots[order]
	snap.Backup()

	var local int
	for {
		i, ok := fs.claimSite(order, cpu.NumRegisters, &local)
		if !ok {
			break
		}
		reg := i

		if chainHasRegisterSite(chain, reg) {
			continue
		}

		value := tc.emu.ReadRegister(reg)
		count := model.IterationCount(reg, value)
		for iter := 0; iter < count; iter++ {
			if !model.Applicable(reg, value, iter) {
				continue
			}
			fs.tryPermanentRegisterFault(tc, order, remaining, chain, reg, value, iter, sites)
		}
	}
}

func (fs *FaultSimulator) tryPermanentRegisterFault(tc *ThreadContext, order int, remaining uint32, chain *fault.FaultCombination, reg int, value uint32, iter int, sites []instructionSite) {
	snap := tc.snapshots[order]
	snap.Restore()

	model := fs.currentModels[order].Register
	manipulated := model.Mutate(reg, value, iter)
	tc.emu.WriteRegister(reg, manipulated)

	hookID := tc.emu.AddRegisterWriteHook(func(e *emulator.Emulator, r int, v uint32) {
		if r != reg {
			return
		}
		m := model.Mutate(reg, v, iter)
		if m != v {
			e.State.Registers.Write(reg, m)
		}
	})
	defer tc.emu.RemoveRegisterWriteHook(hookID)

	f := fault.RegisterFault{
		Model:       model,
		Time:        tc.emu.GetTime(),
		Iteration:   iter,
		Reg:         reg,
		Original:    value,
		Manipulated: manipulated,
	}

	child := chain.Clone()
	child.AddRegisterFault(f)

	if fs.redundancy.isRedundant(child) {
		return
	}

	fs.finishPermanentTrial(tc, order, remaining, child, sites)
}
