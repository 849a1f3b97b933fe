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
	"github.com/armory-go/faultsim/decode"
	"github.com/armory-go/faultsim/emulator"
	"github.com/armory-go/faultsim/fault"
)

// traceInstructionSites runs from the emulator's current position up to
// maxInstructions retirements, recording the (address, size) of every
// instruction decoded, minus anything covered by an ignore-time or
// ignore-memory range. Used to find candidate sites for a transient
// instruction fault (spec.md §4.5).
//
// itActive is approximated as false for the purposes of re-decoding a site
// in isolation later; this only affects the interpretation of a handful of
// IT-block-conditional encodings and does not change instruction length.
func traceInstructionSites(emu *emulator.Emulator, ctx *Context, maxInstructions uint32) []instructionSite {
	var sites []instructionSite
	start := emu.GetTime()

	id := emu.AddDecodeHook(func(e *emulator.Emulator, in decode.Instruction) {
		t := e.GetTime() - start
		if ctx.inIgnoreTimeRange(t) {
			return
		}
		if ctx.inIgnoreMemoryRange(in.Address) {
			return
		}
		sites = append(sites, instructionSite{Address: in.Address, Size: uint32(in.Size)})
	})
	defer emu.RemoveDecodeHook(id)

	emu.Emulate(maxInstructions)
	return sites
}

func fetchInstruction(emu *emulator.Emulator, addr, size uint32) (decode.Instruction, bool) {
	raw, rc := emu.ReadMemoryExecute(addr, size)
	if rc != emulator.OK {
		return decode.Instruction{}, false
	}
	in, err := decode.Decode(addr, raw, false)
	if err != nil {
		return decode.Instruction{}, false
	}
	return in, true
}

// simulateInstructionFault injects a transient instruction fault: it traces
// the upcoming instruction stream from the current checkpoint, and for each
// candidate site tries every applicable iteration of the model, restoring
// the checkpoint and the original bytes between attempts (spec.md §4.5,
// grounded on simulate_instruction_fault's transient branch).
func (fs *FaultSimulator) simulateInstructionFault(tc *ThreadContext, order int, remaining uint32, chain *fault.FaultCombination, table []instructionSite) {
	model := fs.currentModels[order].Instruction
	snap := tc.snapshots[order]
	snap.Backup()

	trace := traceInstructionSites(tc.emu, &fs.ctx, remaining)
	snap.Restore()

	var local int
	for {
		i, ok := fs.claimSite(order, len(trace), &local)
		if !ok {
			break
		}
		site := trace[i]

		in, ok := fetchInstruction(tc.emu, site.Address, site.Size)
		if !ok {
			continue
		}

		count := model.IterationCount(in)
		for iter := 0; iter < count; iter++ {
			if !model.Applicable(in, iter) {
				continue
			}
			fs.tryInstructionSite(tc, order, remaining, chain, site, in, iter, true, table)
		}
	}
}

// simulatePermanentInstructionFault injects a permanent instruction fault:
// the candidate sites come from the precomputed faultable-instruction table
// rather than a fresh trace, and the mutated bytes are left in flash for
// the remainder of the trial (spec.md §4.5, permanent branch).
func (fs *FaultSimulator) simulatePermanentInstructionFault(tc *ThreadContext, order int, remaining uint32, chain *fault.FaultCombination, sites []instructionSite) {
	model := fs.currentModels[order].Instruction
	snap := tc.snapshots[order]
	snap.Backup()

	var local int
	for {
		i, ok := fs.claimSite(order, len(sites), &local)
		if !ok {
			break
		}
		site := sites[i]

		if chainHasInstructionSite(chain, site.Address) {
			continue
		}

		in, ok := fetchInstruction(tc.emu, site.Address, site.Size)
		if !ok {
			continue
		}

		count := model.IterationCount(in)
		for iter := 0; iter < count; iter++ {
			if !model.Applicable(in, iter) {
				continue
			}
			fs.tryInstructionSite(tc, order, remaining, chain, site, in, iter, false, sites)
		}
	}
}

func chainHasInstructionSite(chain *fault.FaultCombination, addr uint32) bool {
	for _, f := range chain.InstructionFaults() {
		if f.Address == addr {
			return true
		}
	}
	return false
}

// tryInstructionSite restores the order's checkpoint, walks forward to the
// site, patches it with the model's manipulated encoding and retires exactly
// that one instruction. A transient fault's bytes are reverted immediately
// afterward; a permanent fault's are left in place until this call returns,
// when the original bytes are written back. From there the trial
// either keeps running to see whether it lands on an exploitable halting
// point, or (transient only, if another model remains) redoes the same
// walk-apply-retire-revert sequence so the next model can be laid on top of
// the identical post-fault state (spec.md §4.5, grounded on
// simulate_instruction_fault).
func (fs *FaultSimulator) tryInstructionSite(tc *ThreadContext, order int, remaining uint32, chain *fault.FaultCombination, site instructionSite, in decode.Instruction, iter int, transient bool, table []instructionSite) {
	snap := tc.snapshots[order]
	walk := func() emulator.ReturnCode {
		snap.Restore()
		return tc.emu.EmulateToAddress(site.Address, remaining)
	}

	if walk() != emulator.EndAddressReached {
		return
	}
	budget := remaining - tc.emu.GetEmulatedTime()
	if budget == 0 {
		return
	}
	siteTime := tc.emu.GetTime()

	var original [4]byte
	copy(original[:], tc.emu.Flash.Read(site.Address, site.Size))
	manipulated := fs.currentModels[order].Instruction.Mutate(in, iter)

	apply := func() { tc.emu.Flash.Write(site.Address, manipulated[:site.Size]) }
	revert := func() { tc.emu.Flash.Write(site.Address, original[:site.Size]) }

	apply()
	if !transient {
		defer revert()
	}
	tc.endReached = false
	rc := tc.emu.Emulate(1)
	used := tc.emu.GetEmulatedTime()
	if transient {
		revert()
	}
	if rc != emulator.MaxInstructionsReached && rc != emulator.StopEmulationCalled {
		return
	}
	budget -= used

	f := fault.InstructionFault{
		Model:       fs.currentModels[order].Instruction,
		Time:        siteTime,
		Iteration:   iter,
		Address:     site.Address,
		InstrSize:   uint8(site.Size),
		Original:    original,
		Manipulated: manipulated,
	}

	child := chain.Clone()
	child.AddInstructionFault(f)

	if fs.redundancy.isRedundant(child) {
		return
	}

	if !transient {
		fs.finishPermanentTrial(tc, order, budget, child, table)
		return
	}

	redo := func(want uint32) (uint32, bool) {
		if walk() != emulator.EndAddressReached {
			return 0, false
		}
		apply()
		tc.endReached = false
		rc := tc.emu.Emulate(1)
		u := tc.emu.GetEmulatedTime()
		revert()
		if rc != emulator.MaxInstructionsReached && rc != emulator.StopEmulationCalled {
			return 0, false
		}
		if want < u {
			return 0, false
		}
		return want - u, true
	}
	fs.finishTransientTrial(tc, order, budget, child, table, redo)
}
