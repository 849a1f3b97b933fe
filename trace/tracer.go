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

// Package trace implements a single, fixed replay of an already-discovered
// fault combination: every fault's time is known in advance, so each one
// fires exactly once, at its recorded time, via before-fetch hooks gated on
// each fault's recorded time (the explorer instead walks to each site and
// patches it directly) -- and with no snapshotting and no backtracking,
// since there is nothing left to search for. Used both to double-check a combination the explorer found
// and to print a human-readable account of what it actually does to the
// target.
package trace

import (
	"fmt"
	"io"

	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/decode"
	"github.com/armory-go/faultsim/emulator"
	"github.com/armory-go/faultsim/explore"
	"github.com/armory-go/faultsim/fault"
)

// alwaysExploitable mirrors the explorer's "absence of an oracle" default:
// any halting point is immediately exploitable.
type alwaysExploitable struct{}

func (alwaysExploitable) Evaluate(*emulator.Emulator, uint32) explore.Decision {
	return explore.Exploitable
}
func (alwaysExploitable) Clone() explore.Oracle { return alwaysExploitable{} }

// Tracer replays fault combinations against a Context shared with the
// explorer that found them.
type Tracer struct {
	ctx explore.Context
	out io.Writer

	endReached bool
	decision   explore.Decision

	firstFaultReached      bool
	startAfterFirstFault   bool
	logCPUState            bool
	faultedThisInstruction bool
	verificationMode       bool
}

// New returns a Tracer for ctx. Trace output goes to out; out may be nil
// when only Verify will ever be called.
func New(ctx explore.Context, out io.Writer) *Tracer {
	return &Tracer{ctx: ctx, out: out, verificationMode: true}
}

// Verify replays combo against a clone of base and reports whether it
// reaches an exploitable halting point. Nothing is written to out.
func (t *Tracer) Verify(base *emulator.Emulator, combo *fault.FaultCombination) bool {
	return t.run(base, combo, true, false, false)
}

// Trace replays combo against a clone of base, logging each retired
// instruction (and, if logCPUState, the register file after it) to out.
// If startAfterFirstFault, nothing is logged until the first fault has
// actually been injected. Returns whether the combination is exploitable.
func (t *Tracer) Trace(base *emulator.Emulator, combo *fault.FaultCombination, startAfterFirstFault, logCPUState bool) bool {
	exploitable := t.run(base, combo, false, startAfterFirstFault, logCPUState)

	fmt.Fprintln(t.out, "--------------------------------")
	if !t.firstFaultReached {
		fmt.Fprintln(t.out, "WARNING: no fault was injected")
	}
	if exploitable {
		fmt.Fprintln(t.out, "Result: fault is exploitable!")
	} else {
		fmt.Fprintln(t.out, "Result: fault is not exploitable!")
	}
	return exploitable
}

func (t *Tracer) run(base *emulator.Emulator, combo *fault.FaultCombination, verificationMode, startAfterFirstFault, logCPUState bool) bool {
	t.verificationMode = verificationMode
	t.startAfterFirstFault = startAfterFirstFault
	t.logCPUState = logCPUState
	t.firstFaultReached = false
	t.faultedThisInstruction = false
	t.endReached = false
	t.decision = explore.ContinueSimulation

	emu := base.Clone()
	oracle := t.oracle()

	beforeEnd := emu.AddBeforeFetchHook(func(e *emulator.Emulator) {
		t.detectEndOfExecution(e, oracle)
	})
	defer emu.RemoveBeforeFetchHook(beforeEnd)

	if len(combo.InstructionFaults()) > 0 {
		id := emu.AddBeforeFetchHook(func(e *emulator.Emulator) {
			t.handleInstructionFaults(e, combo)
		})
		defer emu.RemoveBeforeFetchHook(id)
	}

	if len(combo.RegisterFaults()) > 0 {
		id := emu.AddBeforeFetchHook(func(e *emulator.Emulator) {
			t.handleRegisterFaults(e, combo)
		})
		defer emu.RemoveBeforeFetchHook(id)
	}

	for _, f := range combo.RegisterFaults() {
		if f.Model.IsPermanent() {
			id := emu.AddRegisterWriteHook(func(e *emulator.Emulator, reg int, value uint32) {
				t.handlePermanentRegisterOverwrite(e, combo, reg, value)
			})
			defer emu.RemoveRegisterWriteHook(id)
			break
		}
	}

	decID := emu.AddDecodeHook(func(e *emulator.Emulator, in decode.Instruction) {
		t.logInstruction(e, in)
	})
	defer emu.RemoveDecodeHook(decID)

	if logCPUState {
		exID := emu.AddExecuteHook(func(e *emulator.Emulator, in decode.Instruction) {
			t.logCPUStateLine(e)
		})
		defer emu.RemoveExecuteHook(exID)
	}

	rc := emu.Emulate(t.ctx.EmulationTimeout)

	if !verificationMode {
		fmt.Fprintf(t.out, "end of emulation: %s\n", describeReturnCode(rc))
	}

	if t.endReached && t.decision != explore.Exploitable {
		t.endReached = false
	}

	return t.endReached
}

func (t *Tracer) oracle() explore.Oracle {
	if t.ctx.ExploitabilityModel == nil {
		return alwaysExploitable{}
	}
	return t.ctx.ExploitabilityModel.Clone()
}

func (t *Tracer) faultInjected() {
	if !t.firstFaultReached {
		if !t.verificationMode && t.startAfterFirstFault {
			fmt.Fprintln(t.out, "...")
		}
		t.firstFaultReached = true
	}
}

// isHaltingPoint does a plain linear scan of the configured halting points,
// deliberately unlike the explorer's binary-search Context.isHaltingPoint:
// a trace replays one fixed combination once, so there is no search-time
// pressure to justify keeping a sorted cache around for it.
func (t *Tracer) isHaltingPoint(pc uint32) bool {
	for _, hp := range t.ctx.HaltingPoints {
		if hp == pc {
			return true
		}
	}
	return false
}

func (t *Tracer) detectEndOfExecution(emu *emulator.Emulator, oracle explore.Oracle) {
	pc := emu.State.Registers.Raw(cpu.PC)
	if !t.isHaltingPoint(pc) {
		return
	}

	t.decision = oracle.Evaluate(emu, pc)
	if t.decision != explore.ContinueSimulation {
		t.endReached = true
		emu.StopEmulation()
	}
}

// handleInstructionFaults reverts any transient instruction fault exactly
// one retirement after it fired, then applies every fault whose recorded
// time has now arrived (spec.md §4.7, grounded on fault_tracer's
// handle_instruction_faults).
func (t *Tracer) handleInstructionFaults(emu *emulator.Emulator, combo *fault.FaultCombination) {
	now := emu.GetTime()
	t.faultedThisInstruction = false

	for _, f := range combo.InstructionFaults() {
		if f.Model.IsPermanent() {
			continue
		}
		if now == f.Time+1 {
			emu.Flash.Write(f.Address, f.Original[:f.InstrSize])
		}
	}

	for _, f := range combo.InstructionFaults() {
		if f.Time != now {
			continue
		}
		emu.Flash.Write(f.Address, f.Manipulated[:f.InstrSize])
		if !f.Model.IsPermanent() {
			t.faultInjected()
			t.faultedThisInstruction = true
		}
	}
}

// handleRegisterFaults reverts any transient register fault exactly one
// retirement after it fired, then applies every fault whose recorded time
// has now arrived (spec.md §4.7, grounded on fault_tracer's
// handle_register_faults).
func (t *Tracer) handleRegisterFaults(emu *emulator.Emulator, combo *fault.FaultCombination) {
	now := emu.GetTime()

	for _, f := range combo.RegisterFaults() {
		if f.Model.IsPermanent() {
			continue
		}
		if now == f.Time+1 {
			emu.WriteRegister(f.Reg, f.Original)
			if !t.verificationMode {
				fmt.Fprintf(t.out, "        revert r%d back to %#08x\n", f.Reg, f.Original)
			}
		}
	}

	for _, f := range combo.RegisterFaults() {
		if f.Time != now {
			continue
		}
		emu.WriteRegister(f.Reg, f.Manipulated)
		t.faultInjected()
		if !t.verificationMode {
			fmt.Fprintf(t.out, "        r%d : %#08x -> %#08x\n", f.Reg, f.Original, f.Manipulated)
		}
	}
}

// handlePermanentRegisterOverwrite keeps a permanent register fault applied
// across every subsequent write the program itself makes to that register
// (spec.md §4.7, grounded on fault_tracer's
// handle_permanent_register_fault_overwrite).
func (t *Tracer) handlePermanentRegisterOverwrite(emu *emulator.Emulator, combo *fault.FaultCombination, reg int, value uint32) {
	for _, f := range combo.RegisterFaults() {
		if !f.Model.IsPermanent() || f.Reg != reg {
			continue
		}
		emu.WriteRegister(reg, f.Manipulated)
		t.faultInjected()
		if !t.verificationMode {
			fmt.Fprintf(t.out, "        r%d : %#08x -> %#08x\n", reg, value, f.Manipulated)
		}
	}
}

func (t *Tracer) logInstruction(emu *emulator.Emulator, in decode.Instruction) {
	if t.verificationMode || (!t.firstFaultReached && t.startAfterFirstFault) {
		return
	}
	marker := "  "
	if t.faultedThisInstruction {
		marker = "> "
	}
	fmt.Fprintf(t.out, "%s%5d | %#08x: %0*x  %s\n", marker, emu.GetTime(), in.Address, int(in.Size)*2, in.Encoding, in.Mnemonic)
}

func (t *Tracer) logCPUStateLine(emu *emulator.Emulator) {
	if t.verificationMode || (!t.firstFaultReached && t.startAfterFirstFault) {
		return
	}
	for i := 0; i <= cpu.PC; i++ {
		fmt.Fprintf(t.out, "        r%d = %#08x\n", i, emu.State.Registers.Raw(i))
	}
	fmt.Fprintln(t.out)
}

func describeReturnCode(rc emulator.ReturnCode) string {
	switch rc {
	case emulator.MaxInstructionsReached:
		return "timeout"
	case emulator.EndAddressReached:
		return "end address reached"
	case emulator.StopEmulationCalled:
		return "stopped by user"
	default:
		return fmt.Sprintf("%v", rc)
	}
}
