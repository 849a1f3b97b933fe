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

// Package emulator implements the Thumb/Thumb-2 interpreter: it owns a
// flash region, a RAM region, the CPU state, a return code and a set of
// callback hooks, and steps instructions one at a time via Emulate.
package emulator

import (
	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/logger"
	"github.com/armory-go/faultsim/memory"
)

// Disassembler is an optional collaborator that observes a textual summary
// of each retired instruction, without the emulator itself depending on any
// formatting package (pretty-printing remains an external concern).
type Disassembler interface {
	Start()
	Step(pc uint32, text string)
	End()
}

// Emulator is a single Thumb/Thumb-2 core: one flash region, one RAM
// region, one register/PSR state.
type Emulator struct {
	Arch cpu.Architecture

	Flash *memory.Region
	RAM   *memory.Region

	State *cpu.State

	ReturnCode ReturnCode
	running    bool
	stopped    bool

	time         uint32
	emulatedTime uint32

	lastInIT bool

	Disassembler Disassembler
	Log          *logger.Logger

	beforeFetch      hookList[BeforeFetchFunc]
	decodeHooks      hookList[DecodeFunc]
	executeHooks     hookList[ExecuteFunc]
	memoryWriteHooks hookList[MemoryWriteFunc]
	registerWriteHooks hookList[RegisterWriteFunc]
	registerReadHooks  hookList[RegisterReadFunc]
}

// New creates an emulator for the given architecture with no memory regions
// installed. SetFlashRegion/SetRAMRegion must be called before Emulate.
func New(arch cpu.Architecture) *Emulator {
	return &Emulator{
		Arch:  arch,
		State: cpu.NewState(arch),
	}
}

// SetFlashRegion installs the emulator's single flash region.
func (e *Emulator) SetFlashRegion(r *memory.Region) { e.Flash = r }

// SetRAMRegion installs the emulator's single RAM region.
func (e *Emulator) SetRAMRegion(r *memory.Region) { e.RAM = r }

// GetTime returns the number of instructions retired since construction.
func (e *Emulator) GetTime() uint32 { return e.time }

// GetEmulatedTime returns the number of instructions retired during the
// current (or most recent) Emulate call.
func (e *Emulator) GetEmulatedTime() uint32 { return e.emulatedTime }

// IsRunning reports whether an Emulate call is currently in progress.
func (e *Emulator) IsRunning() bool { return e.running }

// InITBlock reports whether the next instruction executes under an active
// IT block.
func (e *Emulator) InITBlock() bool { return e.State.Registers.Status().InItBlock() }

// LastInITBlock reports whether the most recently retired instruction was
// executed inside an IT block.
func (e *Emulator) LastInITBlock() bool { return e.lastInIT }

// StopEmulation requests that the active Emulate call return after the
// current instruction, with ReturnCode StopEmulationCalled.
func (e *Emulator) StopEmulation() {
	e.stopped = true
}

// ReadRegister returns a register's value, firing any registered read
// hooks as a side effect (used by the register-fault explorer to trace
// which registers a trial touches).
func (e *Emulator) ReadRegister(reg int) uint32 {
	e.dispatchRegisterRead(reg)
	return e.State.Registers.Read(reg)
}

// WriteRegister sets a register's value and fires any registered write
// hooks.
func (e *Emulator) WriteRegister(reg int, value uint32) {
	e.State.Registers.Write(reg, value)
	e.dispatchRegisterWrite(reg, e.State.Registers.Read(reg))
}

func (e *Emulator) findRegion(addr, length uint32) *memory.Region {
	if e.Flash != nil && e.Flash.Contains(addr, length) {
		return e.Flash
	}
	if e.RAM != nil && e.RAM.Contains(addr, length) {
		return e.RAM
	}
	return nil
}

// ReadMemory reads length bytes from addr. Returns InvalidMemoryAccess if
// no region covers the span or the covering region is not readable.
func (e *Emulator) ReadMemory(addr, length uint32) ([]byte, ReturnCode) {
	r := e.findRegion(addr, length)
	if r == nil || !r.Access.Read {
		return nil, InvalidMemoryAccess
	}
	return r.Read(addr, length), OK
}

// ReadMemoryExecute reads length bytes from addr for instruction fetch,
// requiring execute permission rather than read permission.
func (e *Emulator) ReadMemoryExecute(addr, length uint32) ([]byte, ReturnCode) {
	r := e.findRegion(addr, length)
	if r == nil || !r.Access.Execute {
		return nil, InvalidMemoryAccess
	}
	return r.Read(addr, length), OK
}

// WriteMemory writes data to addr, firing after-write hooks on success.
// Returns InvalidMemoryAccess if no writable region covers the span.
func (e *Emulator) WriteMemory(addr uint32, data []byte) ReturnCode {
	r := e.findRegion(addr, uint32(len(data)))
	if r == nil || !r.Access.Write {
		return InvalidMemoryAccess
	}
	r.Write(addr, data)
	e.dispatchMemoryWrite(addr, data)
	return OK
}

// aligned reports whether addr satisfies the natural alignment for a
// size-byte access, honoring the CCR unaligned-access-enable bit.
func (e *Emulator) aligned(addr uint32, size uint32) bool {
	if e.State.CCR&cpu.CCRUnalignedTrapDisable != 0 {
		return true
	}
	return addr%size == 0
}

// Clone returns a deep, independent copy of the emulator: memory regions,
// CPU state, return code and hook registrations are all copied, so a cloned
// emulator resumes exactly as the original would have.
func (e *Emulator) Clone() *Emulator {
	c := &Emulator{
		Arch:         e.Arch,
		State:        e.State.Clone(),
		ReturnCode:   e.ReturnCode,
		running:      e.running,
		stopped:      e.stopped,
		time:         e.time,
		emulatedTime: e.emulatedTime,
		lastInIT:     e.lastInIT,
		Disassembler: e.Disassembler,
		Log:          e.Log,
	}
	if e.Flash != nil {
		c.Flash = e.Flash.Clone()
	}
	if e.RAM != nil {
		c.RAM = e.RAM.Clone()
	}
	c.beforeFetch = e.beforeFetch.clone()
	c.decodeHooks = e.decodeHooks.clone()
	c.executeHooks = e.executeHooks.clone()
	c.memoryWriteHooks = e.memoryWriteHooks.clone()
	c.registerWriteHooks = e.registerWriteHooks.clone()
	c.registerReadHooks = e.registerReadHooks.clone()
	return c
}
