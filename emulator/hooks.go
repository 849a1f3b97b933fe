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

package emulator

import "github.com/armory-go/faultsim/decode"

// HookID identifies a registered hook for later removal.
type HookID int

// hookList is a small insertion-ordered registry of callbacks of type F.
// Hooks may be added or marked for removal while a dispatch batch is in
// progress; removal only physically happens in the sweep that runs after
// that batch, so a hook removed mid-dispatch is skipped for the remainder
// of the current batch but is not itself still callable afterward.
type hookList[F any] struct {
	entries []hookEntry[F]
	nextID  HookID
}

type hookEntry[F any] struct {
	id      HookID
	fn      F
	removed bool
}

func (h *hookList[F]) add(fn F) HookID {
	h.nextID++
	id := h.nextID
	h.entries = append(h.entries, hookEntry[F]{id: id, fn: fn})
	return id
}

func (h *hookList[F]) remove(id HookID) {
	for i := range h.entries {
		if h.entries[i].id == id {
			h.entries[i].removed = true
			return
		}
	}
}

// sweep physically drops every entry marked for removal. Call once after a
// full dispatch batch completes.
func (h *hookList[F]) sweep() {
	live := h.entries[:0]
	for _, e := range h.entries {
		if !e.removed {
			live = append(live, e)
		}
	}
	h.entries = live
}

// clear removes every hook unconditionally. Bypasses the deferred-removal
// discipline; callers that rely on a snapshot's write hook staying
// installed must not call this while a snapshot is active.
func (h *hookList[F]) clear() {
	h.entries = nil
}

func (h *hookList[F]) clone() hookList[F] {
	c := hookList[F]{nextID: h.nextID}
	c.entries = append([]hookEntry[F](nil), h.entries...)
	return c
}

// BeforeFetchFunc runs before each instruction fetch. A hook may redirect
// PC or call StopEmulation; the emulator checks the stop flag and reads PC
// only after all before-fetch hooks have run.
type BeforeFetchFunc func(e *Emulator)

// DecodeFunc runs once an instruction has been decoded, before execution.
type DecodeFunc func(e *Emulator, in decode.Instruction)

// ExecuteFunc runs after an instruction has retired.
type ExecuteFunc func(e *Emulator, in decode.Instruction)

// MemoryWriteFunc runs after a memory write has been committed.
type MemoryWriteFunc func(e *Emulator, addr uint32, data []byte)

// RegisterWriteFunc runs after a register write has been committed.
type RegisterWriteFunc func(e *Emulator, reg int, value uint32)

// RegisterReadFunc runs whenever a register is read during instruction
// execution (not for the incidental PC lookahead during decode).
type RegisterReadFunc func(e *Emulator, reg int)

func (e *Emulator) AddBeforeFetchHook(fn BeforeFetchFunc) HookID { return e.beforeFetch.add(fn) }
func (e *Emulator) RemoveBeforeFetchHook(id HookID)              { e.beforeFetch.remove(id) }

func (e *Emulator) AddDecodeHook(fn DecodeFunc) HookID { return e.decodeHooks.add(fn) }
func (e *Emulator) RemoveDecodeHook(id HookID)         { e.decodeHooks.remove(id) }

func (e *Emulator) AddExecuteHook(fn ExecuteFunc) HookID { return e.executeHooks.add(fn) }
func (e *Emulator) RemoveExecuteHook(id HookID)          { e.executeHooks.remove(id) }

func (e *Emulator) AddMemoryWriteHook(fn MemoryWriteFunc) HookID { return e.memoryWriteHooks.add(fn) }
func (e *Emulator) RemoveMemoryWriteHook(id HookID)              { e.memoryWriteHooks.remove(id) }

func (e *Emulator) AddRegisterWriteHook(fn RegisterWriteFunc) HookID {
	return e.registerWriteHooks.add(fn)
}
func (e *Emulator) RemoveRegisterWriteHook(id HookID) { e.registerWriteHooks.remove(id) }

func (e *Emulator) AddRegisterReadHook(fn RegisterReadFunc) HookID {
	return e.registerReadHooks.add(fn)
}
func (e *Emulator) RemoveRegisterReadHook(id HookID) { e.registerReadHooks.remove(id) }

// ClearHooks removes every installed hook immediately, bypassing deferred
// removal. Bypassing an active snapshot's write hook this way silently
// invalidates that snapshot's incremental-restore correctness; see
// snapshot package doc comment.
func (e *Emulator) ClearHooks() {
	e.beforeFetch.clear()
	e.decodeHooks.clear()
	e.executeHooks.clear()
	e.memoryWriteHooks.clear()
	e.registerWriteHooks.clear()
	e.registerReadHooks.clear()
}

func (e *Emulator) dispatchBeforeFetch() {
	for _, h := range e.beforeFetch.entries {
		if h.removed {
			continue
		}
		h.fn(e)
	}
	e.beforeFetch.sweep()
}

func (e *Emulator) dispatchDecode(in decode.Instruction) {
	for _, h := range e.decodeHooks.entries {
		if h.removed {
			continue
		}
		h.fn(e, in)
	}
	e.decodeHooks.sweep()
}

func (e *Emulator) dispatchExecute(in decode.Instruction) {
	for _, h := range e.executeHooks.entries {
		if h.removed {
			continue
		}
		h.fn(e, in)
	}
	e.executeHooks.sweep()
}

func (e *Emulator) dispatchMemoryWrite(addr uint32, data []byte) {
	for _, h := range e.memoryWriteHooks.entries {
		if h.removed {
			continue
		}
		h.fn(e, addr, data)
	}
	e.memoryWriteHooks.sweep()
}

func (e *Emulator) dispatchRegisterWrite(reg int, value uint32) {
	for _, h := range e.registerWriteHooks.entries {
		if h.removed {
			continue
		}
		h.fn(e, reg, value)
	}
	e.registerWriteHooks.sweep()
}

func (e *Emulator) dispatchRegisterRead(reg int) {
	for _, h := range e.registerReadHooks.entries {
		if h.removed {
			continue
		}
		h.fn(e, reg)
	}
	e.registerReadHooks.sweep()
}
