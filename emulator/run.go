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

import (
	"fmt"

	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/decode"
	curated "github.com/armory-go/faultsim/errors"
	"github.com/armory-go/faultsim/logger"
)

// Emulate runs from the current PC until maxInstructions instructions have
// retired or the emulator stops itself.
func (e *Emulator) Emulate(maxInstructions uint32) ReturnCode {
	return e.run(0, false, maxInstructions)
}

// EmulateToAddress runs from the current PC until the raw (un-adjusted) PC
// equals endAddress, or maxInstructions instructions have retired.
func (e *Emulator) EmulateToAddress(endAddress uint32, maxInstructions uint32) ReturnCode {
	return e.run(endAddress, true, maxInstructions)
}

func (e *Emulator) run(endAddress uint32, hasEnd bool, maxInstructions uint32) ReturnCode {
	e.running = true
	e.stopped = false
	e.emulatedTime = 0

	if e.Disassembler != nil {
		e.Disassembler.Start()
	}

	defer func() {
		e.running = false
		if e.Disassembler != nil {
			e.Disassembler.End()
		}
	}()

	for {
		e.dispatchBeforeFetch()

		if e.stopped {
			e.ReturnCode = StopEmulationCalled
			return e.ReturnCode
		}

		addr := e.State.Registers.Raw(cpu.PC)
		if hasEnd && addr == endAddress {
			e.ReturnCode = EndAddressReached
			return e.ReturnCode
		}
		if e.emulatedTime >= maxInstructions {
			e.ReturnCode = MaxInstructionsReached
			return e.ReturnCode
		}

		header, rc := e.ReadMemoryExecute(addr, 2)
		if rc != OK {
			e.ReturnCode = rc
			return e.ReturnCode
		}
		size := uint32(decode.InstructionSize(uint16(header[1])<<8 | uint16(header[0])))

		full, rc := e.ReadMemoryExecute(addr, size)
		if rc != OK {
			e.ReturnCode = rc
			return e.ReturnCode
		}

		itActive := e.InITBlock()
		in, derr := decode.Decode(addr, full, itActive)
		if derr != nil {
			e.ReturnCode = decodeErrorCode(derr)
			if e.Log != nil {
				e.Log.Logf(logger.Allow, "decode", "%v at %#08x", derr, addr)
			}
			return e.ReturnCode
		}

		e.dispatchDecode(in)

		// Inside an IT block the instruction runs only when the block's
		// current condition holds; evaluating it advances the IT state.
		rc = OK
		if !itActive || e.State.Registers.Status().EvaluateCondition(e.Arch, in.Condition) {
			rc = e.execute(in)
		}
		if rc != OK {
			e.ReturnCode = rc
			if e.Log != nil {
				e.Log.Logf(logger.Allow, "emulator", "%v executing %s at %#08x", rc, in.Mnemonic, addr)
			}
			return e.ReturnCode
		}

		if e.State.Registers.Raw(cpu.PC) == addr {
			e.State.Registers.Write(cpu.PC, addr+size)
		}

		e.lastInIT = itActive
		e.time++
		e.emulatedTime++

		e.dispatchExecute(in)

		if e.Disassembler != nil {
			e.Disassembler.Step(addr, fmt.Sprintf("%s", in.Mnemonic))
		}
	}
}

func decodeErrorCode(err error) ReturnCode {
	de, ok := err.(*decode.Error)
	if !ok {
		return Undefined
	}
	if curated.Is(de.Unwrap(), curated.TruncatedInstruction) {
		return IncompleteData
	}
	switch de.Kind {
	case decode.Undefined:
		return Undefined
	case decode.Unpredictable:
		return Unpredictable
	case decode.Unsupported:
		return Unsupported
	default:
		return Undefined
	}
}
