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
	"encoding/binary"

	"github.com/armory-go/faultsim/decode"
)

// LoadExclusive implements the LDREX* family: it reads width bytes from
// addr and records addr in the exclusive monitor.
func (e *Emulator) LoadExclusive(addr uint32, width int) (uint32, ReturnCode) {
	data, rc := e.ReadMemory(addr, uint32(width))
	if rc != OK {
		return 0, rc
	}
	e.State.ExclusiveAddress = addr
	e.State.ExclusiveValid = true

	var v uint32
	switch width {
	case 1:
		v = uint32(data[0])
	case 2:
		v = uint32(binary.LittleEndian.Uint16(data))
	case 4:
		v = binary.LittleEndian.Uint32(data)
	}
	return v, OK
}

// StoreExclusive implements the STREX* family: the store only takes effect
// if addr matches the address recorded by the most recent LoadExclusive.
// Returns (success, ReturnCode); success mirrors the value that would be
// written to Rd (0 on success, 1 on failure) by the caller.
func (e *Emulator) StoreExclusive(addr uint32, value uint32, width int) (bool, ReturnCode) {
	if !e.State.ExclusiveValid || e.State.ExclusiveAddress != addr {
		return false, OK
	}

	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf, value)
	}

	rc := e.WriteMemory(addr, buf)
	if rc != OK {
		return false, rc
	}

	e.State.ExclusiveValid = false
	return true, OK
}

// loadExclusiveInstruction wires LDREX/LDREXB/LDREXH into LoadExclusive,
// loading Rn+Imm into Rd.
func (e *Emulator) loadExclusiveInstruction(in decode.Instruction, width int) ReturnCode {
	addr := e.readReg(in.Rn) + in.Imm
	v, rc := e.LoadExclusive(addr, width)
	if rc != OK {
		return rc
	}
	e.writeReg(in.Rd, v)
	return OK
}

// storeExclusiveInstruction wires STREX/STREXB/STREXH into StoreExclusive,
// storing Rm to Rn+Imm and latching the 0 (success) or 1 (failure) result
// into Rd.
func (e *Emulator) storeExclusiveInstruction(in decode.Instruction, width int) ReturnCode {
	addr := e.readReg(in.Rn) + in.Imm
	ok, rc := e.StoreExclusive(addr, e.readReg(in.Rm), width)
	if rc != OK {
		return rc
	}
	if ok {
		e.writeReg(in.Rd, 0)
	} else {
		e.writeReg(in.Rd, 1)
	}
	return OK
}
