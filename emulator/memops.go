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

	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/decode"
)

func (e *Emulator) address(in decode.Instruction) uint32 {
	base := e.readReg(in.Rn)
	if in.Rn == cpu.PC {
		base &^= 0x3
	}
	if in.Flags.Add {
		return base + in.Imm
	}
	return base - in.Imm
}

// load performs a memory read of the given width (1, 2 or 4 bytes),
// optionally sign-extending, into Rd.
func (e *Emulator) load(in decode.Instruction, width int, signExtend bool) ReturnCode {
	var addr uint32
	if in.OperandType == decode.RRR {
		addr = e.readReg(in.Rn) + e.readReg(in.Rm)
	} else {
		addr = e.address(in)
	}

	if !e.aligned(addr, uint32(width)) && width > 1 {
		return InvalidAlignment
	}

	data, rc := e.ReadMemory(addr, uint32(width))
	if rc != OK {
		return rc
	}

	var v uint32
	switch width {
	case 1:
		v = uint32(data[0])
		if signExtend && data[0]&0x80 != 0 {
			v |= 0xFFFFFF00
		}
	case 2:
		v = uint32(binary.LittleEndian.Uint16(data))
		if signExtend && v&0x8000 != 0 {
			v |= 0xFFFF0000
		}
	case 4:
		v = binary.LittleEndian.Uint32(data)
	}

	e.writeReg(in.Rd, v)
	return OK
}

// store performs a memory write of the given width (1, 2 or 4 bytes) from
// Rd.
func (e *Emulator) store(in decode.Instruction, width int) ReturnCode {
	var addr uint32
	if in.OperandType == decode.RRR {
		addr = e.readReg(in.Rn) + e.readReg(in.Rm)
	} else {
		addr = e.address(in)
	}

	if !e.aligned(addr, uint32(width)) && width > 1 {
		return InvalidAlignment
	}

	v := e.readReg(in.Rd)
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, v)
	}

	return e.WriteMemory(addr, buf)
}

func registerList(list uint16) []int {
	var regs []int
	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) != 0 {
			regs = append(regs, i)
		}
	}
	return regs
}

func (e *Emulator) push(in decode.Instruction) ReturnCode {
	regs := registerList(in.RegisterList)
	addr := e.readReg(cpu.SP) - uint32(len(regs))*4
	if !e.aligned(addr, 4) {
		return InvalidAlignment
	}
	for i, r := range regs {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, e.readReg(r))
		if rc := e.WriteMemory(addr+uint32(i)*4, buf); rc != OK {
			return rc
		}
	}
	e.writeReg(cpu.SP, addr)
	return OK
}

func (e *Emulator) pop(in decode.Instruction) ReturnCode {
	regs := registerList(in.RegisterList)
	addr := e.readReg(cpu.SP)
	if !e.aligned(addr, 4) {
		return InvalidAlignment
	}
	for i, r := range regs {
		data, rc := e.ReadMemory(addr+uint32(i)*4, 4)
		if rc != OK {
			return rc
		}
		v := binary.LittleEndian.Uint32(data)
		if r == cpu.PC {
			e.branchWritePC(v)
		} else {
			e.writeReg(r, v)
		}
	}
	e.writeReg(cpu.SP, addr+uint32(len(regs))*4)
	return OK
}

func (e *Emulator) stm(in decode.Instruction) ReturnCode {
	regs := registerList(in.RegisterList)
	addr := e.readReg(in.Rn)
	if !e.aligned(addr, 4) {
		return InvalidAlignment
	}
	for i, r := range regs {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, e.readReg(r))
		if rc := e.WriteMemory(addr+uint32(i)*4, buf); rc != OK {
			return rc
		}
	}
	if in.Flags.Wback {
		e.writeReg(in.Rn, addr+uint32(len(regs))*4)
	}
	return OK
}

func (e *Emulator) ldm(in decode.Instruction) ReturnCode {
	regs := registerList(in.RegisterList)
	addr := e.readReg(in.Rn)
	if !e.aligned(addr, 4) {
		return InvalidAlignment
	}
	for i, r := range regs {
		data, rc := e.ReadMemory(addr+uint32(i)*4, 4)
		if rc != OK {
			return rc
		}
		v := binary.LittleEndian.Uint32(data)
		if r == cpu.PC {
			e.branchWritePC(v)
		} else {
			e.writeReg(r, v)
		}
	}
	if in.Flags.Wback {
		e.writeReg(in.Rn, addr+uint32(len(regs))*4)
	}
	return OK
}
