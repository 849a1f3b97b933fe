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
	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/decode"
)

// shiftC implements LSL/LSR/ASR/ROR/RRX with carry-out, per the ARM
// reference pseudocode of the same name.
func shiftC(value uint32, typ decode.Shift, amount uint32, carryIn bool) (result uint32, carryOut bool) {
	if amount == 0 && typ != decode.RRX {
		return value, carryIn
	}
	switch typ {
	case decode.LSL:
		if amount >= 32 {
			if amount == 32 {
				return 0, value&1 != 0
			}
			return 0, false
		}
		return value << amount, (value>>(32-amount))&1 != 0
	case decode.LSR:
		if amount >= 32 {
			if amount == 32 {
				return 0, value&0x80000000 != 0
			}
			return 0, false
		}
		return value >> amount, (value>>(amount-1))&1 != 0
	case decode.ASR:
		sv := int32(value)
		if amount >= 32 {
			if sv < 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(sv >> amount), (value>>(amount-1))&1 != 0
	case decode.ROR:
		amount %= 32
		if amount == 0 {
			return value, carryIn
		}
		return (value >> amount) | (value << (32 - amount)), (value>>(amount-1))&1 != 0
	case decode.RRX:
		var c uint32
		if carryIn {
			c = 1
		}
		return (c << 31) | (value >> 1), value&1 != 0
	}
	return value, carryIn
}

// shift is shiftC without reporting the carry-out, for contexts that don't
// update flags (e.g. address calculation).
func shift(value uint32, typ decode.Shift, amount uint32, carryIn bool) uint32 {
	v, _ := shiftC(value, typ, amount, carryIn)
	return v
}

// thumbExpandImmC expands a 12-bit Thumb-2 modified immediate (the
// i:imm3:imm8 encoding) into a 32-bit value and its carry-out, per "A5.3.2
// Modified immediate constants in Thumb instructions".
func thumbExpandImmC(imm12 uint32, carryIn bool) (uint32, bool) {
	if imm12&0xC00 == 0 {
		imm8 := imm12 & 0xFF
		switch (imm12 >> 8) & 0x3 {
		case 0b00:
			return imm8, carryIn
		case 0b01:
			return imm8<<16 | imm8, carryIn
		case 0b10:
			return imm8<<24 | imm8<<8, carryIn
		default:
			return imm8<<24 | imm8<<16 | imm8<<8 | imm8, carryIn
		}
	}

	unrotated := 0x80 | (imm12 & 0x7F)
	rotate := (imm12 >> 7) & 0x1F
	return shiftC(unrotated, decode.ROR, rotate, carryIn)
}

// divideInstruction implements SDIV/UDIV. Division by zero traps as a hard
// fault when cpu.CCRDivByZeroTrap is set in the CCR, and otherwise yields a
// zero result, per "A7.7.127 SDIV" / "A7.7.195 UDIV".
func (e *Emulator) divideInstruction(in decode.Instruction, signed bool) ReturnCode {
	divisor := e.readReg(in.Rm)
	if divisor == 0 {
		if e.State.CCR&cpu.CCRDivByZeroTrap != 0 {
			return HardFault
		}
		e.writeReg(in.Rd, 0)
		return OK
	}

	dividend := e.readReg(in.Rn)
	var result uint32
	if signed {
		result = uint32(int32(dividend) / int32(divisor))
	} else {
		result = dividend / divisor
	}
	e.writeReg(in.Rd, result)
	return OK
}
