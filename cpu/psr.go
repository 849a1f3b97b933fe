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

package cpu

import (
	"fmt"
	"strings"
)

// Status is the decoded form of the PSR: the N, Z, C, V and Q condition
// flags plus the IT-block state. Rather than keeping a single raw IT state
// byte, the current condition and the mask are split into two fields, for
// clarity and because checking itMask against zero is a cheaper "are we in
// an IT block" test than masking a combined byte.
//
// itCond/itMask are advanced by this type's EvaluateCondition, which the
// emulator calls for each instruction executed inside an IT block.
type Status struct {
	negative bool
	zero     bool
	carry    bool
	overflow bool
	saturate bool

	itCond uint8
	itMask uint8
}

func (sr Status) String() string {
	s := strings.Builder{}
	for _, f := range []struct {
		set  bool
		r, n rune
	}{
		{sr.negative, 'N', 'n'},
		{sr.zero, 'Z', 'z'},
		{sr.carry, 'C', 'c'},
		{sr.overflow, 'V', 'v'},
		{sr.saturate, 'Q', 'q'},
	} {
		if f.set {
			s.WriteRune(f.r)
		} else {
			s.WriteRune(f.n)
		}
	}
	fmt.Fprintf(&s, " itCond:%04b itMask:%04b", sr.itCond, sr.itMask)
	return s.String()
}

func (sr *Status) Negative() bool { return sr.negative }
func (sr *Status) Zero() bool     { return sr.zero }
func (sr *Status) Carry() bool    { return sr.carry }
func (sr *Status) Overflow() bool { return sr.overflow }
func (sr *Status) Saturate() bool { return sr.saturate }

func (sr *Status) SetNegative(v bool) { sr.negative = v }
func (sr *Status) SetZero(v bool)     { sr.zero = v }
func (sr *Status) SetCarry(v bool)    { sr.carry = v }
func (sr *Status) SetOverflow(v bool) { sr.overflow = v }
func (sr *Status) SetSaturate(v bool) { sr.saturate = v }

// InItBlock reports whether the next instruction executes conditionally
// under an active IT block.
func (sr *Status) InItBlock() bool {
	return sr.itMask != 0
}

// ITState returns the combined 8-bit IT state byte (condition in bits 7..4,
// mask in bits 3..0), as exposed on the PSR.
func (sr *Status) ITState() uint8 {
	return sr.itCond<<4 | sr.itMask
}

// SetITState installs a new 8-bit IT state, as decoded from an IT
// instruction or a PSR write.
func (sr *Status) SetITState(it uint8) {
	sr.itCond = it >> 4
	sr.itMask = it & 0xf
}

// pack assembles the raw 32-bit PSR word from the decoded flags and IT
// state, masked to the bits the architecture actually stores.
func (sr *Status) pack(arch Architecture) uint32 {
	var v uint32
	if sr.negative {
		v |= 1 << 31
	}
	if sr.zero {
		v |= 1 << 30
	}
	if sr.carry {
		v |= 1 << 29
	}
	if sr.overflow {
		v |= 1 << 28
	}
	if sr.saturate {
		v |= 1 << 27
	}
	it := sr.ITState()
	v |= uint32(it&0x3) << 25
	v |= uint32(it>>2) << 10
	return v & arch.psrMask()
}

// unpack decomposes a raw PSR write into flags and IT state, masked to the
// bits the architecture stores.
func (sr *Status) unpack(arch Architecture, v uint32) {
	v &= arch.psrMask()
	sr.negative = v&(1<<31) != 0
	sr.zero = v&(1<<30) != 0
	sr.carry = v&(1<<29) != 0
	sr.overflow = v&(1<<28) != 0
	sr.saturate = v&(1<<27) != 0

	if arch.supportsITBlocks() {
		low := uint8((v >> 25) & 0x3)
		high := uint8((v >> 10) & 0x3f)
		sr.SetITState(high<<2 | low)
	} else {
		sr.SetITState(0)
	}
}

// condition evaluates an ARM condition code against the current flags.
// "A7.3 Conditional execution" in the ARMv7-M architecture reference.
func (sr *Status) condition(cond uint8) bool {
	switch cond {
	case 0b0000: // EQ
		return sr.zero
	case 0b0001: // NE
		return !sr.zero
	case 0b0010: // CS
		return sr.carry
	case 0b0011: // CC
		return !sr.carry
	case 0b0100: // MI
		return sr.negative
	case 0b0101: // PL
		return !sr.negative
	case 0b0110: // VS
		return sr.overflow
	case 0b0111: // VC
		return !sr.overflow
	case 0b1000: // HI
		return sr.carry && !sr.zero
	case 0b1001: // LS
		return !sr.carry || sr.zero
	case 0b1010: // GE
		return sr.negative == sr.overflow
	case 0b1011: // LT
		return sr.negative != sr.overflow
	case 0b1100: // GT
		return !sr.zero && sr.negative == sr.overflow
	case 0b1101: // LE
		return sr.zero || sr.negative != sr.overflow
	case 0b1110: // AL
		return true
	default: // 0b1111 is unpredictable as a branch condition
		return true
	}
}

// EvaluateCondition evaluates cond, consulting and advancing the IT block
// state as a side effect. While inside an IT block the condition actually
// tested comes from itCond, not the instruction's own encoded condition
// field, per the ARMv7-M IT semantics; the caller passes the instruction's
// encoded condition only for non-IT conditional branches.
func (sr *Status) EvaluateCondition(arch Architecture, cond uint8) bool {
	if arch.supportsITBlocks() && sr.itMask != 0 {
		cond = sr.itCond
		result := sr.condition(cond)
		if sr.itMask&0x7 == 0 {
			sr.itCond = 0
			sr.itMask = 0
		} else {
			// the bit shifted out of itMask's top becomes itCond's new low
			// bit, so Else-suffixed instructions (ITE, ITTE, ...) test the
			// inverted condition.
			sr.itCond = (sr.itCond &^ 1) | (sr.itMask >> 3)
			sr.itMask = (sr.itMask << 1) & 0xf
		}
		return result
	}
	return sr.condition(cond)
}

// AddWithCarry computes x + y + carryIn as the ARM reference pseudocode
// ADCS does, returning the 32-bit sum along with the carry-out and signed
// overflow bits, using the 33-bit-sum technique: add the low 31 bits of
// each operand (plus carry) to get a carry into bit 31, then compare that
// against the carry produced by the full operand signs.
func AddWithCarry(x, y uint32, carryIn bool) (sum uint32, carryOut, overflow bool) {
	var c uint32
	if carryIn {
		c = 1
	}
	sum = x + y + c

	d := (x & 0x7fffffff) + (y & 0x7fffffff) + c
	bit31 := d >> 31
	e := bit31 + (x >> 31) + (y >> 31)
	carryOut = e&0x02 == 0x02
	overflow = (bit31^(e>>1))&0x01 == 0x01

	return sum, carryOut, overflow
}

// SetNZ sets the negative and zero flags from the result of an arithmetic or
// logical operation.
func (sr *Status) SetNZ(result uint32) {
	sr.negative = result&0x80000000 != 0
	sr.zero = result == 0
}
