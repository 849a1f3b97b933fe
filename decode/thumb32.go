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

package decode

// decode32 covers the 32-bit Thumb-2 encodings this emulator executes: the
// long branch-with-link forms (which is what the classic "format 19"
// 16+16-bit BL/BLX pairing became once folded into the Thumb-2 escape
// values), load/store-multiple, data-processing-immediate, the exclusive
// load/store family (LDREX/STREX and their byte/halfword forms) and SDIV/
// UDIV. Coprocessor, SIMD, floating point, MOVW/MOVT, LDRD/STRD, TBB/TBH and
// the remaining data-processing-register encodings are out of scope; see
// DESIGN.md for the rationale.
//
// op1 is entirely determined by which of the three Thumb-2 escape prefixes
// (0b11101, 0b11110, 0b11111) introduced the instruction, so it splits the
// encoding space into exactly the three groups below.
func decode32(address uint32, hw1, hw2 uint16) (Instruction, error) {
	op1 := (hw1 >> 11) & 0x3 // 0b01, 0b10 or 0b11 (the escape values)
	op2 := (hw1 >> 4) & 0x7f

	switch {
	case op1 == 0b10 && hw2&(1<<15) != 0:
		return decodeBranchLink(hw1, hw2)
	case op1 == 0b01 && isLoadStoreExclusiveOp2(op2):
		return decodeLoadStoreExclusive(hw1, hw2)
	case op1 == 0b01 && op2&0b1100100 == 0:
		return decodeLoadStoreMultiple(hw1, hw2)
	case op1 == 0b11 && isDivideOp2(op2):
		return decodeDivide(hw1, hw2)
	case op1 == 0b10 && op2&0b0100000 == 0 && hw2&(1<<15) == 0:
		return decodeDataProcessingImmediate(hw1, hw2)
	default:
		return Instruction{}, unsupported(address, uint32(hw1)<<16|uint32(hw2))
	}
}

// decodeBranchLink covers BL (always) and the rare BLX-to-ARM variant
// (J1==J2==1 with the low bit forced clear); since this emulator never
// leaves Thumb state, BLX is treated identically to BL.
func decodeBranchLink(hw1, hw2 uint16) (Instruction, error) {
	s := uint32((hw1 >> 10) & 0x1)
	imm10 := uint32(hw1 & 0x3ff)
	j1 := uint32((hw2 >> 13) & 0x1)
	j2 := uint32((hw2 >> 11) & 0x1)
	imm11 := uint32(hw2 & 0x7ff)

	i1 := 1 - (j1 ^ s)
	i2 := 1 - (j2 ^ s)

	imm32 := s<<24 | i1<<23 | i2<<22 | imm10<<12 | imm11<<1
	if s != 0 {
		imm32 |= 0xFE000000
	}

	return Instruction{
		Mnemonic:    "BL",
		Imm:         imm32,
		OperandType: I,
	}, nil
}

func decodeLoadStoreMultiple(hw1, hw2 uint16) (Instruction, error) {
	l := hw1 & (1 << 4)
	rn := int(hw1 & 0xf)
	list := hw2

	mnemonic := Mnemonic("STMIA_W")
	if l != 0 {
		mnemonic = "LDMIA_W"
	}

	return Instruction{
		Mnemonic:     mnemonic,
		Rn:           rn,
		OperandType:  R,
		RegisterList: list,
		Flags:        Flags{Wback: true},
	}, nil
}

// isLoadStoreExclusiveOp2 reports whether op2 (hw1 bits 10:4) identifies one
// of LDREX, STREX, LDREXB/H or STREXB/H; all four share hw1 bits 11:8 ==
// 0b1000, leaving op2 == their 4-bit op nibble.
func isLoadStoreExclusiveOp2(op2 uint16) bool {
	switch op2 {
	case 0b0000100, 0b0000101, 0b0001100, 0b0001101:
		return true
	default:
		return false
	}
}

// decodeLoadStoreExclusive covers LDREX/STREX and their byte/halfword forms,
// wiring directly into the emulator's exclusive monitor
// (LoadExclusive/StoreExclusive in emulator/exclusive.go).
func decodeLoadStoreExclusive(hw1, hw2 uint16) (Instruction, error) {
	rn := int(hw1 & 0xf)
	op := (hw1 >> 4) & 0xf
	rt := int((hw2 >> 12) & 0xf)

	switch op {
	case 0b0101: // LDREX
		imm8 := uint32(hw2&0xff) << 2
		return Instruction{Mnemonic: "LDREX", Rd: rt, Rn: rn, Imm: imm8, OperandType: RRI}, nil
	case 0b0100: // STREX
		rd := int((hw2 >> 8) & 0xf)
		imm8 := uint32(hw2&0xff) << 2
		return Instruction{Mnemonic: "STREX", Rd: rd, Rn: rn, Rm: rt, Imm: imm8, OperandType: RRRI}, nil
	case 0b1101: // LDREXB / LDREXH
		mnemonic := Mnemonic("LDREXB")
		if (hw2>>4)&0xf == 0b0101 {
			mnemonic = "LDREXH"
		}
		return Instruction{Mnemonic: mnemonic, Rd: rt, Rn: rn, OperandType: RR}, nil
	case 0b1100: // STREXB / STREXH
		rd := int(hw2 & 0xf)
		mnemonic := Mnemonic("STREXB")
		if (hw2>>4)&0xf == 0b0101 {
			mnemonic = "STREXH"
		}
		return Instruction{Mnemonic: mnemonic, Rd: rd, Rn: rn, Rm: rt, OperandType: RRR}, nil
	default:
		return Instruction{}, unsupported(0, uint32(hw1)<<16|uint32(hw2))
	}
}

// isDivideOp2 reports whether op2 identifies SDIV (0b0111001) or UDIV
// (0b0111011); they differ only in bit 1.
func isDivideOp2(op2 uint16) bool {
	return op2 == 0b0111001 || op2 == 0b0111011
}

// decodeDivide covers SDIV/UDIV, the one Thumb-2 data-processing-register
// encoding this decoder supports; everything else in that space
// (multiply-accumulate, long multiply, SIMD) is out of scope.
func decodeDivide(hw1, hw2 uint16) (Instruction, error) {
	rn := int(hw1 & 0xf)
	rd := int((hw2 >> 8) & 0xf)
	rm := int(hw2 & 0xf)

	mnemonic := Mnemonic("SDIV")
	if (hw1>>4)&0x7f == 0b0111011 {
		mnemonic = "UDIV"
	}

	return Instruction{
		Mnemonic:    mnemonic,
		Rd:          rd,
		Rn:          rn,
		Rm:          rm,
		OperandType: RRR,
	}, nil
}

func decodeDataProcessingImmediate(hw1, hw2 uint16) (Instruction, error) {
	op := (hw1 >> 5) & 0xf
	rn := int(hw1 & 0xf)
	rd := int((hw2 >> 8) & 0xf)
	s := hw1&(1<<4) != 0

	i := uint32((hw1 >> 10) & 0x1)
	imm3 := uint32((hw2 >> 12) & 0x7)
	imm8 := uint32(hw2 & 0xff)
	imm12 := i<<11 | imm3<<8 | imm8

	mnemonics := [...]Mnemonic{
		"AND_IMM32", "BIC_IMM32", "ORR_IMM32", "ORN_IMM32",
		"EOR_IMM32", "", "", "",
		"ADD_IMM32", "", "ADC_IMM32", "SBC_IMM32",
		"", "SUB_IMM32", "RSB_IMM32", "",
	}
	mnemonic := mnemonics[op]
	if mnemonic == "" {
		mnemonic = "DATA_PROC_IMM32"
	}

	return Instruction{
		Mnemonic:    mnemonic,
		Rd:          rd,
		Rn:          rn,
		Imm:         imm12,
		OperandType: RRI,
		Flags:       Flags{S: s},
	}, nil
}
