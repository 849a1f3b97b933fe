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

// decode16 dispatches a 16-bit Thumb opcode to the format-specific decoder,
// working from the most specific bit pattern (format 19's 4-byte escape has
// already been handled by the caller) down to the least. This mirrors the
// classic "formats 1 through 18" breakdown of the Thumb instruction set.
func decode16(address uint32, opcode uint16, itActive bool) (Instruction, error) {
	switch {
	case opcode>>13 == 0b000 && opcode>>11 != 0b00011:
		return decodeMoveShiftedRegister(opcode)
	case opcode>>11 == 0b00011:
		return decodeAddSubtract(opcode)
	case opcode>>13 == 0b001:
		return decodeMoveCompareAddSubtractImmediate(opcode)
	case opcode>>10 == 0b010000:
		return decodeALUOperations(opcode)
	case opcode>>10 == 0b010001:
		return decodeHiRegisterOps(address, opcode)
	case opcode>>11 == 0b01001:
		return decodePCRelativeLoad(opcode)
	case opcode>>12 == 0b0101:
		return decodeLoadStoreRegisterOffset(opcode)
	case opcode>>13 == 0b011:
		return decodeLoadStoreImmediateOffset(opcode)
	case opcode>>12 == 0b1000:
		return decodeLoadStoreHalfword(opcode)
	case opcode>>12 == 0b1001:
		return decodeSPRelativeLoadStore(opcode)
	case opcode>>12 == 0b1010:
		return decodeLoadAddress(opcode)
	case opcode>>8 == 0b10110000:
		return decodeAddOffsetToSP(opcode)
	case opcode>>8 == 0b10111111:
		return decodeHintsAndIT(opcode)
	case opcode>>12 == 0b1011 && (opcode>>9)&0x3 == 0b10:
		return decodePushPopRegisters(opcode)
	case opcode>>12 == 0b1100:
		return decodeMultipleLoadStore(opcode)
	case opcode>>8 == 0b11011111:
		return decodeSoftwareInterrupt(opcode)
	case opcode>>12 == 0b1101:
		return decodeConditionalBranch(address, opcode, itActive)
	case opcode>>11 == 0b11100:
		return decodeUnconditionalBranch(address, opcode)
	default:
		return Instruction{}, undefined(address, uint32(opcode))
	}
}

func decodeMoveShiftedRegister(opcode uint16) (Instruction, error) {
	op := (opcode >> 11) & 0x3
	if op == 0b11 {
		return Instruction{}, undefined(0, uint32(opcode))
	}
	shifts := [...]Shift{LSL, LSR, ASR}
	return Instruction{
		Mnemonic:    "LSL_SHIFTIMM",
		ShiftType:   shifts[op],
		ShiftAmount: uint32((opcode >> 6) & 0x1f),
		Rd:          int(opcode & 0x7),
		Rn:          int((opcode >> 3) & 0x7),
		OperandType: RRI,
		Flags:       Flags{S: true},
	}, nil
}

func decodeAddSubtract(opcode uint16) (Instruction, error) {
	immediate := opcode&(1<<10) != 0
	subtract := opcode&(1<<9) != 0
	rn := int((opcode >> 3) & 0x7)
	rd := int(opcode & 0x7)
	rmOrImm := uint32((opcode >> 6) & 0x7)

	mnemonic := Mnemonic("ADD")
	if subtract {
		mnemonic = "SUB"
	}

	if immediate {
		return Instruction{
			Mnemonic:    mnemonic,
			Rd:          rd,
			Rn:          rn,
			Imm:         rmOrImm,
			OperandType: RRI,
			Flags:       Flags{S: true},
		}, nil
	}
	return Instruction{
		Mnemonic:    mnemonic,
		Rd:          rd,
		Rn:          rn,
		Rm:          int(rmOrImm),
		OperandType: RRR,
		Flags:       Flags{S: true},
	}, nil
}

func decodeMoveCompareAddSubtractImmediate(opcode uint16) (Instruction, error) {
	op := (opcode >> 11) & 0x3
	rd := int((opcode >> 8) & 0x7)
	imm := uint32(opcode & 0xff)
	mnemonics := [...]Mnemonic{"MOV", "CMP", "ADD", "SUB"}
	return Instruction{
		Mnemonic:    mnemonics[op],
		Rd:          rd,
		Rn:          rd,
		Imm:         imm,
		OperandType: RI,
		Flags:       Flags{S: true},
	}, nil
}

func decodeALUOperations(opcode uint16) (Instruction, error) {
	op := (opcode >> 6) & 0xf
	rd := int(opcode & 0x7)
	rm := int((opcode >> 3) & 0x7)
	mnemonics := [...]Mnemonic{
		"AND", "EOR", "LSL_REG", "LSR_REG", "ASR_REG", "ADC", "SBC", "ROR_REG",
		"TST", "NEG", "CMP_REG", "CMN", "ORR", "MUL", "BIC", "MVN",
	}
	return Instruction{
		Mnemonic:    mnemonics[op],
		Rd:          rd,
		Rn:          rd,
		Rm:          rm,
		OperandType: RRR,
		Flags:       Flags{S: true},
	}, nil
}

func decodeHiRegisterOps(address uint32, opcode uint16) (Instruction, error) {
	op := (opcode >> 8) & 0x3
	h1 := opcode & (1 << 7)
	h2 := opcode & (1 << 6)
	rd := int(opcode&0x7) | boolToInt(h1 != 0)<<3
	rm := int((opcode>>3)&0x7) | boolToInt(h2 != 0)<<3

	switch op {
	case 0b00:
		return Instruction{Mnemonic: "ADD_HI", Rd: rd, Rn: rd, Rm: rm, OperandType: RRR}, nil
	case 0b01:
		return Instruction{Mnemonic: "CMP_HI", Rn: rd, Rm: rm, OperandType: RR}, nil
	case 0b10:
		return Instruction{Mnemonic: "MOV_HI", Rd: rd, Rm: rm, OperandType: RR}, nil
	case 0b11:
		mnemonic := Mnemonic("BX")
		if h1 != 0 {
			mnemonic = "BLX_REG"
		}
		return Instruction{Mnemonic: mnemonic, Rm: rm, OperandType: R}, nil
	}
	return Instruction{}, undefined(address, uint32(opcode))
}

func decodePCRelativeLoad(opcode uint16) (Instruction, error) {
	return Instruction{
		Mnemonic:    "LDR_PC",
		Rd:          int((opcode >> 8) & 0x7),
		Rn:          15,
		Imm:         uint32(opcode&0xff) << 2,
		OperandType: RRI,
		Flags:       Flags{Add: true},
	}, nil
}

func decodeLoadStoreRegisterOffset(opcode uint16) (Instruction, error) {
	signExtend := opcode&(1<<9) != 0
	l := opcode & (1 << 11)
	b := opcode & (1 << 10)
	rm := int((opcode >> 6) & 0x7)
	rn := int((opcode >> 3) & 0x7)
	rd := int(opcode & 0x7)

	var mnemonic Mnemonic
	switch {
	case signExtend && l == 0:
		mnemonic = "STRH_REG"
	case signExtend:
		mnemonic = "LDRSB_REG"
	case l != 0 && b != 0:
		mnemonic = "LDRB_REG"
	case l != 0:
		mnemonic = "LDR_REG"
	case b != 0:
		mnemonic = "STRB_REG"
	default:
		mnemonic = "STR_REG"
	}

	return Instruction{
		Mnemonic:    mnemonic,
		Rd:          rd,
		Rn:          rn,
		Rm:          rm,
		OperandType: RRR,
		Flags:       Flags{Add: true},
	}, nil
}

func decodeLoadStoreImmediateOffset(opcode uint16) (Instruction, error) {
	b := opcode & (1 << 12)
	l := opcode & (1 << 11)
	imm := uint32((opcode >> 6) & 0x1f)
	rn := int((opcode >> 3) & 0x7)
	rd := int(opcode & 0x7)

	if b == 0 {
		imm <<= 2
	}

	var mnemonic Mnemonic
	switch {
	case b != 0 && l != 0:
		mnemonic = "LDRB_IMM"
	case b != 0:
		mnemonic = "STRB_IMM"
	case l != 0:
		mnemonic = "LDR_IMM"
	default:
		mnemonic = "STR_IMM"
	}

	return Instruction{
		Mnemonic:    mnemonic,
		Rd:          rd,
		Rn:          rn,
		Imm:         imm,
		OperandType: RRI,
		Flags:       Flags{Add: true, Index: true},
	}, nil
}

func decodeLoadStoreHalfword(opcode uint16) (Instruction, error) {
	l := opcode & (1 << 11)
	imm := uint32((opcode>>6)&0x1f) << 1
	rn := int((opcode >> 3) & 0x7)
	rd := int(opcode & 0x7)

	mnemonic := Mnemonic("STRH_IMM")
	if l != 0 {
		mnemonic = "LDRH_IMM"
	}

	return Instruction{
		Mnemonic:    mnemonic,
		Rd:          rd,
		Rn:          rn,
		Imm:         imm,
		OperandType: RRI,
		Flags:       Flags{Add: true, Index: true},
	}, nil
}

func decodeSPRelativeLoadStore(opcode uint16) (Instruction, error) {
	l := opcode & (1 << 11)
	rd := int((opcode >> 8) & 0x7)
	imm := uint32(opcode&0xff) << 2

	mnemonic := Mnemonic("STR_SP")
	if l != 0 {
		mnemonic = "LDR_SP"
	}

	return Instruction{
		Mnemonic:    mnemonic,
		Rd:          rd,
		Rn:          13,
		Imm:         imm,
		OperandType: RRI,
		Flags:       Flags{Add: true, Index: true},
	}, nil
}

func decodeLoadAddress(opcode uint16) (Instruction, error) {
	sp := opcode & (1 << 11)
	rd := int((opcode >> 8) & 0x7)
	imm := uint32(opcode&0xff) << 2

	rn := 15
	if sp != 0 {
		rn = 13
	}

	return Instruction{
		Mnemonic:    "ADR",
		Rd:          rd,
		Rn:          rn,
		Imm:         imm,
		OperandType: RRI,
	}, nil
}

func decodeAddOffsetToSP(opcode uint16) (Instruction, error) {
	negative := opcode&(1<<7) != 0
	imm := uint32(opcode&0x7f) << 2
	mnemonic := Mnemonic("ADD_SP")
	if negative {
		mnemonic = "SUB_SP"
	}
	return Instruction{
		Mnemonic:    mnemonic,
		Rd:          13,
		Rn:          13,
		Imm:         imm,
		OperandType: RRI,
	}, nil
}

func decodePushPopRegisters(opcode uint16) (Instruction, error) {
	l := opcode & (1 << 11)
	r := opcode & (1 << 8)
	list := uint16(opcode & 0xff)

	mnemonic := Mnemonic("PUSH")
	if l != 0 {
		mnemonic = "POP"
		if r != 0 {
			list |= 1 << 15 // PC
		}
	} else if r != 0 {
		list |= 1 << 14 // LR
	}

	return Instruction{
		Mnemonic:     mnemonic,
		OperandType:  NONE,
		RegisterList: list,
	}, nil
}

func decodeMultipleLoadStore(opcode uint16) (Instruction, error) {
	l := opcode & (1 << 11)
	rn := int((opcode >> 8) & 0x7)
	list := uint16(opcode & 0xff)

	mnemonic := Mnemonic("STMIA")
	if l != 0 {
		mnemonic = "LDMIA"
	}

	return Instruction{
		Mnemonic:     mnemonic,
		Rn:           rn,
		OperandType:  R,
		RegisterList: list,
		Flags:        Flags{Wback: true},
	}, nil
}

func decodeConditionalBranch(address uint32, opcode uint16, itActive bool) (Instruction, error) {
	cond := uint8((opcode >> 8) & 0xf)
	if cond == 0b1111 {
		// software interrupt handled separately (0b11011111 full byte); any
		// other use of 0b1111 here is SWI territory already routed away, so
		// reaching this with cond==1111 means the caller mis-dispatched.
		return Instruction{}, undefined(address, uint32(opcode))
	}
	if cond == 0b1110 {
		return Instruction{}, undefined(address, uint32(opcode))
	}
	if itActive {
		return Instruction{}, unpredictable(address, uint32(opcode))
	}

	offset := int8(opcode & 0xff)
	return Instruction{
		Mnemonic:    "B_COND",
		Condition:   cond,
		Imm:         uint32(int32(offset) * 2),
		OperandType: I,
	}, nil
}

func decodeSoftwareInterrupt(opcode uint16) (Instruction, error) {
	return Instruction{
		Mnemonic:    "SVC",
		Imm:         uint32(opcode & 0xff),
		OperandType: I,
	}, nil
}

func decodeUnconditionalBranch(address uint32, opcode uint16) (Instruction, error) {
	offset := int16(opcode<<5) >> 4
	return Instruction{
		Mnemonic:    "B",
		Imm:         uint32(int32(offset)),
		OperandType: I,
	}, nil
}

func decodeHintsAndIT(opcode uint16) (Instruction, error) {
	cond := uint8((opcode >> 4) & 0xf)
	mask := uint8(opcode & 0xf)

	if mask != 0 {
		return Instruction{
			Mnemonic:    "IT",
			Condition:   cond,
			Imm:         uint32(mask),
			OperandType: I,
		}, nil
	}

	hints := [...]Mnemonic{"NOP", "YIELD", "WFE", "WFI", "SEV"}
	mnemonic := Mnemonic("NOP")
	if int(cond) < len(hints) {
		mnemonic = hints[cond]
	}
	return Instruction{Mnemonic: mnemonic, OperandType: NONE}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
