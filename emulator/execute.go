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

// branchWritePC sets PC to a half-word aligned target.
func (e *Emulator) branchWritePC(addr uint32) {
	e.WriteRegister(cpu.PC, addr&^1)
}

// bxWritePC performs an interworking branch. This emulator never leaves
// Thumb state, so the low bit of addr is required to be set (Thumb); a
// clear low bit is architecturally a request to switch to ARM state, which
// this core cannot honor and reports as a hard fault.
func (e *Emulator) bxWritePC(addr uint32) ReturnCode {
	if addr&1 == 0 {
		return HardFault
	}
	e.branchWritePC(addr)
	return OK
}

// readReg/writeReg read and write a register while firing the relevant
// hooks, wrapping cpu's register indices for execute handlers.
func (e *Emulator) readReg(reg int) uint32  { return e.ReadRegister(reg) }
func (e *Emulator) writeReg(reg int, v uint32) { e.WriteRegister(reg, v) }

// execute dispatches a decoded instruction by mnemonic. It returns the
// ReturnCode to latch if execution cannot proceed normally (OK otherwise).
// Handlers do not advance PC for non-branching instructions: after execute
// returns, the caller advances PC by in.Size only if the handler left PC
// unchanged, which is why handlers below only ever deal with explicit
// control transfers.
func (e *Emulator) execute(in decode.Instruction) ReturnCode {
	sr := e.State.Registers.Status()

	switch in.Mnemonic {
	case "NOP", "YIELD", "WFE", "WFI", "SEV":
		return OK

	case "IT":
		sr.SetITState(in.Condition<<4 | uint8(in.Imm))
		return OK

	case "B_COND":
		if sr.EvaluateCondition(e.Arch, in.Condition) {
			e.branchWritePC(e.readReg(cpu.PC) + in.Imm)
		}
		return OK

	case "B":
		e.branchWritePC(e.readReg(cpu.PC) + in.Imm)
		return OK

	case "BL":
		e.writeReg(cpu.LR, (in.Address+uint32(in.Size))|1)
		e.branchWritePC(e.readReg(cpu.PC) + in.Imm)
		return OK

	case "BX":
		return e.bxWritePC(e.readReg(in.Rm))

	case "BLX_REG":
		target := e.readReg(in.Rm)
		e.writeReg(cpu.LR, (in.Address+uint32(in.Size))|1)
		return e.bxWritePC(target)

	case "MOV", "MOV_HI":
		var v uint32
		if in.OperandType == decode.RI {
			v = in.Imm
		} else {
			v = e.readReg(in.Rm)
		}
		e.writeReg(in.Rd, v)
		if in.Flags.S {
			sr.SetNZ(v)
		}
		return OK

	case "CMP", "CMP_REG", "CMP_HI":
		var b uint32
		if in.OperandType == decode.RI {
			b = in.Imm
		} else {
			b = e.readReg(in.Rm)
		}
		a := e.readReg(in.Rn)
		result, carry, overflow := cpu.AddWithCarry(a, ^b, true)
		sr.SetNZ(result)
		sr.SetCarry(carry)
		sr.SetOverflow(overflow)
		return OK

	case "CMN":
		a := e.readReg(in.Rd)
		b := e.readReg(in.Rm)
		result, carry, overflow := cpu.AddWithCarry(a, b, false)
		sr.SetNZ(result)
		sr.SetCarry(carry)
		sr.SetOverflow(overflow)
		return OK

	case "TST":
		result := e.readReg(in.Rd) & e.readReg(in.Rm)
		sr.SetNZ(result)
		return OK

	case "ADD", "ADD_HI", "ADD_IMM32":
		var a, b uint32
		a = e.readReg(in.Rn)
		if in.OperandType == decode.RRI || in.OperandType == decode.RI {
			b = in.Imm
		} else {
			b = e.readReg(in.Rm)
		}
		result, carry, overflow := cpu.AddWithCarry(a, b, false)
		e.writeReg(in.Rd, result)
		if in.Flags.S {
			sr.SetNZ(result)
			sr.SetCarry(carry)
			sr.SetOverflow(overflow)
		}
		return OK

	case "SUB", "SUB_IMM32", "RSB_IMM32":
		a := e.readReg(in.Rn)
		var b uint32
		if in.OperandType == decode.RRI || in.OperandType == decode.RI {
			b = in.Imm
		} else {
			b = e.readReg(in.Rm)
		}
		if in.Mnemonic == "RSB_IMM32" {
			a, b = b, a
		}
		result, carry, overflow := cpu.AddWithCarry(a, ^b, true)
		e.writeReg(in.Rd, result)
		if in.Flags.S {
			sr.SetNZ(result)
			sr.SetCarry(carry)
			sr.SetOverflow(overflow)
		}
		return OK

	case "ADD_SP":
		e.writeReg(cpu.SP, e.readReg(cpu.SP)+in.Imm)
		return OK

	case "SUB_SP":
		e.writeReg(cpu.SP, e.readReg(cpu.SP)-in.Imm)
		return OK

	case "AND", "AND_IMM32":
		v := e.readReg(in.Rn) & e.operand2(in)
		e.writeReg(in.Rd, v)
		if in.Flags.S {
			sr.SetNZ(v)
		}
		return OK

	case "ORR", "ORR_IMM32", "ORN_IMM32":
		op2 := e.operand2(in)
		if in.Mnemonic == "ORN_IMM32" {
			op2 = ^op2
		}
		v := e.readReg(in.Rn) | op2
		e.writeReg(in.Rd, v)
		if in.Flags.S {
			sr.SetNZ(v)
		}
		return OK

	case "EOR", "EOR_IMM32":
		v := e.readReg(in.Rn) ^ e.operand2(in)
		e.writeReg(in.Rd, v)
		if in.Flags.S {
			sr.SetNZ(v)
		}
		return OK

	case "BIC", "BIC_IMM32":
		v := e.readReg(in.Rn) &^ e.operand2(in)
		e.writeReg(in.Rd, v)
		if in.Flags.S {
			sr.SetNZ(v)
		}
		return OK

	case "MVN":
		v := ^e.readReg(in.Rm)
		e.writeReg(in.Rd, v)
		if in.Flags.S {
			sr.SetNZ(v)
		}
		return OK

	case "NEG":
		result, carry, overflow := cpu.AddWithCarry(0, ^e.readReg(in.Rm), true)
		e.writeReg(in.Rd, result)
		sr.SetNZ(result)
		sr.SetCarry(carry)
		sr.SetOverflow(overflow)
		return OK

	case "MUL":
		v := e.readReg(in.Rd) * e.readReg(in.Rm)
		e.writeReg(in.Rd, v)
		if in.Flags.S {
			sr.SetNZ(v)
		}
		return OK

	case "ADC":
		a, b := e.readReg(in.Rd), e.readReg(in.Rm)
		result, carry, overflow := cpu.AddWithCarry(a, b, sr.Carry())
		e.writeReg(in.Rd, result)
		sr.SetNZ(result)
		sr.SetCarry(carry)
		sr.SetOverflow(overflow)
		return OK

	case "SBC":
		a, b := e.readReg(in.Rd), e.readReg(in.Rm)
		result, carry, overflow := cpu.AddWithCarry(a, ^b, sr.Carry())
		e.writeReg(in.Rd, result)
		sr.SetNZ(result)
		sr.SetCarry(carry)
		sr.SetOverflow(overflow)
		return OK

	case "LSL_SHIFTIMM":
		return e.shiftInstruction(in, in.ShiftType, sr)
	case "LSL_REG":
		return e.shiftInstruction(in, decode.LSL, sr)
	case "LSR":
		return e.shiftInstruction(in, decode.LSR, sr)
	case "LSR_REG":
		return e.shiftInstruction(in, decode.LSR, sr)
	case "ASR":
		return e.shiftInstruction(in, decode.ASR, sr)
	case "ASR_REG":
		return e.shiftInstruction(in, decode.ASR, sr)
	case "ROR_REG":
		return e.shiftInstruction(in, decode.ROR, sr)

	case "LDR_IMM", "LDR_REG", "LDR_SP", "LDR_PC":
		return e.load(in, 4, false)
	case "LDRB_IMM", "LDRB_REG":
		return e.load(in, 1, false)
	case "LDRH_IMM":
		return e.load(in, 2, false)
	case "LDRSB_REG":
		return e.load(in, 1, true)

	case "STR_IMM", "STR_REG", "STR_SP":
		return e.store(in, 4)
	case "STRB_IMM", "STRB_REG":
		return e.store(in, 1)
	case "STRH_IMM", "STRH_REG":
		return e.store(in, 2)

	case "ADR":
		base := e.readReg(in.Rn)
		if in.Rn == cpu.PC {
			base &^= 0x3
		}
		e.writeReg(in.Rd, base+in.Imm)
		return OK

	case "PUSH":
		return e.push(in)
	case "POP":
		return e.pop(in)
	case "STMIA", "STMIA_W":
		return e.stm(in)
	case "LDMIA", "LDMIA_W":
		return e.ldm(in)

	case "SVC":
		return OK

	case "LDREX":
		return e.loadExclusiveInstruction(in, 4)
	case "LDREXB":
		return e.loadExclusiveInstruction(in, 1)
	case "LDREXH":
		return e.loadExclusiveInstruction(in, 2)
	case "STREX":
		return e.storeExclusiveInstruction(in, 4)
	case "STREXB":
		return e.storeExclusiveInstruction(in, 1)
	case "STREXH":
		return e.storeExclusiveInstruction(in, 2)

	case "SDIV":
		return e.divideInstruction(in, true)
	case "UDIV":
		return e.divideInstruction(in, false)

	default:
		return Unsupported
	}
}

// operand2 resolves the second ALU operand for formats that carry either an
// immediate (Thumb-2 modified immediate) or a register.
func (e *Emulator) operand2(in decode.Instruction) uint32 {
	if in.OperandType == decode.RRI {
		v, _ := thumbExpandImmC(in.Imm, e.State.Registers.Status().Carry())
		return v
	}
	return e.readReg(in.Rm)
}

func (e *Emulator) shiftInstruction(in decode.Instruction, typ decode.Shift, sr *cpu.Status) ReturnCode {
	var amount uint32
	var v uint32
	if in.OperandType == decode.RRI {
		v = e.readReg(in.Rn)
		amount = in.ShiftAmount
	} else {
		v = e.readReg(in.Rd)
		amount = e.readReg(in.Rm) & 0xff
	}
	result, carry := shiftC(v, typ, amount, sr.Carry())
	e.writeReg(in.Rd, result)
	if in.Flags.S {
		sr.SetNZ(result)
		sr.SetCarry(carry)
	}
	return OK
}
