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

import (
	"encoding/binary"

	"github.com/armory-go/faultsim/errors"
)

// Kind classifies why Decode failed to produce an Instruction.
type Kind int

const (
	// Undefined means the architecture itself has no meaning for this
	// encoding.
	Undefined Kind = iota
	// Unpredictable means the encoding is architecturally defined but the
	// current IT state makes its behavior unpredictable (e.g. a conditional
	// branch inside an IT block).
	Unpredictable
	// Unsupported means this implementation does not decode the encoding,
	// though the architecture may define it (floating point, SIMD,
	// coprocessor, MOVW/MOVT, LDRD/STRD, TBB/TBH and most
	// data-processing-register encodings beyond SDIV/UDIV are out of scope;
	// see DESIGN.md).
	Unsupported
)

// Error is returned by Decode on failure.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

func undefined(address uint32, opcode uint32) error {
	return &Error{Kind: Undefined, err: errors.Errorf(errors.UndefinedInstruction, opcode, address)}
}

func unpredictable(address uint32, opcode uint32) error {
	return &Error{Kind: Unpredictable, err: errors.Errorf(errors.UnpredictableInstruction, opcode, address)}
}

func unsupported(address uint32, opcode uint32) error {
	return &Error{Kind: Unsupported, err: errors.Errorf(errors.UnsupportedEncoding, opcode, address)}
}

// InstructionSize inspects bits 15..11 of the leading halfword to determine
// whether the full instruction is 2 or 4 bytes: the Thumb-2 escape values
// 0b11101, 0b11110 and 0b11111 mean a 4-byte instruction follows; any other
// value is a 2-byte Thumb instruction.
func InstructionSize(firstHalfword uint16) int {
	switch firstHalfword >> 11 {
	case 0b11101, 0b11110, 0b11111:
		return 4
	default:
		return 2
	}
}

// Decode parses the instruction at address from bytes (which must contain
// at least InstructionSize(firstHalfword) bytes), given whether an IT block
// is currently active. It never returns a
// partial parse: either a fully populated Instruction or an error classified
// by Kind.
func Decode(address uint32, bytes []byte, itActive bool) (Instruction, error) {
	if len(bytes) < 2 {
		return Instruction{}, &Error{Kind: Undefined, err: errors.Errorf(errors.TruncatedInstruction, address)}
	}

	opcode := binary.LittleEndian.Uint16(bytes)
	size := InstructionSize(opcode)

	if size == 4 {
		if len(bytes) < 4 {
			return Instruction{}, &Error{Kind: Undefined, err: errors.Errorf(errors.TruncatedInstruction, address)}
		}
		opcode2 := binary.LittleEndian.Uint16(bytes[2:])
		in, err := decode32(address, opcode, opcode2)
		if err != nil {
			return Instruction{}, err
		}
		in.Address = address
		in.Size = 4
		return in, nil
	}

	in, err := decode16(address, opcode, itActive)
	if err != nil {
		return Instruction{}, err
	}
	in.Address = address
	in.Size = 2
	return in, nil
}
