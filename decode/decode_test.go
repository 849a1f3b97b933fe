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

package decode_test

import (
	"testing"

	"github.com/armory-go/faultsim/decode"
	"github.com/armory-go/faultsim/test"
)

func TestInstructionSize(t *testing.T) {
	test.Equate(t, decode.InstructionSize(0xbf00), 2) // NOP
	test.Equate(t, decode.InstructionSize(0x4770), 2) // BX LR
	test.Equate(t, decode.InstructionSize(0xf000), 4) // BL first halfword
	test.Equate(t, decode.InstructionSize(0xe8bd), 4) // POP.W
	test.Equate(t, decode.InstructionSize(0xffff), 4)
}

func TestDecodeNOP(t *testing.T) {
	in, err := decode.Decode(0x08000000, []byte{0x00, 0xbf}, false)
	test.ExpectSuccess(t, err == nil)
	test.Equate(t, in.Size, uint8(2))
}

func TestDecodeBXLR(t *testing.T) {
	in, err := decode.Decode(0x08000004, []byte{0x70, 0x47}, false)
	test.ExpectSuccess(t, err == nil)
	test.Equate(t, in.Mnemonic, decode.Mnemonic("BX"))
	test.Equate(t, in.Rm, 14)
}

func TestDecodeNeverReturnsPartialParse(t *testing.T) {
	// an encoding this implementation does not support must still report a
	// complete, correctly-sized failure rather than a truncated result
	in, err := decode.Decode(0x08000008, []byte{0x00, 0xee, 0x00, 0x00}, false)
	test.ExpectFailure(t, err == nil)
	test.Equate(t, in, decode.Instruction{})

	var derr *decode.Error
	test.ExpectSuccess(t, asDecodeError(err, &derr))
}

func asDecodeError(err error, target **decode.Error) bool {
	de, ok := err.(*decode.Error)
	if !ok {
		return false
	}
	*target = de
	return true
}

func TestDecodeConditionalBranchUnpredictableInIT(t *testing.T) {
	_, err := decode.Decode(0x0800000c, []byte{0x00, 0xd0}, true)
	test.ExpectFailure(t, err == nil)
	var derr *decode.Error
	test.ExpectSuccess(t, asDecodeError(err, &derr))
	test.Equate(t, derr.Kind, decode.Unpredictable)
}

func TestDecodeBranchLinkImmediate(t *testing.T) {
	// BL with a small positive offset: hw1 = 0xf000, hw2 = 0xf802 (offset 4)
	in, err := decode.Decode(0x08000010, []byte{0x00, 0xf0, 0x02, 0xf8}, false)
	test.ExpectSuccess(t, err == nil)
	test.Equate(t, in.Size, uint8(4))
	test.Equate(t, in.Mnemonic, decode.Mnemonic("BL"))
}
