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

package explore

import (
	"github.com/armory-go/faultsim/decode"
	"github.com/armory-go/faultsim/emulator"
)

// instructionSite is one (address, size) pair a permanent instruction fault
// may target.
type instructionSite struct {
	Address uint32
	Size    uint32
}

// gatherFaultableInstructions walks flash from its first address, decoding
// instruction sizes, and records every site not covered by an ignore-memory
// range. A site whose raw halfword(s) read as the erased-flash pattern
// (0xFFFF, or 0xFFFFFFFF for 4-byte instructions) is skipped, matching the
// source's treatment of unprogrammed flash.
func gatherFaultableInstructions(emu *emulator.Emulator, ctx *Context) []instructionSite {
	var sites []instructionSite

	if emu.Flash == nil {
		return sites
	}

	offset := emu.Flash.Offset
	total := uint32(len(emu.Flash.Bytes))

	var i uint32
	for i+2 <= total {
		addr := offset + i
		header := emu.Flash.Read(addr, 2)
		size := uint32(decode.InstructionSize(uint16(header[1])<<8 | uint16(header[0])))

		if i+size > total {
			break
		}

		erased := true
		full := emu.Flash.Read(addr, size)
		for _, b := range full {
			if b != 0xFF {
				erased = false
				break
			}
		}

		i += size

		if erased {
			continue
		}
		if ctx.inIgnoreMemoryRange(addr) {
			continue
		}

		sites = append(sites, instructionSite{Address: addr, Size: size})
	}

	return sites
}
