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

// Package cpu describes the register file, program status register and
// architecture variants of the emulated core. It is the leaf of the
// dependency graph: decode, memory, emulator, snapshot, fault and explore
// all build on top of it, but it imports none of them.
package cpu

// Architecture selects the PSR mask and IT-state decode rules used when the
// PSR is written.
type Architecture int

const (
	ARMv6M Architecture = iota
	ARMv7M
	// ARMv7EM reuses the ARMv7-M PSR mask and decode tables. The additional
	// DSP/SIMD opcodes ARMv7E-M introduces are not decoded; they fail with
	// a decode error of kind Unsupported.
	ARMv7EM
)

func (a Architecture) String() string {
	switch a {
	case ARMv6M:
		return "ARMv6-M"
	case ARMv7M:
		return "ARMv7-M"
	case ARMv7EM:
		return "ARMv7E-M"
	default:
		return "unknown architecture"
	}
}

// psrMask returns the bits of a written PSR value that are actually stored;
// everything else reads back as zero.
func (a Architecture) psrMask() uint32 {
	switch a {
	case ARMv6M:
		return 0xF0000000
	default:
		return 0xFE00FC00
	}
}

// supportsITBlocks reports whether the architecture decodes the IT
// instruction and the if-then condition state machine. ARMv6-M has no IT
// instruction.
func (a Architecture) supportsITBlocks() bool {
	return a != ARMv6M
}
