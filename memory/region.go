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

// Package memory implements the flash and RAM regions an emulator is built
// from: flat byte arrays with an access mask and a half-open containment
// check.
package memory

import "fmt"

// Access describes what operations a region permits.
type Access struct {
	Read    bool
	Write   bool
	Execute bool
}

// Region is a single contiguous, flat memory region.
type Region struct {
	Offset uint32
	Size   uint32
	Bytes  []byte
	Access Access
}

// NewFlash creates a read-execute region initialized to 0xFF, matching the
// erased state of real flash memory.
func NewFlash(offset, size uint32) *Region {
	b := make([]byte, size)
	for i := range b {
		b[i] = 0xFF
	}
	return &Region{
		Offset: offset,
		Size:   size,
		Bytes:  b,
		Access: Access{Read: true, Execute: true},
	}
}

// NewRAM creates a read-write region zeroed on construction.
func NewRAM(offset, size uint32) *Region {
	return &Region{
		Offset: offset,
		Size:   size,
		Bytes:  make([]byte, size),
		Access: Access{Read: true, Write: true},
	}
}

// Contains reports whether the half-open span [addr, addr+length) lies
// entirely within the region.
func (r *Region) Contains(addr, length uint32) bool {
	if length == 0 {
		return addr >= r.Offset && addr < r.Offset+r.Size
	}
	end := addr + length
	return addr >= r.Offset && end <= r.Offset+r.Size && end > addr
}

// Read copies length bytes starting at addr into a new slice. The caller
// must have already validated Contains and Access.Read.
func (r *Region) Read(addr, length uint32) []byte {
	off := addr - r.Offset
	out := make([]byte, length)
	copy(out, r.Bytes[off:off+length])
	return out
}

// Write copies data into the region starting at addr. The caller must have
// already validated Contains and Access.Write.
func (r *Region) Write(addr uint32, data []byte) {
	off := addr - r.Offset
	copy(r.Bytes[off:off+uint32(len(data))], data)
}

// Clone returns a deep, independent copy of the region.
func (r *Region) Clone() *Region {
	b := make([]byte, len(r.Bytes))
	copy(b, r.Bytes)
	return &Region{
		Offset: r.Offset,
		Size:   r.Size,
		Bytes:  b,
		Access: r.Access,
	}
}

// Overlaps reports whether two regions share any address.
func (r *Region) Overlaps(other *Region) bool {
	return r.Offset < other.Offset+other.Size && other.Offset < r.Offset+r.Size
}

func (r *Region) String() string {
	return fmt.Sprintf("[%#08x-%#08x)", r.Offset, r.Offset+r.Size)
}
