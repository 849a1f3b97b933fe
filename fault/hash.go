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

package fault

import (
	"encoding/binary"
	"hash/fnv"
)

func hashInstructionFault(f InstructionFault) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], f.Time)
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], f.Address)
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], uint32(f.Iteration))
	h.Write(buf[:])
	h.Write(f.Manipulated[:f.InstrSize])
	if f.Model != nil {
		h.Write([]byte(f.Model.Name))
	}
	return h.Sum64()
}

func hashRegisterFault(f RegisterFault) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], f.Time)
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], uint32(f.Reg))
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], uint32(f.Iteration))
	h.Write(buf[:])
	binary.LittleEndian.PutUint32(buf[:], f.Manipulated)
	if f.Model != nil {
		h.Write([]byte(f.Model.Name))
	}
	return h.Sum64()
}
