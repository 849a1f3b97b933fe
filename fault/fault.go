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

// InstructionFault is a concrete application of an InstructionFaultModel at
// one address and instant.
type InstructionFault struct {
	Model       *InstructionFaultModel
	Time        uint32
	Iteration   int
	Address     uint32
	InstrSize   uint8
	Original    [4]byte
	Manipulated [4]byte
}

// Less orders InstructionFaults by (time, address, iteration).
func (f InstructionFault) Less(g InstructionFault) bool {
	if f.Time != g.Time {
		return f.Time < g.Time
	}
	if f.Address != g.Address {
		return f.Address < g.Address
	}
	return f.Iteration < g.Iteration
}

// Equal compares every field, including the manipulated encoding.
func (f InstructionFault) Equal(g InstructionFault) bool {
	return f.Model == g.Model &&
		f.Time == g.Time &&
		f.Iteration == g.Iteration &&
		f.Address == g.Address &&
		f.InstrSize == g.InstrSize &&
		f.Original == g.Original &&
		f.Manipulated == g.Manipulated
}

// SameSite reports whether two instruction faults target the same address,
// regardless of when or how they mutate it. Used to detect overlapping
// permanent-fault scope (spec invariant: a combination never contains two
// instruction faults with overlapping permanent scope at the same address).
func (f InstructionFault) SameSite(g InstructionFault) bool {
	return f.Address == g.Address
}

// RegisterFault is a concrete application of a RegisterFaultModel to one
// register at one instant.
type RegisterFault struct {
	Model       *RegisterFaultModel
	Time        uint32
	Iteration   int
	Reg         int
	Original    uint32
	Manipulated uint32
}

// Less orders RegisterFaults by (time, reg, iteration).
func (f RegisterFault) Less(g RegisterFault) bool {
	if f.Time != g.Time {
		return f.Time < g.Time
	}
	if f.Reg != g.Reg {
		return f.Reg < g.Reg
	}
	return f.Iteration < g.Iteration
}

// Equal compares every field.
func (f RegisterFault) Equal(g RegisterFault) bool {
	return f.Model == g.Model &&
		f.Time == g.Time &&
		f.Iteration == g.Iteration &&
		f.Reg == g.Reg &&
		f.Original == g.Original &&
		f.Manipulated == g.Manipulated
}
