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

package cpu

// CCR bit positions consulted by the emulator for unaligned access and
// divide-by-zero trapping.
const (
	CCRUnalignedTrapDisable = 1 << 3
	CCRDivByZeroTrap        = 1 << 4
)

// State is the full architectural state of the core beyond memory: the
// register file, the exclusive monitor address, the fault/control registers
// and the monotonically increasing instruction-retirement counter.
type State struct {
	Registers *RegisterFile

	ExclusiveAddress uint32
	ExclusiveValid   bool

	CCR uint32

	PRIMASK   uint8
	FAULTMASK uint8
	BASEPRI   uint8
	CONTROL   uint8

	// Time is the number of instructions retired since the core was
	// constructed or last reset.
	Time uint32
}

// NewState creates a fresh, zeroed CPU state for the given architecture.
func NewState(arch Architecture) *State {
	return &State{
		Registers: NewRegisterFile(arch),
	}
}

// FrozenState is a value (non-pointer) copy of everything State points to,
// used by snapshot so that a capture does not alias the live state.
type FrozenState struct {
	registers RegisterFile

	exclusiveAddress uint32
	exclusiveValid   bool

	ccr uint32

	primask   uint8
	faultmask uint8
	basepri   uint8
	control   uint8

	time uint32
}

// Freeze captures a value copy of the state, safe to store and compare
// without aliasing the live register file.
func (s *State) Freeze() FrozenState {
	return FrozenState{
		registers:        s.Registers.Snapshot(),
		exclusiveAddress: s.ExclusiveAddress,
		exclusiveValid:   s.ExclusiveValid,
		ccr:              s.CCR,
		primask:          s.PRIMASK,
		faultmask:        s.FAULTMASK,
		basepri:          s.BASEPRI,
		control:          s.CONTROL,
		time:             s.Time,
	}
}

// Thaw restores the state from a previously captured FrozenState.
func (s *State) Thaw(f FrozenState) {
	s.Registers.Restore(f.registers)
	s.ExclusiveAddress = f.exclusiveAddress
	s.ExclusiveValid = f.exclusiveValid
	s.CCR = f.ccr
	s.PRIMASK = f.primask
	s.FAULTMASK = f.faultmask
	s.BASEPRI = f.basepri
	s.CONTROL = f.control
	s.Time = f.time
}

// Clone returns a deep, independent copy of the state.
func (s *State) Clone() *State {
	c := &State{
		Registers:        NewRegisterFile(s.Registers.Architecture()),
		ExclusiveAddress: s.ExclusiveAddress,
		ExclusiveValid:   s.ExclusiveValid,
		CCR:              s.CCR,
		PRIMASK:          s.PRIMASK,
		FAULTMASK:        s.FAULTMASK,
		BASEPRI:          s.BASEPRI,
		CONTROL:          s.CONTROL,
		Time:             s.Time,
	}
	c.Registers.Restore(s.Registers.Snapshot())
	return c
}
