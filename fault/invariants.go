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

import curated "github.com/armory-go/faultsim/errors"

// CanAddInstructionFault reports whether f may be appended to c without
// violating the "no two instruction faults with overlapping permanent scope
// at the same address" invariant. Only permanent faults are checked for
// overlap: two transient faults may legitimately target the same address at
// different times.
func (c *FaultCombination) CanAddInstructionFault(f InstructionFault) bool {
	if f.Model == nil || f.Model.Lifetime != Permanent {
		return true
	}
	for _, existing := range c.instructionFaults {
		if existing.Model != nil && existing.Model.Lifetime == Permanent && existing.SameSite(f) {
			return false
		}
	}
	return true
}

// CanAddRegisterFault reports whether f may be appended to c without two
// register faults landing on the same register at the same time.
func (c *FaultCombination) CanAddRegisterFault(f RegisterFault) bool {
	for _, existing := range c.registerFaults {
		if existing.Reg == f.Reg && existing.Time == f.Time {
			return false
		}
	}
	return true
}

// Validate returns a curated error if c violates either invariant. It is
// O(n^2) in the number of faults, which is acceptable since combinations are
// bounded by the small cap K (spec.md §4.7).
func (c *FaultCombination) Validate() error {
	for i, f := range c.instructionFaults {
		if f.Model != nil && f.Model.Lifetime == Permanent {
			for _, g := range c.instructionFaults[i+1:] {
				if g.Model != nil && g.Model.Lifetime == Permanent && f.SameSite(g) {
					return curated.Errorf(curated.FaultCombinationInvalid,
						"overlapping permanent instruction faults at same address")
				}
			}
		}
	}
	for i, f := range c.registerFaults {
		for _, g := range c.registerFaults[i+1:] {
			if f.Reg == g.Reg && f.Time == g.Time {
				return curated.Errorf(curated.FaultCombinationInvalid,
					"two register faults on same register at same time")
			}
		}
	}
	return nil
}
