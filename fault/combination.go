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

import "sort"

// elementKind discriminates an entry of the combination's merged sorted
// view. Instruction faults sort before register faults when otherwise
// incomparable, matching the source's variant-first ordering.
type elementKind int

const (
	instructionElement elementKind = iota
	registerElement
)

type element struct {
	kind elementKind
	ins  InstructionFault
	reg  RegisterFault
}

func (e element) less(o element) bool {
	if e.kind != o.kind {
		return e.kind < o.kind
	}
	if e.kind == instructionElement {
		return e.ins.Less(o.ins)
	}
	return e.reg.Less(o.reg)
}

func (e element) equal(o element) bool {
	if e.kind != o.kind {
		return false
	}
	if e.kind == instructionElement {
		return e.ins.Equal(o.ins)
	}
	return e.reg.Equal(o.reg)
}

func (e element) hash() uint64 {
	if e.kind == instructionElement {
		return hashInstructionFault(e.ins)
	}
	return hashRegisterFault(e.reg)
}

// FaultCombination is an ordered multiset of instruction and register
// faults applied together in a single trial.
//
// The two per-kind sequences are append-only and kept in insertion order;
// the merged sorted view is cached and rebuilt lazily the first time it is
// needed after the cache goes stale (detected by a length mismatch against
// Size(), per spec.md §3's invariant).
type FaultCombination struct {
	instructionFaults []InstructionFault
	registerFaults    []RegisterFault

	sorted []element
}

// New returns an empty FaultCombination.
func New() *FaultCombination {
	return &FaultCombination{}
}

// AddInstructionFault appends an instruction fault to the combination.
func (c *FaultCombination) AddInstructionFault(f InstructionFault) {
	c.instructionFaults = append(c.instructionFaults, f)
}

// AddRegisterFault appends a register fault to the combination.
func (c *FaultCombination) AddRegisterFault(f RegisterFault) {
	c.registerFaults = append(c.registerFaults, f)
}

// InstructionFaults returns the instruction faults in insertion order. The
// returned slice must not be mutated.
func (c *FaultCombination) InstructionFaults() []InstructionFault {
	return c.instructionFaults
}

// RegisterFaults returns the register faults in insertion order. The
// returned slice must not be mutated.
func (c *FaultCombination) RegisterFaults() []RegisterFault {
	return c.registerFaults
}

// Size returns |I(C)| + |R(C)|.
func (c *FaultCombination) Size() int {
	return len(c.instructionFaults) + len(c.registerFaults)
}

// sortedView rebuilds the cache iff it is stale (its length no longer
// matches Size()), then returns it.
func (c *FaultCombination) sortedView() []element {
	if len(c.sorted) == c.Size() {
		return c.sorted
	}

	sorted := make([]element, 0, c.Size())
	for _, f := range c.instructionFaults {
		sorted = append(sorted, element{kind: instructionElement, ins: f})
	}
	for _, f := range c.registerFaults {
		sorted = append(sorted, element{kind: registerElement, reg: f})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].less(sorted[j]) })

	c.sorted = sorted
	return c.sorted
}

// Equal is exact elementwise equality of the two per-kind sequences in
// insertion order. Order matters: transient faults fired at different times
// are different faults even if their values coincide.
func (c *FaultCombination) Equal(o *FaultCombination) bool {
	if len(c.instructionFaults) != len(o.instructionFaults) {
		return false
	}
	if len(c.registerFaults) != len(o.registerFaults) {
		return false
	}
	for i := range c.instructionFaults {
		if !c.instructionFaults[i].Equal(o.instructionFaults[i]) {
			return false
		}
	}
	for i := range c.registerFaults {
		if !c.registerFaults[i].Equal(o.registerFaults[i]) {
			return false
		}
	}
	return true
}

// Less compares first by total size, then lexicographically on the sorted
// view. This matches the source's FaultCombination::operator< exactly,
// including its documented incompatibility with Equal for same-size,
// differently-ordered combinations (spec.md §9 open question) -- see
// DESIGN.md for why we preserve rather than "fix" this.
func (c *FaultCombination) Less(o *FaultCombination) bool {
	if c.Size() != o.Size() {
		return c.Size() < o.Size()
	}
	cs, os := c.sortedView(), o.sortedView()
	for i := range cs {
		if cs[i].less(os[i]) {
			return true
		}
		if os[i].less(cs[i]) {
			return false
		}
	}
	return false
}

// Includes reports whether c is a superset of o: c has at least as many
// faults of each kind, and o's per-kind sequence (in sorted order) appears
// as a subsequence of c's per-kind sequence.
func (c *FaultCombination) Includes(o *FaultCombination) bool {
	if len(c.instructionFaults) < len(o.instructionFaults) {
		return false
	}
	if len(c.registerFaults) < len(o.registerFaults) {
		return false
	}

	big := sortedInstructionFaults(c.instructionFaults)
	small := sortedInstructionFaults(o.instructionFaults)
	if !instructionSubsequence(big, small) {
		return false
	}

	bigR := sortedRegisterFaults(c.registerFaults)
	smallR := sortedRegisterFaults(o.registerFaults)
	return registerSubsequence(bigR, smallR)
}

func sortedInstructionFaults(fs []InstructionFault) []InstructionFault {
	out := append([]InstructionFault(nil), fs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func sortedRegisterFaults(fs []RegisterFault) []RegisterFault {
	out := append([]RegisterFault(nil), fs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func instructionSubsequence(big, small []InstructionFault) bool {
	i := 0
	for _, f := range big {
		if i == len(small) {
			break
		}
		if f.Equal(small[i]) {
			i++
		}
	}
	return i == len(small)
}

func registerSubsequence(big, small []RegisterFault) bool {
	i := 0
	for _, f := range big {
		if i == len(small) {
			break
		}
		if f.Equal(small[i]) {
			i++
		}
	}
	return i == len(small)
}

// Hash combines the hashes of the elements of the sorted view via the
// source's hash-combine formula: seed ^= h(x) + 0x9e3779b9 + (seed<<6) +
// (seed>>2).
func (c *FaultCombination) Hash() uint64 {
	var seed uint64
	for _, e := range c.sortedView() {
		seed ^= e.hash() + 0x9e3779b9 + (seed << 6) + (seed >> 2)
	}
	return seed
}

// Subsets returns every non-empty subset of c's sorted view, each as its
// own FaultCombination, in the order produced by iterating the subset bit
// masks 1..2^n-1 with n = c.Size(). Used by the redundancy filter, which
// hashes each subset independently (spec.md §4.4 / §4.7).
func (c *FaultCombination) Subsets() []*FaultCombination {
	view := c.sortedView()
	n := len(view)
	if n == 0 {
		return nil
	}

	out := make([]*FaultCombination, 0, (1<<uint(n))-1)
	for mask := 1; mask < (1 << uint(n)); mask++ {
		sub := New()
		for i := 0; i < n; i++ {
			if mask&(1<<uint(i)) == 0 {
				continue
			}
			e := view[i]
			if e.kind == instructionElement {
				sub.AddInstructionFault(e.ins)
			} else {
				sub.AddRegisterFault(e.reg)
			}
		}
		out = append(out, sub)
	}
	return out
}

// Clone returns a deep, independent copy of c, including an already-fresh
// sorted-view cache.
func (c *FaultCombination) Clone() *FaultCombination {
	clone := &FaultCombination{
		instructionFaults: append([]InstructionFault(nil), c.instructionFaults...),
		registerFaults:    append([]RegisterFault(nil), c.registerFaults...),
	}
	clone.sortedView()
	return clone
}
