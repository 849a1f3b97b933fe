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

// Package explore implements the fault-exploration engine: preprocessing
// (model ordering, halting-point sort, faultable-instruction table,
// permutation enumeration), the worker pool that runs each permutation, and
// the redundancy filter that prunes subsumed combinations.
package explore

import (
	"sort"

	"github.com/armory-go/faultsim/emulator"
	curated "github.com/armory-go/faultsim/errors"
)

// Range is a half-open [Start, End) span, used both for instruction-time
// ranges (ignore_time_ranges) and memory address ranges
// (ignore_memory_ranges).
type Range struct {
	Start, End uint32
}

// Contains reports whether v falls within the half-open range.
func (r Range) Contains(v uint32) bool {
	return v >= r.Start && v < r.End
}

// Decision is an Oracle's verdict at a halting point.
type Decision int

const (
	ContinueSimulation Decision = iota
	Exploitable
	NotExploitable
)

// Oracle inspects the emulator at a halting point and decides whether the
// current trial should be recorded as exploitable, rejected, or continued.
// Implementations must be safe to Clone, since each worker clones the
// oracle once per permutation and uses its clone for every trial it runs
// (spec.md §5 "oracle cloning").
type Oracle interface {
	Evaluate(emu *emulator.Emulator, pc uint32) Decision
	Clone() Oracle
}

// alwaysExploitable implements the "absence of an oracle" default from
// spec.md §6: any halting point is immediately exploitable.
type alwaysExploitable struct{}

func (alwaysExploitable) Evaluate(*emulator.Emulator, uint32) Decision { return Exploitable }
func (alwaysExploitable) Clone() Oracle                                { return alwaysExploitable{} }

// Context bundles the configuration a FaultSimulator (and FaultTracer) need
// beyond the base emulator and model list.
type Context struct {
	HaltingPoints      []uint32
	ExploitabilityModel Oracle
	EmulationTimeout   uint32
	IgnoreTimeRanges   []Range
	IgnoreMemoryRanges []Range

	sortedHaltingPoints []uint32
}

// Validate checks the preconditions spec.md §4.4 requires before a search
// can start: a positive timeout and at least one halting point.
func (c *Context) Validate() error {
	if c.EmulationTimeout == 0 {
		return curated.Errorf(curated.ConfigurationError, "emulation timeout must be > 0")
	}
	if len(c.HaltingPoints) == 0 {
		return curated.Errorf(curated.ExplorerNoHaltingPoints)
	}
	return nil
}

// oracle returns the configured oracle, or the always-exploitable default.
func (c *Context) oracle() Oracle {
	if c.ExploitabilityModel == nil {
		return alwaysExploitable{}
	}
	return c.ExploitabilityModel
}

// sortedHalting returns the halting points sorted ascending, computing and
// caching them on first use (spec.md §4.4 preprocessing step 2).
func (c *Context) sortedHalting() []uint32 {
	if c.sortedHaltingPoints == nil {
		c.sortedHaltingPoints = append([]uint32(nil), c.HaltingPoints...)
		sort.Slice(c.sortedHaltingPoints, func(i, j int) bool {
			return c.sortedHaltingPoints[i] < c.sortedHaltingPoints[j]
		})
	}
	return c.sortedHaltingPoints
}

// isHaltingPoint reports whether pc is a configured halting point, via
// binary search on the sorted cache (spec.md §9: the simulator uses binary
// search, unlike the tracer's linear scan -- see trace package).
func (c *Context) isHaltingPoint(pc uint32) bool {
	s := c.sortedHalting()
	i := sort.Search(len(s), func(i int) bool { return s[i] >= pc })
	return i < len(s) && s[i] == pc
}

func (c *Context) inIgnoreTimeRange(t uint32) bool {
	for _, r := range c.IgnoreTimeRanges {
		if r.Contains(t) {
			return true
		}
	}
	return false
}

func (c *Context) inIgnoreMemoryRange(addr uint32) bool {
	for _, r := range c.IgnoreMemoryRanges {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}
