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
	"sort"
	"sync"

	"github.com/armory-go/faultsim/fault"
)

// redundancyFilter is the per-permutation "known exploitable fault" index
// (spec.md §4.4/§4.7): a sorted, deduplicated list of subset hashes plus a
// bucket of the combinations that produced each hash. prepare rebuilds it
// from the combinations already recorded for the permutation's immediate
// prefix and for the newly-added model in isolation; isRedundant then
// answers "does any previously-seen combination subsume this candidate".
type redundancyFilter struct {
	mu      sync.RWMutex
	hashes  []uint64
	buckets map[uint64][]*fault.FaultCombination
}

func newRedundancyFilter() *redundancyFilter {
	return &redundancyFilter{buckets: map[uint64][]*fault.FaultCombination{}}
}

// prepare indexes every non-empty subset of each combination in known,
// matching the source's prepare_known_exploitable_faults.
func (r *redundancyFilter) prepare(known []*fault.FaultCombination) {
	r.hashes = nil
	r.buckets = map[uint64][]*fault.FaultCombination{}

	seen := map[uint64]bool{}
	for _, fc := range known {
		for _, sub := range fc.Subsets() {
			h := sub.Hash()
			if !seen[h] {
				seen[h] = true
				r.hashes = append(r.hashes, h)
			}
			r.buckets[h] = append(r.buckets[h], fc)
		}
	}
	sort.Slice(r.hashes, func(i, j int) bool { return r.hashes[i] < r.hashes[j] })
}

// isRedundant reports whether c is subsumed by a previously recorded
// combination: some non-empty subset of c hashes to a value whose bucket
// contains a combination no larger than c that c includes.
func (r *redundancyFilter) isRedundant(c *fault.FaultCombination) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.hashes) == 0 {
		return false
	}

	for _, sub := range c.Subsets() {
		h := sub.Hash()
		i := sort.Search(len(r.hashes), func(i int) bool { return r.hashes[i] >= h })
		if i == len(r.hashes) || r.hashes[i] != h {
			continue
		}
		for _, candidate := range r.buckets[h] {
			if candidate.Size() > c.Size() {
				continue
			}
			if c.Includes(candidate) {
				return true
			}
		}
	}
	return false
}
