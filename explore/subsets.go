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
	"fmt"
	"sort"
	"strings"

	"github.com/armory-go/faultsim/fault"
)

// subsets returns every subset of exactly size k of the multiset ids, chosen
// by position (so duplicate values at different positions are distinct
// choices, exactly as the source's position-based iterator subset chooser
// behaves), then deduplicated by value.
func subsets(ids []int, k int) [][]int {
	n := len(ids)
	if k == 0 || k > n {
		return nil
	}

	seen := map[string][]int{}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]int, k)
		for i, p := range idx {
			combo[i] = ids[p]
		}
		seen[comboKey(combo)] = combo

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}

	out := make([][]int, 0, len(seen))
	for _, combo := range seen {
		out = append(out, combo)
	}
	return out
}

// perms returns every distinct permutation of nums (nums may contain
// repeated values, in which case permutations that are indistinguishable up
// to value are emitted once).
func perms(nums []int) [][]int {
	sorted := append([]int(nil), nums...)
	sort.Ints(sorted)

	var out [][]int
	used := make([]bool, len(sorted))
	current := make([]int, 0, len(sorted))

	var backtrack func()
	backtrack = func() {
		if len(current) == len(sorted) {
			out = append(out, append([]int(nil), current...))
			return
		}
		for i := range sorted {
			if used[i] {
				continue
			}
			if i > 0 && sorted[i] == sorted[i-1] && !used[i-1] {
				continue
			}
			used[i] = true
			current = append(current, sorted[i])
			backtrack()
			current = current[:len(current)-1]
			used[i] = false
		}
	}
	backtrack()
	return out
}

func comboKey(combo []int) string {
	parts := make([]string, len(combo))
	for i, v := range combo {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

// expandIndices returns the model-list index of each permanent (or, if
// wantPermanent is false, each non-permanent) model, repeated by its
// configured multiplicity, in ascending index order.
func expandIndices(models []fault.ModelMultiplicity, wantPermanent bool) []int {
	var ids []int
	for i, mm := range models {
		if mm.Model.IsPermanent() != wantPermanent {
			continue
		}
		for j := 0; j < mm.Multiplicity; j++ {
			ids = append(ids, i)
		}
	}
	return ids
}

// computeModelCombinations enumerates every permutation of model indices to
// try, per spec.md §4.4 step 4: permanent-model subsets (order irrelevant)
// and non-permanent-model permutations (order relevant), each non-permanent
// permutation optionally prefixed by a permanent subset when the combined
// size still fits within maxK. A maxK of 0 means unbounded.
func computeModelCombinations(models []fault.ModelMultiplicity, maxK int) [][]int {
	permanentIDs := expandIndices(models, true)
	nonPermanentIDs := expandIndices(models, false)

	all := map[string][]int{}
	add := func(combo []int) {
		key := comboKey(combo)
		if _, ok := all[key]; !ok {
			all[key] = append([]int(nil), combo...)
		}
	}

	var permanentSubsets [][]int
	if len(permanentIDs) > 0 {
		upper := len(permanentIDs)
		if maxK != 0 && maxK < upper {
			upper = maxK
		}
		for size := 1; size <= upper; size++ {
			for _, combo := range subsets(permanentIDs, size) {
				permanentSubsets = append(permanentSubsets, combo)
				add(combo)
			}
		}
	}

	if len(nonPermanentIDs) > 0 {
		upper := len(nonPermanentIDs)
		if maxK != 0 && maxK < upper {
			upper = maxK
		}
		for size := 1; size <= upper; size++ {
			for _, subset := range subsets(nonPermanentIDs, size) {
				for _, perm := range perms(subset) {
					add(perm)
					for _, permSubset := range permanentSubsets {
						if maxK == 0 || len(permSubset)+len(perm) <= maxK {
							combined := append(append([]int(nil), permSubset...), perm...)
							add(combined)
						}
					}
				}
			}
		}
	}

	result := make([][]int, 0, len(all))
	for _, combo := range all {
		result = append(result, combo)
	}
	sort.Slice(result, func(i, j int) bool {
		if len(result[i]) != len(result[j]) {
			return len(result[i]) < len(result[j])
		}
		for k := range result[i] {
			if result[i][k] != result[j][k] {
				return result[i][k] < result[j][k]
			}
		}
		return false
	})
	return result
}
