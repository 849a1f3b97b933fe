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
	"testing"

	"github.com/armory-go/faultsim/fault"
	"github.com/armory-go/faultsim/test"
)

func TestSubsetsOfSizeK(t *testing.T) {
	got := subsets([]int{0, 1, 2}, 2)
	test.Equate(t, len(got), 3)
}

func TestSubsetsRejectsKOutOfRange(t *testing.T) {
	test.Equate(t, len(subsets([]int{0, 1}, 0)), 0)
	test.Equate(t, len(subsets([]int{0, 1}, 3)), 0)
}

func TestPermsDedupesRepeatedValues(t *testing.T) {
	got := perms([]int{1, 1})
	test.Equate(t, len(got), 1)
}

func TestPermsCountIsFactorial(t *testing.T) {
	got := perms([]int{0, 1, 2})
	test.Equate(t, len(got), 6)
}

func transientModel(name string) fault.Model {
	return fault.NewInstructionModel(&fault.InstructionFaultModel{Name: name, Lifetime: fault.Transient})
}

func permanentModel(name string) fault.Model {
	return fault.NewInstructionModel(&fault.InstructionFaultModel{Name: name, Lifetime: fault.Permanent})
}

func TestExpandIndicesSplitsByPermanence(t *testing.T) {
	models := []fault.ModelMultiplicity{
		{Model: permanentModel("p"), Multiplicity: 2},
		{Model: transientModel("t"), Multiplicity: 1},
	}
	test.Equate(t, len(expandIndices(models, true)), 2)
	test.Equate(t, len(expandIndices(models, false)), 1)
}

func TestComputeModelCombinationsSingleTransientModel(t *testing.T) {
	models := []fault.ModelMultiplicity{
		{Model: transientModel("t"), Multiplicity: 1},
	}
	combos := computeModelCombinations(models, 0)
	test.Equate(t, len(combos), 1)
	test.Equate(t, len(combos[0]), 1)
}

func TestComputeModelCombinationsOrdersBySizeThenLex(t *testing.T) {
	models := []fault.ModelMultiplicity{
		{Model: transientModel("a"), Multiplicity: 1},
		{Model: transientModel("b"), Multiplicity: 1},
	}
	combos := computeModelCombinations(models, 0)
	// two size-1 combos, then the size-2 permutations (both orders).
	test.Equate(t, len(combos), 4)
	test.Equate(t, len(combos[0]), 1)
	test.Equate(t, len(combos[1]), 1)
	test.Equate(t, len(combos[2]), 2)
	test.Equate(t, len(combos[3]), 2)
}

func TestComputeModelCombinationsRespectsMaxK(t *testing.T) {
	models := []fault.ModelMultiplicity{
		{Model: transientModel("a"), Multiplicity: 1},
		{Model: transientModel("b"), Multiplicity: 1},
	}
	combos := computeModelCombinations(models, 1)
	test.Equate(t, len(combos), 2)
}

func TestComputeModelCombinationsPrefixesPermanentSubsets(t *testing.T) {
	models := []fault.ModelMultiplicity{
		{Model: permanentModel("p"), Multiplicity: 1},
		{Model: transientModel("t"), Multiplicity: 1},
	}
	combos := computeModelCombinations(models, 0)
	// {p}, {t}, {p,t}
	test.Equate(t, len(combos), 3)
	test.Equate(t, len(combos[2]), 2)
}

func TestOrderModelsPutsInstructionModelsFirst(t *testing.T) {
	reg := fault.NewRegisterModel(&fault.RegisterFaultModel{Name: "reg", Lifetime: fault.Transient})
	instr := transientModel("instr")
	ordered := orderModels([]fault.ModelMultiplicity{
		{Model: reg, Multiplicity: 1},
		{Model: instr, Multiplicity: 1},
	})
	test.Equate(t, ordered[0].Model.Kind, fault.InstructionKind)
	test.Equate(t, ordered[1].Model.Kind, fault.RegisterKind)
}
