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
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/armory-go/faultsim/cpu"
	"github.com/armory-go/faultsim/emulator"
	"github.com/armory-go/faultsim/fault"
)

// FaultSimulator drives the fault-combination search: it preprocesses a
// model list and base emulator into an ordered set of permutations to try,
// then for each permutation runs a pool of workers that inject candidate
// faults and records every combination the oracle deems exploitable.
type FaultSimulator struct {
	ctx Context

	printProgress bool
	numThreads    uint32
	dash          *dashboard

	progressMu     sync.Mutex
	threadProgress int64
	progress       int
	activeThreads  int

	currentModels []fault.Model
	redundancy    *redundancyFilter

	lastMemoization map[string][]*fault.FaultCombination
}

// NewFaultSimulator validates ctx (spec.md §4.4 preconditions: positive
// timeout, at least one halting point) and returns a ready FaultSimulator.
func NewFaultSimulator(ctx Context) (*FaultSimulator, error) {
	if err := ctx.Validate(); err != nil {
		return nil, err
	}
	return &FaultSimulator{ctx: ctx}, nil
}

// EnableProgressPrinting turns the textual progress line on or off, and
// optionally starts the statsview dashboard alongside it.
func (fs *FaultSimulator) EnableProgressPrinting(enable bool) {
	fs.printProgress = enable
	if enable && fs.dash == nil {
		fs.dash = newDashboard()
		fs.dash.start()
	} else if !enable && fs.dash != nil {
		fs.dash.stop()
		fs.dash = nil
	}
}

// SetNumberOfThreads overrides the worker pool size; 0 restores the default
// of runtime.NumCPU().
func (fs *FaultSimulator) SetNumberOfThreads(n uint32) {
	fs.numThreads = n
}

func (fs *FaultSimulator) numWorkers() int {
	if fs.numThreads != 0 {
		return int(fs.numThreads)
	}
	return runtime.NumCPU()
}

// orderModels sorts models so instruction-fault models precede
// register-fault models, preserving relative order otherwise (spec.md §4.4
// preprocessing step 1).
func orderModels(models []fault.ModelMultiplicity) []fault.ModelMultiplicity {
	out := append([]fault.ModelMultiplicity(nil), models...)
	sort.SliceStable(out, func(i, j int) bool {
		iInstr := out[i].Model.Kind == fault.InstructionKind
		jInstr := out[j].Model.Kind == fault.InstructionKind
		return iInstr && !jInstr
	})
	return out
}

// SimulateFaults is the public entry point: it enumerates every model
// permutation up to maxSimultaneous faults, runs each through the worker
// pool, and returns the deduplicated set of exploitable combinations.
func (fs *FaultSimulator) SimulateFaults(base *emulator.Emulator, models []fault.ModelMultiplicity, maxSimultaneous int) ([]*fault.FaultCombination, error) {
	ordered := orderModels(models)

	sites := gatherFaultableInstructions(base, &fs.ctx)

	combinations := computeModelCombinations(ordered, maxSimultaneous)

	memoized := map[string][]*fault.FaultCombination{}

	for permIndex, combo := range combinations {
		fs.currentModels = make([]fault.Model, len(combo))
		for i, modelIndex := range combo {
			fs.currentModels[i] = ordered[modelIndex].Model
		}

		known := prepareKnownExploitableFaults(combo, memoized)
		fs.redundancy = newRedundancyFilter()
		fs.redundancy.prepare(known)

		if fs.printProgress {
			fmt.Fprintf(os.Stderr, "\rinjecting %d/%d: %s\n", permIndex+1, len(combinations), describeModels(fs.currentModels))
		}

		fs.threadProgress = 0
		fs.progress = 0
		fs.activeThreads = 0

		newFaults, err := fs.runPermutation(base, sites)
		if err != nil {
			return nil, err
		}

		combined := append(append([]*fault.FaultCombination(nil), known...), newFaults...)
		memoized[comboKey(combo)] = dedupeCombinations(combined)
	}

	if fs.printProgress {
		fmt.Fprint(os.Stderr, "\raggregating final results...                   \r")
	}

	fs.lastMemoization = memoized

	var all []*fault.FaultCombination
	for _, combos := range memoized {
		all = append(all, combos...)
	}
	return dedupeCombinations(all), nil
}

func describeModels(models []fault.Model) string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name()
	}
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += "'" + n + "'"
	}
	return out
}

func prepareKnownExploitableFaults(combo []int, memo map[string][]*fault.FaultCombination) []*fault.FaultCombination {
	if len(combo) <= 1 {
		return nil
	}

	var known []*fault.FaultCombination
	last := []int{combo[len(combo)-1]}
	if v, ok := memo[comboKey(last)]; ok {
		known = append(known, v...)
	}
	preceding := combo[:len(combo)-1]
	if v, ok := memo[comboKey(preceding)]; ok {
		known = append(known, v...)
	}
	return known
}

func dedupeCombinations(combos []*fault.FaultCombination) []*fault.FaultCombination {
	var out []*fault.FaultCombination
	for _, c := range combos {
		dup := false
		for _, o := range out {
			if c.Equal(o) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// runPermutation spawns the worker pool for the currently configured
// fs.currentModels and merges every worker's discovered faults.
func (fs *FaultSimulator) runPermutation(base *emulator.Emulator, sites []instructionSite) ([]*fault.FaultCombination, error) {
	n := fs.numWorkers()

	var mu sync.Mutex
	var merged []*fault.FaultCombination

	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			tc := newThreadContext(base, len(fs.currentModels))
			defer tc.close()

			if fs.printProgress {
				fs.progressMu.Lock()
				fs.activeThreads++
				fs.printProgressLine()
				fs.progressMu.Unlock()
			}

			if fs.dash != nil {
				fs.dash.workerStarted(tc.ID)
				defer fs.dash.workerFinished(tc.ID)
			}

			if fs.ctx.ExploitabilityModel != nil {
				tc.oracle = fs.ctx.ExploitabilityModel.Clone()
			}

			hookID := tc.emu.AddBeforeFetchHook(func(em *emulator.Emulator) {
				fs.detectEndOfExecution(em, tc)
			})
			defer tc.emu.RemoveBeforeFetchHook(hookID)

			fs.simulateFault(tc, 0, fs.ctx.EmulationTimeout, fault.New(), sites)

			if fs.printProgress {
				fs.progressMu.Lock()
				fs.activeThreads--
				fs.printProgressLine()
				fs.progressMu.Unlock()
			}

			mu.Lock()
			merged = append(merged, tc.newFaults...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dedupeCombinations(merged), nil
}

// detectEndOfExecution is the shared before-fetch hook: it asks the oracle
// (or defaults to always-exploitable) whenever PC lands on a configured
// halting point, and stops the trial unless told to continue.
func (fs *FaultSimulator) detectEndOfExecution(em *emulator.Emulator, tc *ThreadContext) {
	pc := em.State.Registers.Raw(cpu.PC)
	if !fs.ctx.isHaltingPoint(pc) {
		return
	}

	if tc.oracle == nil {
		tc.decision = Exploitable
	} else {
		tc.decision = tc.oracle.Evaluate(em, pc)
	}

	if tc.decision != ContinueSimulation {
		tc.endReached = true
		em.StopEmulation()
	}
}

func (fs *FaultSimulator) printProgressLine() {
	fmt.Fprintf(os.Stderr, "\r%d%% (%d active threads)   ", fs.progress, fs.activeThreads)
}

func (fs *FaultSimulator) reportProgress(current, total int) {
	if !fs.printProgress {
		return
	}
	p := int(math.Round(100.0 * float64(current) / float64(total)))
	fs.progressMu.Lock()
	if p != fs.progress {
		fs.progress = p
		fs.printProgressLine()
	}
	fs.progressMu.Unlock()
}

// nextProgressIndex hands out the next outermost-loop index to any worker
// that asks, via the shared thread_progress counter (spec.md §4.4/§5).
func (fs *FaultSimulator) nextProgressIndex() int {
	return int(atomic.AddInt64(&fs.threadProgress, 1) - 1)
}

// claimSite hands the caller the next candidate index to try out of total.
// At order 0, every worker in the pool is searching the same candidate list
// for the same permutation, so indices are handed out from the single
// shared thread_progress counter instead of each worker redundantly
// retrying every candidate (spec.md §5). At a deeper order, the caller is
// already executing inside one worker's exclusive recursion over a chain
// that worker alone is extending, so indices are simply handed out in
// order with no sharing.
func (fs *FaultSimulator) claimSite(order, total int, local *int) (int, bool) {
	var i int
	if order == 0 {
		i = fs.nextProgressIndex()
	} else {
		i = *local
		*local++
	}
	if i >= total {
		return 0, false
	}
	fs.reportProgress(i+1, total)
	return i, true
}

// simulateFault dispatches to one of the four injection procedures by
// model variant and lifetime (spec.md §4.4 "Dispatch simulate_fault").
func (fs *FaultSimulator) simulateFault(tc *ThreadContext, order int, remaining uint32, chain *fault.FaultCombination, sites []instructionSite) {
	model := fs.currentModels[order]

	switch {
	case model.Kind == fault.InstructionKind && model.IsPermanent():
		fs.simulatePermanentInstructionFault(tc, order, remaining, chain, sites)
	case model.Kind == fault.InstructionKind:
		fs.simulateInstructionFault(tc, order, remaining, chain, sites)
	case model.Kind == fault.RegisterKind && model.IsPermanent():
		fs.simulatePermanentRegisterFault(tc, order, remaining, chain, sites)
	default:
		fs.simulateRegisterFault(tc, order, remaining, chain, sites)
	}
}

// finishPermanentTrial is reached once a permanent fault has been applied
// and appended to chain. A permanent mutation needs no reverting, so a
// non-terminal order can recurse into the next model immediately with no
// intervening run; only the terminal order actually drives the emulator
// forward to see whether it lands on an exploitable halting point (spec.md
// §4.4/§4.5/§4.6 permanent branches).
func (fs *FaultSimulator) finishPermanentTrial(tc *ThreadContext, order int, remaining uint32, chain *fault.FaultCombination, sites []instructionSite) {
	if order == len(fs.currentModels)-1 {
		tc.endReached = false
		tc.decision = ContinueSimulation
		tc.emu.Emulate(remaining)
		if tc.endReached && tc.decision == Exploitable {
			tc.newFaults = append(tc.newFaults, chain)
		}
		return
	}

	next := order + 1
	tc.snapshots[next].Backup()
	fs.simulateFault(tc, next, remaining, chain, sites)
}

// finishTransientTrial is reached once a transient fault's single-instruction
// window has retired and its effect reverted. Regardless of order, it first
// gives the trial the rest of its budget to see whether it reaches an
// exploitable halting point on its own. If it doesn't, and another model
// remains in the permutation, redo must reproduce the identical post-fault
// state (by replaying the walk-to-site, apply, single-retire, revert
// sequence) so the next model can be layered at the same point in time
// (spec.md §4.5/§4.6 transient branches).
func (fs *FaultSimulator) finishTransientTrial(tc *ThreadContext, order int, remaining uint32, chain *fault.FaultCombination, sites []instructionSite, redo func(uint32) (uint32, bool)) {
	if !tc.endReached && remaining > 0 {
		tc.emu.Emulate(remaining)
	}

	if tc.endReached && tc.decision == Exploitable {
		tc.newFaults = append(tc.newFaults, chain)
	} else if order < len(fs.currentModels)-1 {
		if next, ok := redo(remaining); ok {
			tc.snapshots[order+1].Backup()
			fs.simulateFault(tc, order+1, next, chain, sites)
		}
	}

	tc.endReached = false
	tc.decision = ContinueSimulation
}
