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
	"github.com/google/uuid"

	"github.com/armory-go/faultsim/emulator"
	"github.com/armory-go/faultsim/fault"
	"github.com/armory-go/faultsim/snapshot"
)

// ThreadContext is one worker's private world: its own emulator clone, its
// own snapshot per model position in the active permutation, its own
// exploitability oracle clone, and its own result buffer. No ThreadContext
// field is ever touched by more than one goroutine (spec.md §5).
type ThreadContext struct {
	ID uuid.UUID

	emu       *emulator.Emulator
	snapshots []*snapshot.Snapshot

	oracle Oracle

	endReached bool
	decision   Decision

	newFaults []*fault.FaultCombination
}

func newThreadContext(base *emulator.Emulator, numModels int) *ThreadContext {
	tc := &ThreadContext{
		ID:  uuid.New(),
		emu: base.Clone(),
	}
	for i := 0; i < numModels; i++ {
		tc.snapshots = append(tc.snapshots, snapshot.New(tc.emu))
	}
	return tc
}

func (tc *ThreadContext) close() {
	for _, s := range tc.snapshots {
		s.Close()
	}
}
