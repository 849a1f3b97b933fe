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
	"io"

	"github.com/bradleyjkemp/memviz"

	curated "github.com/armory-go/faultsim/errors"
)

// DumpMemoization renders the permutation-to-exploitable-combinations
// memoization map built by the most recently completed SimulateFaults call
// as a Graphviz graph. Diagnostic only: nothing in the search algorithm
// reads this output, it exists to let a developer inspect how the
// redundancy filter pruned a real search.
func (fs *FaultSimulator) DumpMemoization(w io.Writer) error {
	if fs.lastMemoization == nil {
		return curated.Errorf(curated.ConfigurationError, "no completed search to dump")
	}
	memviz.Map(w, &fs.lastMemoization)
	return nil
}
