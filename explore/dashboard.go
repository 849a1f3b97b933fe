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
	"net"
	"sync"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/google/uuid"
)

// dashboard is the optional statsview HTTP progress page. It is strictly
// additive instrumentation: the textual progress line is the primary
// channel and nothing in the search consults the dashboard's state.
type dashboard struct {
	mgr *statsview.Viewer

	mu      sync.Mutex
	workers map[uuid.UUID]bool
}

func newDashboard() *dashboard {
	return &dashboard{workers: map[uuid.UUID]bool{}}
}

// start binds to an ephemeral localhost port and launches the statsview
// server in the background. Failure to bind is non-fatal: progress printing
// continues via the textual channel regardless.
func (d *dashboard) start() {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return
	}
	addr := l.Addr().String()
	l.Close()

	viewer.SetConfiguration(viewer.WithAddr(addr), viewer.WithTheme(viewer.ThemeWesteros))
	d.mgr = statsview.New()
	go d.mgr.Start()
}

func (d *dashboard) stop() {
	if d.mgr != nil {
		d.mgr.Stop()
	}
}

func (d *dashboard) workerStarted(id uuid.UUID) {
	d.mu.Lock()
	d.workers[id] = true
	d.mu.Unlock()
}

func (d *dashboard) workerFinished(id uuid.UUID) {
	d.mu.Lock()
	delete(d.workers, id)
	d.mu.Unlock()
}

// activeWorkers reports how many ThreadContexts are currently running. The
// statsview page does not show this count; it shows only statsview's own
// default runtime charts.
func (d *dashboard) activeWorkers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.workers)
}
