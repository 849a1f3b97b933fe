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

// Package logger implements a small ring-buffered logger shared by the rest
// of the module. Logging is permission-gated: callers that might log on a
// hot path (the emulator's instruction loop, the explorer's worker pool)
// pass a value implementing AllowLogging so that logging can be disabled
// without littering call sites with conditionals.
package logger

import (
	"fmt"
	"io"
	"sync"
)

// Permitter is satisfied by anything that can say whether it is allowed to
// log right now. The zero value of any type without this method can still
// log by passing Allow instead.
type Permitter interface {
	AllowLogging() bool
}

// Allow is a Permitter that always permits logging. Use it at call sites
// that have no permission source of their own.
var Allow = allow{}

type allow struct{}

func (allow) AllowLogging() bool { return true }

// entry is a single logged line, held uninterpreted until it is written out.
type entry struct {
	tag    string
	detail string
}

// Logger is a fixed-capacity ring buffer of log entries. The zero value is
// not usable; construct with NewLogger.
type Logger struct {
	crit sync.Mutex
	log  []entry
	cap  int
}

// NewLogger creates a Logger that retains at most capacity entries, dropping
// the oldest entry whenever a new one arrives after the buffer is full.
func NewLogger(capacity int) *Logger {
	return &Logger{
		log: make([]entry, 0, capacity),
		cap: capacity,
	}
}

// format turns a detail value into its logged string form. errors log their
// Error() string, fmt.Stringer values log their String() form, and anything
// else is logged via the %v verb.
func format(detail interface{}) string {
	switch d := detail.(type) {
	case error:
		return d.Error()
	case fmt.Stringer:
		return d.String()
	default:
		return fmt.Sprintf("%v", d)
	}
}

// Log adds a new entry to the log if p allows logging.
func (l *Logger) Log(p Permitter, tag string, detail interface{}) {
	if !p.AllowLogging() {
		return
	}

	l.crit.Lock()
	defer l.crit.Unlock()

	if len(l.log) >= l.cap {
		l.log = l.log[1:]
	}
	l.log = append(l.log, entry{tag: tag, detail: format(detail)})
}

// Logf is like Log but builds the detail string with fmt.Sprintf.
func (l *Logger) Logf(p Permitter, tag string, format string, args ...interface{}) {
	l.Log(p, tag, fmt.Sprintf(format, args...))
}

// Write writes every retained entry to w, one per line, in the order they
// were logged.
func (l *Logger) Write(w io.Writer) {
	l.crit.Lock()
	defer l.crit.Unlock()

	for _, e := range l.log {
		fmt.Fprintf(w, "%s: %s\n", e.tag, e.detail)
	}
}

// Tail writes the most recent n entries to w, or every entry if fewer than n
// are retained.
func (l *Logger) Tail(w io.Writer, n int) {
	l.crit.Lock()
	defer l.crit.Unlock()

	if n > len(l.log) {
		n = len(l.log)
	}

	for _, e := range l.log[len(l.log)-n:] {
		fmt.Fprintf(w, "%s: %s\n", e.tag, e.detail)
	}
}

// Clear empties the logger.
func (l *Logger) Clear() {
	l.crit.Lock()
	defer l.crit.Unlock()
	l.log = l.log[:0]
}
