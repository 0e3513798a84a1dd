// Package progress reports operation progress as percent milestones.
// Trackers guarantee the terminal 100% report fires exactly once no matter
// how the operation exits.
package progress

import (
	"fmt"
	"io"
	"sync"
)

// Func receives a progress update as a percentage with a short message.
type Func func(percent int, message string)

// Discard ignores all progress reports.
func Discard(int, string) {}

// Writer returns a Func that prints carriage-return progress updates to w,
// finishing the line when the operation completes.
func Writer(w io.Writer) Func {
	return func(percent int, message string) {
		fmt.Fprintf(w, "\r%-40s %3d%%", message, percent)
		if percent >= 100 {
			fmt.Fprintln(w)
		}
	}
}

// Tracker wraps a Func so the terminal report is delivered exactly once.
// After Done fires, further reports are dropped.
type Tracker struct {
	mu   sync.Mutex
	fn   Func
	done bool
}

// NewTracker returns a Tracker forwarding to fn. A nil fn discards reports.
func NewTracker(fn Func) *Tracker {
	if fn == nil {
		fn = Discard
	}
	return &Tracker{fn: fn}
}

// Report forwards a progress update unless the tracker already completed.
func (t *Tracker) Report(percent int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.fn(percent, message)
}

// Done reports 100% exactly once. Safe to defer on every exit path.
func (t *Tracker) Done(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	t.fn(100, message)
}
