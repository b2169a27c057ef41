package client

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of edits into one commit. Each Set replaces
// any pending commit and restarts the idle window; only the last value in a
// burst reaches the server.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Set schedules commit to run after the idle window, replacing whatever was
// pending.
func (d *Debouncer) Set(commit func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = commit
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	commit := d.pending
	d.pending = nil
	d.mu.Unlock()
	if commit != nil {
		commit()
	}
}

// Flush runs the pending commit immediately, if any. Callers flush before
// actions that must observe the edit, such as advancing the turn.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	commit := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	if commit != nil {
		commit()
	}
}

// Stop drops the pending commit without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}
