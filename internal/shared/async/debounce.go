// Package async holds small concurrency helpers shared across services.
package async

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls into one invocation of fn with the
// most recent argument, fired after the quiet interval elapses.
type Debouncer[T any] struct {
	interval time.Duration
	fn       func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending T
	seq     uint64
}

func NewDebouncer[T any](interval time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{interval: interval, fn: fn}
}

// Call records arg as the latest pending value and restarts the quiet timer.
// Only the last value observed before the timer fires reaches fn. The
// generation counter keeps an already-fired timer callback that lost the race
// to a newer Call from firing fn a second time.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = arg
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		if seq != d.seq {
			d.mu.Unlock()
			return
		}
		arg := d.pending
		d.timer = nil
		d.mu.Unlock()
		d.fn(arg)
	})
}

// Flush fires the pending call immediately, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer.Stop()
	d.seq++
	arg := d.pending
	d.timer = nil
	d.mu.Unlock()
	d.fn(arg)
}

// Stop cancels any pending call without firing it.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.seq++
		d.timer = nil
	}
}
