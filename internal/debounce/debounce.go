// Package debounce delivers a value only after it has stopped changing for a
// fixed delay.
package debounce

import (
	"sync"
	"time"
)

// Debouncer holds the latest value passed to Set and emits it on C once no
// further Set has happened for the delay. Intermediate values are dropped.
type Debouncer[T any] struct {
	delay time.Duration
	out   chan T

	mu      sync.Mutex
	timer   *time.Timer
	pending T
	seq     uint64
	stopped bool
}

// New creates a Debouncer with the given delay.
func New[T any](delay time.Duration) *Debouncer[T] {
	return &Debouncer[T]{
		delay: delay,
		out:   make(chan T, 1),
	}
}

// C returns the channel settled values are delivered on.
func (d *Debouncer[T]) C() <-chan T {
	return d.out
}

// Set records v and restarts the delay.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = v
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
	}
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if d.stopped || seq != d.seq {
		// A newer Set restarted the timer after this one had already fired
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.mu.Unlock()

	// Replace an unread settled value with the newer one
	for {
		select {
		case d.out <- v:
			return
		default:
		}
		select {
		case <-d.out:
		default:
		}
	}
}

// Stop cancels any pending value. Set is ignored afterwards.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
