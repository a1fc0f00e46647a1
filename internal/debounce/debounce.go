// Package debounce coalesces bursts of values into at most one callback per delay window.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delivers the latest triggered value to its callback at most once per delay
// window. The first Trigger after an idle period arms the window; later triggers only replace
// the pending value, so a steady stream of triggers still fires once per window.
//
// All methods are safe for concurrent use. The callback never runs concurrently with itself.
type Debouncer[T any] struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(T)
	timer   *time.Timer
	value   T
	pending bool
	stopped bool
	seq     uint64

	// run serializes taking a value and running the callback with it. It is always
	// acquired before mu.
	run sync.Mutex
}

// New creates a Debouncer. A non-positive delay runs the callback synchronously on Trigger.
func New[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger records v as the latest value and arms the window if it isn't armed yet.
// It reports false when the debouncer is stopped.
func (d *Debouncer[T]) Trigger(v T) bool {
	d.mu.Lock()

	if d.stopped {
		d.mu.Unlock()

		return false
	}

	d.value = v

	if d.delay <= 0 {
		d.pending = true
		d.mu.Unlock()
		d.Flush()

		return true
	}

	if !d.pending {
		d.pending = true
		d.seq++
		seq := d.seq

		d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
	}

	d.mu.Unlock()

	return true
}

// Flush runs the pending value now, if any.
func (d *Debouncer[T]) Flush() {
	d.run.Lock()
	defer d.run.Unlock()

	d.mu.Lock()

	v, ok := d.takeLocked()

	d.mu.Unlock()

	if ok {
		d.call(v)
	}
}

// Cancel drops the pending value.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.takeLocked()
}

// Stop drops the pending value and rejects further triggers. It waits for a running
// callback to return.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.takeLocked()
	d.mu.Unlock()

	d.run.Lock()
	defer d.run.Unlock()
}

// Pending reports whether a value is waiting for its window to close.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pending
}

func (d *Debouncer[T]) fire(seq uint64) {
	// run is taken before the value so a window closing while a callback runs can't
	// deliver its value after a newer one
	d.run.Lock()
	defer d.run.Unlock()

	d.mu.Lock()

	// stale timer from a flushed or canceled window
	if seq != d.seq || !d.pending {
		d.mu.Unlock()

		return
	}

	v, _ := d.takeLocked()

	d.mu.Unlock()

	d.call(v)
}

func (d *Debouncer[T]) takeLocked() (T, bool) {
	var zero T

	if !d.pending {
		return zero, false
	}

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	v := d.value
	d.value = zero
	d.pending = false
	d.seq++

	return v, true
}

// call runs the callback. The caller holds run.
func (d *Debouncer[T]) call(v T) {
	if d.fn == nil {
		return
	}

	d.fn(v)
}
