// Package debounce runs the last of a burst of scheduled tasks after a quiet period.
//
// Every Schedule or Cancel bumps a generation counter. A task receives the generation
// it was scheduled with and a context that is cancelled as soon as it is superseded,
// so results can be dropped with IsCurrent even when the work ignored the context.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Func is a debounced task.
type Func func(ctx context.Context, generation uint64)

// Debouncer is safe for concurrent use.
type Debouncer struct {
	mu         sync.Mutex
	delay      time.Duration
	generation uint64
	timer      *time.Timer
	cancel     context.CancelFunc
	closed     bool
}

// New creates a Debouncer with the given quiet period.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule supersedes any pending or running task and runs fn after the quiet period.
// It returns the generation assigned to fn. After Close, fn is never run and the
// generation is never current.
func (d *Debouncer) Schedule(fn Func) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	d.stopLocked()
	if d.closed {
		return d.generation
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	gen := d.generation
	d.timer = time.AfterFunc(d.delay, func() {
		if ctx.Err() != nil {
			return
		}
		fn(ctx, gen)
	})
	return gen
}

// Cancel supersedes any pending or running task without scheduling a new one.
func (d *Debouncer) Cancel() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	d.stopLocked()
	return d.generation
}

// IsCurrent reports whether generation is still the latest one.
func (d *Debouncer) IsCurrent(generation uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed && d.generation == generation
}

// Generation returns the latest generation.
func (d *Debouncer) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generation
}

// Close cancels outstanding work. Later Schedule calls are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.generation++
	d.stopLocked()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
