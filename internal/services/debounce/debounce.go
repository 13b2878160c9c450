// Package debounce runs the latest of a burst of triggers once input settles.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Debouncer delays work until no new trigger arrived for the configured delay.
// A new trigger stops the pending timer and cancels the context of work already running,
// so results of superseded work can be discarded by checking ctx.Err().
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	parent  context.Context
	timer   *time.Timer
	cancel  context.CancelFunc
	stopped bool
}

// New creates a debouncer whose work contexts derive from parent.
func New(parent context.Context, delay time.Duration) *Debouncer {
	if parent == nil {
		parent = context.Background()
	}
	return &Debouncer{parent: parent, delay: delay}
}

// Trigger schedules fn to run after the delay, superseding any earlier trigger.
func (d *Debouncer) Trigger(fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelLocked()
	if d.stopped || d.parent.Err() != nil {
		return
	}

	ctx, cancel := context.WithCancel(d.parent)
	d.cancel = cancel
	d.timer = time.AfterFunc(d.delay, func() {
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
}

// Cancel drops the pending trigger and cancels running work.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop cancels everything; later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.cancelLocked()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
