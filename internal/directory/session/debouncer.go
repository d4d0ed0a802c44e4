package session

import (
	"context"
	"sync"
	"time"
)

// Debouncer lets only the last of a burst of calls through. Every Wait
// starts a new generation; a waiter proceeds only if no newer Wait began
// before its delay elapsed.
type Debouncer struct {
	delay time.Duration

	mu         sync.Mutex
	generation uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Wait blocks for the debounce delay and reports whether the caller is
// still the latest.
func (d *Debouncer) Wait(ctx context.Context) (bool, error) {
	d.mu.Lock()
	d.generation++
	mine := d.generation
	d.mu.Unlock()

	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return mine == d.generation, nil
}
