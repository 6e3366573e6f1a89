// Package throttle spaces out calls to rate-limited remote APIs.
package throttle

import (
	"context"
	"sync/atomic"
	"time"
)

// Throttle blocks until the next remote call may proceed.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Fixed waits a constant interval on every call.
type Fixed struct {
	Interval time.Duration
}

// NewFixed returns a Fixed throttle, or None when interval is not positive.
func NewFixed(interval time.Duration) Throttle {
	if interval <= 0 {
		return None{}
	}
	return Fixed{Interval: interval}
}

// Wait sleeps for the interval or until ctx is done.
func (f Fixed) Wait(ctx context.Context) error {
	if f.Interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(f.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// None never waits.
type None struct{}

// Wait returns immediately unless ctx is already done.
func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}

// Counting records how many times Wait was called without ever waiting.
type Counting struct {
	calls atomic.Int64
}

// Wait counts the call.
func (c *Counting) Wait(ctx context.Context) error {
	c.calls.Add(1)
	return ctx.Err()
}

// Calls returns the number of Wait calls so far.
func (c *Counting) Calls() int {
	return int(c.calls.Load())
}
