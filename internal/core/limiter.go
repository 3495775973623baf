package core

// limiter.go bounds how many merges run at once. Every merge holds a slot
// for its whole duration, decision round-trips included. New merges wait up
// to maxWait for a slot before failing with ErrTooManyMerges.

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	// DefaultMaxConcurrentMerges is the default limit for parallel merges.
	DefaultMaxConcurrentMerges = 2

	// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
	DefaultMaxWaitTime = 30 * time.Second

	drainPollInterval = 100 * time.Millisecond
)

// MergeLimiter is a counting semaphore for merge runs.
type MergeLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int32
}

// NewMergeLimiter allows at most maxConcurrent merges. Non-positive
// arguments fall back to the defaults.
func NewMergeLimiter(maxConcurrent int, maxWait time.Duration) *MergeLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentMerges
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &MergeLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. The caller MUST call Release when done.
func (l *MergeLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyMerges
	}
}

// TryAcquire takes a slot without waiting.
func (l *MergeLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *MergeLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// ActiveCount returns the number of running merges.
func (l *MergeLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *MergeLimiter) MaxConcurrent() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no merge is running or ctx ends.
// Used during shutdown so merges can finish writing their output.
func (l *MergeLimiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// MergeLimiterStatus is a snapshot of the limiter for the health endpoint.
type MergeLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *MergeLimiter) Status() MergeLimiterStatus {
	return MergeLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
