package testutils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"

	"github.com/jzx17/gofallback/pkg/types"
)

// Clock wraps a quartz mock and records every timer the code under test
// creates, so a test can wait for a retry wait to begin before advancing.
type Clock struct {
	Mock *quartz.Mock

	inner   types.Clock
	mu      sync.Mutex
	waits   []time.Duration
	started chan time.Duration
}

// NewClock creates a recording mock clock
func NewClock(t testing.TB) *Clock {
	mock := quartz.NewMock(t)
	return &Clock{
		Mock:    mock,
		inner:   types.NewClock(mock),
		started: make(chan time.Duration, 256),
	}
}

// Now returns the mock time
func (c *Clock) Now() time.Time {
	return c.inner.Now()
}

// Since returns the mock time elapsed since t
func (c *Clock) Since(t time.Time) time.Duration {
	return c.inner.Since(t)
}

// NewTimer creates a mock timer and announces it
func (c *Clock) NewTimer(d time.Duration) types.Timer {
	timer := c.inner.NewTimer(d)

	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()

	c.started <- d
	return timer
}

// Waits returns every timer duration requested so far
func (c *Clock) Waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// NextWait blocks until the code under test starts a timer and returns its duration
func (c *Clock) NextWait(t testing.TB) time.Duration {
	t.Helper()
	select {
	case d := <-c.started:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a timer to start")
		return 0
	}
}

// Advance moves the mock clock forward and waits for fired timers to be delivered
func (c *Clock) Advance(t testing.TB, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.Mock.Advance(d).MustWait(ctx)
}

// AdvanceNextWait waits for the next timer and fires it, returning its duration
func (c *Clock) AdvanceNextWait(t testing.TB) time.Duration {
	t.Helper()
	d := c.NextWait(t)
	c.Advance(t, d)
	return d
}
