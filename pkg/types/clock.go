package types

import (
	"time"

	"github.com/coder/quartz"
)

// Clock provides an abstraction over time operations for testing
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// Since returns the time elapsed since t
	Since(t time.Time) time.Duration
	// NewTimer creates a new Timer
	NewTimer(d time.Duration) Timer
}

// Timer provides timer operations
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// quartzClock implements Clock on top of a quartz clock
type quartzClock struct {
	clock quartz.Clock
	tags  []string
}

// NewRealClock creates a clock backed by real time
func NewRealClock() Clock {
	return &quartzClock{clock: quartz.NewReal()}
}

// NewClock adapts any quartz clock (real or *quartz.Mock). Tags are attached
// to every timer so mock traps can select them.
func NewClock(clock quartz.Clock, tags ...string) Clock {
	if clock == nil {
		return NewRealClock()
	}
	return &quartzClock{clock: clock, tags: tags}
}

func (c *quartzClock) Now() time.Time {
	return c.clock.Now(c.tags...)
}

func (c *quartzClock) Since(t time.Time) time.Duration {
	return c.clock.Since(t, c.tags...)
}

func (c *quartzClock) NewTimer(d time.Duration) Timer {
	return &quartzTimer{timer: c.clock.NewTimer(d, c.tags...)}
}

// quartzTimer wraps quartz.Timer
type quartzTimer struct {
	timer *quartz.Timer
}

func (t *quartzTimer) C() <-chan time.Time {
	return t.timer.C
}

func (t *quartzTimer) Stop() bool {
	return t.timer.Stop()
}
