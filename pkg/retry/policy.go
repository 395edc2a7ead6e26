package retry

import (
	"fmt"
	"math/rand"
	"time"

	fberrors "github.com/jzx17/gofallback/internal/errors"
)

// DefaultWaits is the process-wide default wait sequence
var DefaultWaits = []time.Duration{3 * time.Second, 5 * time.Second, 6 * time.Second}

// RetryPolicy defines the retry strategy interface
type RetryPolicy interface {
	// ShouldRetry determines whether to retry after the given failed attempt
	ShouldRetry(err error, attempt int) bool

	// NextDelay returns the delay before the attempt following the given one
	NextDelay(attempt int) time.Duration

	// MaxAttempts returns the maximum attempts, the first try included
	MaxAttempts() int
}

// RetryCondition is a function that determines retry conditions
type RetryCondition func(error) bool

// WaitChain waits for each listed duration in turn. It makes one initial
// attempt plus one retry per listed wait; the sequence length is a hard cap.
// A WaitChain is immutable and safe for concurrent use.
type WaitChain struct {
	waits          []time.Duration
	retryCondition RetryCondition
	jitter         JitterFunc
}

// NewWaitChain creates a wait chain policy
func NewWaitChain(waits []time.Duration, opts ...PolicyOption) *WaitChain {
	p := &WaitChain{
		waits:          append([]time.Duration(nil), waits...),
		retryCondition: DefaultRetryCondition,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// DefaultPolicy returns a wait chain over DefaultWaits
func DefaultPolicy() *WaitChain {
	return NewWaitChain(DefaultWaits)
}

// NoRetry returns a policy with a single attempt
func NoRetry() *WaitChain {
	return NewWaitChain(nil)
}

// ShouldRetry determines whether to retry
func (p *WaitChain) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.MaxAttempts() {
		return false
	}
	return p.retryCondition(err)
}

// NextDelay returns waits[attempt-1]
func (p *WaitChain) NextDelay(attempt int) time.Duration {
	if attempt < 1 || attempt > len(p.waits) {
		return 0
	}
	delay := p.waits[attempt-1]
	if p.jitter != nil {
		delay = p.jitter(delay)
	}
	return delay
}

// MaxAttempts returns len(waits)+1
func (p *WaitChain) MaxAttempts() int {
	return len(p.waits) + 1
}

// Waits returns a copy of the wait sequence
func (p *WaitChain) Waits() []time.Duration {
	return append([]time.Duration(nil), p.waits...)
}

// String renders the policy for logs and the plan command
func (p *WaitChain) String() string {
	return fmt.Sprintf("attempts=%d waits=%v", p.MaxAttempts(), p.waits)
}

// PolicyOption is a configuration option for retry policies
type PolicyOption func(*WaitChain)

// WithRetryCondition sets the retry condition
func WithRetryCondition(condition RetryCondition) PolicyOption {
	return func(p *WaitChain) {
		if condition != nil {
			p.retryCondition = condition
		}
	}
}

// WithJitter applies a jitter function to every wait
func WithJitter(jitter JitterFunc) PolicyOption {
	return func(p *WaitChain) {
		p.jitter = jitter
	}
}

// DefaultRetryCondition retries transient errors only
func DefaultRetryCondition(err error) bool {
	return fberrors.IsTransient(err)
}

// JitterFunc jitter function type
type JitterFunc func(time.Duration) time.Duration

// ProportionalJitter returns delay ± factor*delay, never below delay/2
func ProportionalJitter(factor float64) JitterFunc {
	if factor <= 0 || factor > 1 {
		factor = 0.1
	}
	return func(delay time.Duration) time.Duration {
		if delay <= 0 {
			return 0
		}
		jitterRange := float64(delay) * factor
		result := delay + time.Duration((rand.Float64()-0.5)*2*jitterRange)
		if result < delay/2 {
			result = delay / 2
		}
		return result
	}
}
