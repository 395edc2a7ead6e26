package retry

import (
	"fmt"
	"math"
	"time"
)

// defaultMaxDelay caps generated waits when no cap is given
const defaultMaxDelay = 30 * time.Second

// Backoff describes how to generate a wait sequence
type Backoff struct {
	// Strategy is one of fixed, exponential, linear, fibonacci
	Strategy string

	// Retries is the number of waits to generate
	Retries int

	// Initial is the first wait
	Initial time.Duration

	// Increment is added per retry (linear only)
	Increment time.Duration

	// Multiplier scales each wait (exponential only, default 2)
	Multiplier float64

	// MaxDelay caps every wait (default 30s)
	MaxDelay time.Duration
}

// Waits expands the backoff into a concrete wait sequence
func (b Backoff) Waits() ([]time.Duration, error) {
	if b.Retries < 0 {
		return nil, fmt.Errorf("retries must not be negative, got %d", b.Retries)
	}
	if b.Initial < 0 {
		return nil, fmt.Errorf("initial delay must not be negative, got %v", b.Initial)
	}

	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	switch b.Strategy {
	case "fixed", "":
		return FixedWaits(b.Retries, b.Initial), nil
	case "exponential":
		multiplier := b.Multiplier
		if multiplier <= 0 {
			multiplier = 2.0
		}
		return ExponentialWaits(b.Retries, b.Initial, multiplier, maxDelay), nil
	case "linear":
		return LinearWaits(b.Retries, b.Initial, b.Increment, maxDelay), nil
	case "fibonacci":
		return FibonacciWaits(b.Retries, b.Initial, maxDelay), nil
	default:
		return nil, fmt.Errorf("unknown backoff strategy %q", b.Strategy)
	}
}

// FixedWaits returns n copies of delay
func FixedWaits(n int, delay time.Duration) []time.Duration {
	waits := make([]time.Duration, n)
	for i := range waits {
		waits[i] = delay
	}
	return waits
}

// ExponentialWaits returns initial*multiplier^i, capped at maxDelay
func ExponentialWaits(n int, initial time.Duration, multiplier float64, maxDelay time.Duration) []time.Duration {
	waits := make([]time.Duration, n)
	for i := range waits {
		delay := float64(initial) * math.Pow(multiplier, float64(i))
		if delay >= float64(maxDelay) {
			waits[i] = maxDelay
			continue
		}
		waits[i] = time.Duration(delay)
	}
	return waits
}

// LinearWaits returns initial+i*increment, capped at maxDelay
func LinearWaits(n int, initial, increment, maxDelay time.Duration) []time.Duration {
	waits := make([]time.Duration, n)
	for i := range waits {
		delay := initial + time.Duration(i)*increment
		if delay > maxDelay {
			delay = maxDelay
		}
		waits[i] = delay
	}
	return waits
}

// FibonacciWaits returns base*fib(i) (1, 1, 2, 3, 5...), capped at maxDelay
func FibonacciWaits(n int, base, maxDelay time.Duration) []time.Duration {
	waits := make([]time.Duration, n)
	a, b := 1.0, 1.0
	for i := range waits {
		delay := float64(base) * a
		if delay >= float64(maxDelay) {
			// once capped the sequence stays capped
			for j := i; j < n; j++ {
				waits[j] = maxDelay
			}
			break
		}
		waits[i] = time.Duration(delay)
		a, b = b, a+b
	}
	return waits
}
