// Package retry implements the per-node retry behaviour of a fallback pipeline.
//
// A WaitChain policy lists the waits between attempts. It always makes one
// initial attempt and one retry per listed wait, so [3s, 5s, 6s] yields four
// attempts; there is no attempt beyond the last listed wait.
//
//	policy := retry.NewWaitChain([]time.Duration{3 * time.Second, 5 * time.Second, 6 * time.Second})
//	executor := retry.NewRetryExecutor(policy, retry.WithEventHandler(retry.NewLogEventHandler(logger)))
//
//	reply, attempts, err := retry.ExecuteWithName(executor, ctx, "openrouter/key-1",
//		func(ctx context.Context) (string, error) {
//			return callProvider(ctx)
//		})
//
// Only transient errors are retried (see internal/errors.Classify). A
// non-retryable error fails after one attempt. Cancelling ctx interrupts
// both the call and any pending wait and returns the context error as is.
//
// Wait sequences can also be generated from a Backoff description
// (fixed, exponential, linear or fibonacci):
//
//	waits, err := retry.Backoff{Strategy: "exponential", Retries: 3, Initial: time.Second}.Waits()
//
// All waits go through types.Clock so tests can drive them with a quartz mock.
package retry
