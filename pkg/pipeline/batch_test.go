package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/gofallback/internal/testutils"
	"github.com/jzx17/gofallback/pkg/retry"
	"github.com/jzx17/gofallback/pkg/types"
)

func TestExecuteBatch_ResultsByIndex(t *testing.T) {
	invoker := testutils.NewFakeInvoker().
		On("p1", testutils.AlwaysReject()).
		On("p2", testutils.Succeed("ok"))
	exec := NewExecutor[string, string](fallbackRouting(), invoker, WithBatchWorkers(3))

	reqs := []Request[string]{
		{Target: "m", Payload: "a"},
		{Target: "unknown", Payload: "b"},
		{Target: "m", Payload: "c"},
		{Target: "m", Payload: "d"},
		{Target: "unknown", Payload: "e"},
	}

	results := exec.ExecuteBatch(context.Background(), reqs)
	require.Len(t, results, len(reqs))

	for i, res := range results {
		assert.Equal(t, i, res.Index)
		if reqs[i].Target == "unknown" {
			assert.True(t, types.IsConfigurationError(res.Err), "request %d", i)
			continue
		}
		require.NoError(t, res.Err, "request %d", i)
		assert.Equal(t, "ok", res.Outcome.Value)
		assert.Equal(t, "p2", res.Outcome.Node.Provider)
	}

	payloads := map[string]bool{}
	for _, c := range invoker.Calls() {
		payloads[c.Payload] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "c": true, "d": true}, payloads)
}

func TestExecuteBatch_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	invoker := InvokerFunc[string, string](func(ctx context.Context, call types.Call[string]) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return call.Payload, nil
	})
	exec := NewExecutor[string, string](fallbackRouting(), invoker, WithBatchWorkers(2))

	reqs := make([]Request[string], 10)
	for i := range reqs {
		reqs[i] = Request[string]{Target: "m", Payload: fmt.Sprintf("p%d", i)}
	}

	results := exec.ExecuteBatch(context.Background(), reqs)
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, fmt.Sprintf("p%d", i), res.Outcome.Value)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExecuteBatch_PanicBecomesError(t *testing.T) {
	invoker := InvokerFunc[string, string](func(ctx context.Context, call types.Call[string]) (string, error) {
		if call.Payload == "boom" {
			panic("adapter exploded")
		}
		return call.Payload, nil
	})
	exec := NewExecutor[string, string](fallbackRouting(), invoker, WithBatchWorkers(2))

	results := exec.ExecuteBatch(context.Background(), []Request[string]{
		{Target: "m", Payload: "ok"},
		{Target: "m", Payload: "boom"},
	})
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "ok", results[0].Outcome.Value)

	require.Error(t, results[1].Err)
	assert.ErrorIs(t, results[1].Err, ErrRequestPanicked)
	assert.Contains(t, results[1].Err.Error(), "adapter exploded")
	assert.Zero(t, results[1].Outcome.Attempts)
}

func TestExecuteBatch_Empty(t *testing.T) {
	exec := NewExecutor[string, string](fallbackRouting(), testutils.NewFakeInvoker())
	assert.Empty(t, exec.ExecuteBatch(context.Background(), nil))
}

func TestExecuteBatch_Cancelled(t *testing.T) {
	invoker := testutils.NewFakeInvoker().On("p1", testutils.Succeed("x"))
	exec := NewExecutor[string, string](fallbackRouting(), invoker, WithRetryPolicy(retry.NoRetry()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs := []Request[string]{{Target: "m"}, {Target: "m"}, {Target: "m"}}
	results := exec.ExecuteBatch(ctx, reqs)

	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.True(t, types.IsCancelled(res.Err), "request %d: %v", i, res.Err)
	}
	assert.Equal(t, 0, invoker.TotalCalls())
}
