package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/jzx17/gofallback/internal/testutils"
	"github.com/jzx17/gofallback/pkg/types"
)

// orderingRouting: providers [p1, p2], primary p1 with c1 and c2, secondary c3 for p2
func orderingRouting() *types.Routing {
	return &types.Routing{
		Targets: map[string][]string{"m": {"p1", "p2"}},
		Primary: types.PrimaryClass{
			Provider: "p1",
			Credentials: []types.Credential{
				{Name: "c1", Secret: "s1", Class: types.ClassPrimary},
				{Name: "c2", Secret: "s2", Class: types.ClassPrimary},
			},
		},
		Secondary: []types.Credential{
			{Name: "c3", Secret: "s3", Class: types.ClassSecondary, Providers: []string{"p2"}},
		},
	}
}

// fallbackRouting: primary p1 with c1, secondary c3 for p2, default waits
func fallbackRouting() *types.Routing {
	return &types.Routing{
		Targets: map[string][]string{"m": {"p1", "p2"}},
		Primary: types.PrimaryClass{
			Provider:    "p1",
			Credentials: []types.Credential{{Name: "c1", Secret: "s1", Class: types.ClassPrimary}},
		},
		Secondary: []types.Credential{
			{Name: "c3", Secret: "s3", Class: types.ClassSecondary, Providers: []string{"p2"}},
		},
		Waits: []time.Duration{3 * time.Second, 5 * time.Second, 6 * time.Second},
	}
}

type execResult struct {
	outcome Outcome[string]
	err     error
}

// executeAsync runs Execute in a goroutine so the test can drive the clock
func executeAsync(ctx context.Context, exec *Executor[string, string], target, payload string) <-chan execResult {
	done := make(chan execResult, 1)
	go func() {
		out, err := exec.Execute(ctx, target, payload)
		done <- execResult{outcome: out, err: err}
	}()
	return done
}

func awaitResult(t *testing.T, done <-chan execResult) execResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("execution did not finish")
		return execResult{}
	}
}

func newTestExecutor(routing *types.Routing, invoker *testutils.FakeInvoker, clock *testutils.Clock, opts ...Option) *Executor[string, string] {
	opts = append([]Option{WithClock(clock)}, opts...)
	return NewExecutor[string, string](routing, invoker, opts...)
}
