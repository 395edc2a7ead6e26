// Package testutils provides test doubles for provider adapters and time
package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jzx17/gofallback/pkg/types"
)

// ErrSimulatedTransient is returned by scripted transient failures
var ErrSimulatedTransient = errors.New("simulated transient failure")

// ErrSimulatedPermanent is returned by scripted permanent failures
var ErrSimulatedPermanent = errors.New("simulated permanent failure")

// Behavior scripts one provider: it receives the 1-based call number for
// that provider and returns the reply or an error.
type Behavior func(n int) (string, error)

// AlwaysFail fails every call with a transient error
func AlwaysFail() Behavior {
	return func(int) (string, error) {
		return "", types.Transient(ErrSimulatedTransient, 503)
	}
}

// AlwaysReject fails every call with a permanent error
func AlwaysReject() Behavior {
	return func(int) (string, error) {
		return "", types.Permanent(ErrSimulatedPermanent, 400)
	}
}

// Succeed returns reply on every call
func Succeed(reply string) Behavior {
	return func(int) (string, error) {
		return reply, nil
	}
}

// FailTimes fails the first n calls transiently, then returns reply
func FailTimes(n int, reply string) Behavior {
	return func(call int) (string, error) {
		if call <= n {
			return "", types.Transient(ErrSimulatedTransient, 429)
		}
		return reply, nil
	}
}

// BlockUntilCancelled waits for the call context to end
func BlockUntilCancelled(ctx context.Context) Behavior {
	return func(int) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
}

// FakeInvoker is a scripted provider adapter keyed by provider name, or by
// "provider/credential" for per-credential scripts. Unscripted providers fail
// permanently.
type FakeInvoker struct {
	mu        sync.Mutex
	behaviors map[string]Behavior
	counts    map[string]int
	calls     []types.Call[string]
	onCall    func(types.Call[string])
}

// NewFakeInvoker creates a fake invoker
func NewFakeInvoker() *FakeInvoker {
	return &FakeInvoker{
		behaviors: make(map[string]Behavior),
		counts:    make(map[string]int),
	}
}

// On scripts key, which is a provider name or "provider/credential"
func (f *FakeInvoker) On(key string, behavior Behavior) *FakeInvoker {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.behaviors[key] = behavior
	return f
}

// OnCall registers a hook run before each scripted call
func (f *FakeInvoker) OnCall(hook func(types.Call[string])) *FakeInvoker {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCall = hook
	return f
}

// Invoke implements the pipeline invoker contract
func (f *FakeInvoker) Invoke(ctx context.Context, call types.Call[string]) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	nodeKey := call.Provider + "/" + call.Credential.Name
	behavior, ok := f.behaviors[nodeKey]
	key := nodeKey
	if !ok {
		behavior, ok = f.behaviors[call.Provider]
		key = call.Provider
	}
	f.counts[key]++
	n := f.counts[key]
	hook := f.onCall
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if !ok {
		return "", types.Permanent(fmt.Errorf("no behavior scripted for %s", nodeKey), 0)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return behavior(n)
}

// Calls returns every call made, in order
func (f *FakeInvoker) Calls() []types.Call[string] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Call[string](nil), f.calls...)
}

// CallCount returns the number of calls for a provider across credentials
func (f *FakeInvoker) CallCount(provider string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Provider == provider {
			n++
		}
	}
	return n
}

// TotalCalls returns the number of calls made
func (f *FakeInvoker) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
