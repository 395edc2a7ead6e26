package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jzx17/gofallback/internal/testutils"
)

func TestCache_ConcurrentFirstRequestsBuildOnce(t *testing.T) {
	cache := NewCache[string, string]()
	invoker := testutils.NewFakeInvoker()
	routing := orderingRouting()

	var builds atomic.Int32
	build := func(target string) (*Pipeline[string, string], error) {
		builds.Add(1)
		time.Sleep(10 * time.Millisecond)
		return Build[string, string](target, routing, invoker)
	}

	const n = 64
	results := make([]*Pipeline[string, string], n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			p, err := cache.GetOrBuild("m", build)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	assert.Equal(t, int64(1), cache.Builds())
	assert.Equal(t, 1, cache.Len())
	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestCache_HitDoesNotRebuild(t *testing.T) {
	cache := NewCache[string, string]()
	invoker := testutils.NewFakeInvoker()

	calls := 0
	build := func(target string) (*Pipeline[string, string], error) {
		calls++
		return Build[string, string](target, orderingRouting(), invoker)
	}

	first, err := cache.GetOrBuild("m", build)
	require.NoError(t, err)
	second, err := cache.GetOrBuild("m", build)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	got, ok := cache.Get("m")
	assert.True(t, ok)
	assert.Same(t, first, got)

	_, ok = cache.Get("other")
	assert.False(t, ok)
}

func TestCache_FailedBuildIsNotStored(t *testing.T) {
	cache := NewCache[string, string]()
	invoker := testutils.NewFakeInvoker()
	boom := errors.New("boom")

	calls := 0
	build := func(target string) (*Pipeline[string, string], error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return Build[string, string](target, orderingRouting(), invoker)
	}

	_, err := cache.GetOrBuild("m", build)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())

	p, err := cache.GetOrBuild("m", build)
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(1), cache.Builds())
}

func TestCache_TargetsAreIndependent(t *testing.T) {
	cache := NewCache[string, string]()
	invoker := testutils.NewFakeInvoker()
	routing := orderingRouting()
	routing.Targets["n"] = []string{"p2"}

	build := func(target string) (*Pipeline[string, string], error) {
		return Build[string, string](target, routing, invoker)
	}

	m, err := cache.GetOrBuild("m", build)
	require.NoError(t, err)
	n, err := cache.GetOrBuild("n", build)
	require.NoError(t, err)

	assert.NotSame(t, m, n)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 3, n.Len())
	assert.Equal(t, 2, cache.Len())
}
