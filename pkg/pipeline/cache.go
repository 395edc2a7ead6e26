package pipeline

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// BuildFunc builds the pipeline for target
type BuildFunc[T, R any] func(target string) (*Pipeline[T, R], error)

// Cache maps target identifiers to pipelines. Concurrent first requests for
// the same target share a single build; hits are plain reads. Entries are
// never evicted and failed builds are not stored.
type Cache[T, R any] struct {
	mu        sync.RWMutex
	pipelines map[string]*Pipeline[T, R]
	group     singleflight.Group
	builds    atomic.Int64
}

// NewCache creates an empty cache
func NewCache[T, R any]() *Cache[T, R] {
	return &Cache[T, R]{
		pipelines: make(map[string]*Pipeline[T, R]),
	}
}

// Get returns the cached pipeline for target
func (c *Cache[T, R]) Get(target string) (*Pipeline[T, R], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pipelines[target]
	return p, ok
}

// GetOrBuild returns the cached pipeline for target, building and storing it
// on a miss. Every caller observes the same *Pipeline.
func (c *Cache[T, R]) GetOrBuild(target string, build BuildFunc[T, R]) (*Pipeline[T, R], error) {
	if p, ok := c.Get(target); ok {
		return p, nil
	}

	v, err, _ := c.group.Do(target, func() (interface{}, error) {
		// a previous flight may have stored it after our read above
		if p, ok := c.Get(target); ok {
			return p, nil
		}

		p, err := build(target)
		if err != nil {
			return nil, err
		}
		c.builds.Add(1)

		c.mu.Lock()
		c.pipelines[target] = p
		c.mu.Unlock()

		return p, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Pipeline[T, R]), nil
}

// Len returns the number of cached targets
func (c *Cache[T, R]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

// Builds returns how many pipelines were built and stored
func (c *Cache[T, R]) Builds() int64 {
	return c.builds.Load()
}
