package scoring

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/squadron/pkg/metrics"
)

// memo is a bounded, concurrency-safe cache for one sub-computation. A nil
// memo caches nothing.
type memo[V any] struct {
	name  string
	cache *lru.Cache[string, V]
}

func newMemo[V any](name string, size int) *memo[V] {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[string, V](size)
	if err != nil {
		// lru.New only fails on a non-positive size, excluded above.
		return nil
	}
	return &memo[V]{name: name, cache: c}
}

// getOrCompute returns the cached value for key or stores compute().
func (m *memo[V]) getOrCompute(key string, compute func() V) V {
	if m == nil {
		return compute()
	}
	if v, ok := m.cache.Get(key); ok {
		metrics.RecordScoreCacheHit(m.name)
		return v
	}
	metrics.RecordScoreCacheMiss(m.name)
	v := compute()
	m.cache.Add(key, v)
	return v
}

func (m *memo[V]) len() int {
	if m == nil {
		return 0
	}
	return m.cache.Len()
}

func (m *memo[V]) purge() {
	if m != nil {
		m.cache.Purge()
	}
}
