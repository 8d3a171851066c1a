package cache

import (
	"context"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rubiojr/codesnippets/pkg/metrics"
)

// MemoryCache is an in-process cache with the same TTL and size semantics
// as RedisCache. Reads use Peek so they never change eviction order, which
// makes the LRU evict by insertion order.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory returns an in-process cache.
func NewMemory(opts Options) *MemoryCache {
	opts = opts.withDefaults()
	onEvict := func(key string, _ []byte) {
		logger.Debugf("evicted %s", key)
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](opts.MaxEntries, onEvict, opts.TTL)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Peek(key)
}

func (m *MemoryCache) Set(_ context.Context, key string, val []byte) {
	if m.lru.Add(key, val) {
		metrics.RecordEvictions(BackendMemory, 1)
	}
}

// Len returns the number of live entries.
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

func (m *MemoryCache) Close() error {
	m.lru.Purge()
	return nil
}
