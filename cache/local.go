package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/uno-framework/uno/vars"
)

// Local is the in-process tier: a size-bounded LRU whose entries expire
// after a cache-wide TTL. Per-entry ttl arguments shorter than the
// cache-wide one are honored by storing the deadline alongside the value.
type Local struct {
	lru *expirable.LRU[string, localEntry]
}

type localEntry struct {
	value    []byte
	deadline time.Time
}

func NewLocal(size int, ttl time.Duration) *Local {
	if size <= 0 {
		size = 4096
	}
	return &Local{lru: expirable.NewLRU[string, localEntry](size, nil, ttl)}
}

func (c *Local) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok := c.lru.Get(key)
	if !ok || (!entry.deadline.IsZero() && time.Now().After(entry.deadline)) {
		missCounter.WithLabelValues("local").Inc()
		return nil, vars.ErrCacheMiss
	}
	hitCounter.WithLabelValues("local").Inc()
	return entry.value, nil
}

func (c *Local) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := localEntry{value: value}
	if ttl > 0 {
		entry.deadline = time.Now().Add(ttl)
	}
	c.lru.Add(key, entry)
	return nil
}

func (c *Local) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		c.lru.Remove(key)
	}
	return nil
}

func (c *Local) DeletePattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
	return nil
}

func (c *Local) Flush(ctx context.Context) error {
	c.lru.Purge()
	return nil
}
