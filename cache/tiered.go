package cache

import (
	"context"
	"errors"
	"time"

	"github.com/uno-framework/uno/vars"
	"golang.org/x/sync/singleflight"
)

// Tiered reads through the local tier into the distributed one, promoting
// remote hits. Writes and deletes touch both tiers.
type Tiered struct {
	L1 Cache
	L2 Cache

	group singleflight.Group
}

func NewTiered(l1, l2 Cache) *Tiered {
	return &Tiered{L1: l1, L2: l2}
}

func (c *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	if data, err := c.L1.Get(ctx, key); err == nil {
		return data, nil
	}
	data, err := c.L2.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.L1.Set(ctx, key, data, 0)
	return data, nil
}

func (c *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.L2.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return c.L1.Set(ctx, key, value, ttl)
}

func (c *Tiered) Delete(ctx context.Context, keys ...string) error {
	if err := c.L2.Delete(ctx, keys...); err != nil {
		return err
	}
	return c.L1.Delete(ctx, keys...)
}

func (c *Tiered) DeletePattern(ctx context.Context, pattern string) error {
	if err := c.L2.DeletePattern(ctx, pattern); err != nil {
		return err
	}
	return c.L1.DeletePattern(ctx, pattern)
}

func (c *Tiered) Flush(ctx context.Context) error {
	if err := c.L2.Flush(ctx); err != nil {
		return err
	}
	return c.L1.Flush(ctx)
}

// GetOrLoad returns the cached value or runs loader once per key, however
// many callers pile up behind the miss.
func (c *Tiered) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if data, err := c.Get(ctx, key); err == nil {
		return data, nil
	} else if !errors.Is(err, vars.ErrCacheMiss) {
		return nil, err
	}
	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		data, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err = c.Set(ctx, key, data, ttl); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
