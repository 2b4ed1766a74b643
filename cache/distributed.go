package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uno-framework/uno/vars"
)

// Distributed is the shared tier on redis strings. Keys are namespaced so
// DeletePattern and Flush cannot touch foreign keys on a shared server.
type Distributed struct {
	Rds       *redis.Client
	Namespace string
}

func NewDistributed(rds *redis.Client, namespace string) *Distributed {
	if namespace == "" {
		namespace = "unocache"
	}
	return &Distributed{Rds: rds, Namespace: namespace}
}

func (c *Distributed) fullKey(key string) string { return c.Namespace + ":" + key }

func (c *Distributed) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.Rds.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		missCounter.WithLabelValues("distributed").Inc()
		return nil, vars.ErrCacheMiss
	}
	if err != nil {
		return nil, vars.Wrap(vars.CodeCache, "get", err)
	}
	hitCounter.WithLabelValues("distributed").Inc()
	return data, nil
}

func (c *Distributed) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return vars.Wrap(vars.CodeCache, "set", c.Rds.Set(ctx, c.fullKey(key), value, ttl).Err())
}

func (c *Distributed) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	fullKeys := make([]string, len(keys))
	for i, key := range keys {
		fullKeys[i] = c.fullKey(key)
	}
	return vars.Wrap(vars.CodeCache, "delete", c.Rds.Del(ctx, fullKeys...).Err())
}

// DeletePattern walks the keyspace with SCAN so large namespaces do not
// block the server the way KEYS would.
func (c *Distributed) DeletePattern(ctx context.Context, pattern string) error {
	var (
		cursor uint64
		keys   []string
		err    error
	)
	for {
		keys, cursor, err = c.Rds.Scan(ctx, cursor, c.fullKey(pattern), 256).Result()
		if err != nil {
			return vars.Wrap(vars.CodeCache, "deletePattern", err)
		}
		if len(keys) > 0 {
			if err = c.Rds.Del(ctx, keys...).Err(); err != nil {
				return vars.Wrap(vars.CodeCache, "deletePattern", err)
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}

func (c *Distributed) Flush(ctx context.Context) error {
	return c.DeletePattern(ctx, "*")
}
