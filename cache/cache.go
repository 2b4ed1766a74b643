package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache is the operation surface shared by the local, distributed and
// tiered caches. Values are opaque bytes; Encode/Decode carry typed values
// across it in msgpack.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes keys matching a redis-style glob, e.g. "user:*".
	DeletePattern(ctx context.Context, pattern string) error
	Flush(ctx context.Context) error
}

var (
	hitCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uno_cache_hits_total",
		Help: "Cache lookups served from a tier.",
	}, []string{"tier"})
	missCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uno_cache_misses_total",
		Help: "Cache lookups that found nothing.",
	}, []string{"tier"})
)

func Encode(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
