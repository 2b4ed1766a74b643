package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/uno-framework/uno/event"
	"github.com/uno-framework/uno/ulog"
)

// Strategy selects how entries leave the cache. TTL is carried by Set
// calls; Pattern and Event are driven from outside through the helpers
// below.
type Strategy string

const (
	StrategyTTL     Strategy = "ttl"
	StrategyPattern Strategy = "pattern"
	StrategyEvent   Strategy = "event"
)

// InvalidationEvent is the payload published on cache.invalidate topics.
// Either Keys or Pattern is set.
type InvalidationEvent struct {
	Keys    []string `json:"keys,omitempty"`
	Pattern string   `json:"pattern,omitempty"`
}

const invalidateTopic = "cache.invalidate"

// PublishInvalidation tells every process to drop the given keys from its
// local tier; the publisher should already have cleared the shared tier.
func PublishInvalidation(ctx context.Context, bus *event.Bus, ev InvalidationEvent) error {
	return bus.Publish(ctx, invalidateTopic, ev)
}

// Invalidator keeps a cache coherent with remote writes by applying
// invalidation events published on the bus. Run it once per process that
// holds a local tier.
type Invalidator struct {
	Cache Cache
	Bus   *event.Bus
}

func (iv *Invalidator) Run(ctx context.Context) {
	messages, stop := iv.Bus.Subscribe(ctx, invalidateTopic)
	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var ev InvalidationEvent
				if err := json.Unmarshal(msg.Data, &ev); err != nil {
					ulog.Warn().Err(err).Msg("malformed cache invalidation event")
					continue
				}
				applyCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
				if len(ev.Keys) > 0 {
					iv.Cache.Delete(applyCtx, ev.Keys...)
				}
				if ev.Pattern != "" {
					iv.Cache.DeletePattern(applyCtx, ev.Pattern)
				}
				cancel()
			}
		}
	}()
}
