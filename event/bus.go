package event

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/uno-framework/uno/ulog"
	"github.com/uno-framework/uno/vars"
)

const channelPrefix = "unoevent."

// Message is the envelope carried on every topic.
type Message struct {
	ID    string          `json:"id"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// Bus is the process-spanning publish/subscribe fabric on redis channels.
// Object writes, cache invalidations and sync notifications all ride on it.
type Bus struct {
	Rds *redis.Client
}

func NewBus(rds *redis.Client) *Bus {
	return &Bus{Rds: rds}
}

func (b *Bus) Publish(ctx context.Context, topic string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return vars.Wrap(vars.CodeEvent, "publish", err)
	}
	msg := Message{ID: uuid.NewString(), Topic: topic, Data: raw, At: time.Now().UnixMilli()}
	payload, err := json.Marshal(msg)
	if err != nil {
		return vars.Wrap(vars.CodeEvent, "publish", err)
	}
	return vars.Wrap(vars.CodeEvent, "publish", b.Rds.Publish(ctx, channelPrefix+topic, payload).Err())
}

// Subscribe listens on redis glob patterns ("obj.user.*"). The returned stop
// function closes the subscription and the channel.
func (b *Bus) Subscribe(ctx context.Context, patterns ...string) (<-chan Message, func()) {
	prefixed := make([]string, len(patterns))
	for i, p := range patterns {
		prefixed[i] = channelPrefix + p
	}
	sub := b.Rds.PSubscribe(ctx, prefixed...)
	out := make(chan Message, 64)
	go func() {
		defer close(out)
		for redisMsg := range sub.Channel() {
			var msg Message
			if err := json.Unmarshal([]byte(redisMsg.Payload), &msg); err != nil {
				ulog.Warn().Err(err).Str("channel", redisMsg.Channel).Msg("dropping malformed event")
				continue
			}
			select {
			case out <- msg:
			default:
				ulog.Warn().Str("topic", msg.Topic).Msg("slow event subscriber, dropping message")
			}
		}
	}()
	return out, func() { sub.Close() }
}

// MatchTopic reports whether a glob pattern covers a topic; used by the hub
// for per-connection filters.
func MatchTopic(pattern, topic string) bool {
	ok, err := path.Match(pattern, topic)
	return err == nil && ok
}
