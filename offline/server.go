package offline

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/uno-framework/uno/obj"
	"github.com/uno-framework/uno/ulog"
	"github.com/uno-framework/uno/vars"
)

const feedStream = "unosync:feed"

// ServerSync is the server half: pushed changes are applied through the
// object registry with an optimistic version check, and every accepted
// change is appended to a redis stream that pull feeds read from.
type ServerSync struct {
	Rds    *redis.Client
	MaxLen int64
}

func NewServerSync(rds *redis.Client) *ServerSync {
	return &ServerSync{Rds: rds, MaxLen: 1000000}
}

// PushResult reports what the server did with a pushed batch.
type PushResult struct {
	Acked     []string `json:"acked"`
	Conflicts []string `json:"conflicts"`
	Rejected  []string `json:"rejected"`
}

func (ss *ServerSync) Apply(ctx context.Context, changes []Change) (*PushResult, error) {
	result := &PushResult{Acked: []string{}, Conflicts: []string{}, Rejected: []string{}}
	for _, ch := range changes {
		resource, ok := obj.Lookup(ch.Table)
		if !ok {
			result.Rejected = append(result.Rejected, ch.ID)
			continue
		}
		if err := ss.applyOne(ctx, resource, ch); err != nil {
			if vars.IsConflict(err) {
				result.Conflicts = append(result.Conflicts, ch.ID)
			} else {
				ulog.Warn().Err(err).Str("table", ch.Table).Str("key", ch.Key).Msg("sync apply failed")
				result.Rejected = append(result.Rejected, ch.ID)
			}
			continue
		}
		if err := ss.record(ctx, ch); err != nil {
			return result, err
		}
		result.Acked = append(result.Acked, ch.ID)
	}
	return result, nil
}

func (ss *ServerSync) applyOne(ctx context.Context, resource obj.Resource, ch Change) error {
	if ch.Op == OpDelete {
		err := resource.DeleteByID(ctx, ch.Key)
		if vars.IsNotFound(err) {
			return nil
		}
		return err
	}
	//optimistic check: the client edited BaseVersion, anything newer on the
	//server means a concurrent write
	if ch.BaseVersion > 0 {
		current, err := resource.CurrentVersion(ctx, ch.Key)
		if err != nil && !vars.IsNotFound(err) {
			return err
		}
		if err == nil && current != ch.BaseVersion {
			return vars.Wrap(vars.CodeOffline, "apply", vars.ErrConflict)
		}
	}
	_, err := resource.UpdateFromMap(ctx, ch.Key, ch.Value)
	if vars.IsNotFound(err) {
		value := ch.Value
		if value == nil {
			value = map[string]interface{}{}
		}
		value[resource.Schema().PK.Column] = ch.Key
		_, err = resource.CreateFromMap(ctx, value)
	}
	return err
}

func (ss *ServerSync) record(ctx context.Context, ch Change) error {
	if ss.Rds == nil {
		return nil
	}
	payload, err := json.Marshal(ch)
	if err != nil {
		return vars.Wrap(vars.CodeOffline, "record", err)
	}
	err = ss.Rds.XAdd(ctx, &redis.XAddArgs{
		Stream: feedStream,
		MaxLen: ss.MaxLen,
		Approx: true,
		Values: map[string]interface{}{"change": string(payload)},
	}).Err()
	return vars.Wrap(vars.CodeOffline, "record", err)
}

// Feed returns changes recorded after cursor (a stream ID, empty for the
// beginning) plus the next cursor.
func (ss *ServerSync) Feed(ctx context.Context, cursor string, limit int) (changes []Change, next string, err error) {
	if ss.Rds == nil {
		return nil, cursor, nil
	}
	start := "-"
	if cursor != "" {
		start = "(" + cursor
	}
	msgs, err := ss.Rds.XRangeN(ctx, feedStream, start, "+", int64(limit)).Result()
	if err != nil {
		return nil, cursor, vars.Wrap(vars.CodeOffline, "feed", err)
	}
	next = cursor
	for _, m := range msgs {
		raw, _ := m.Values["change"].(string)
		var ch Change
		if err := json.Unmarshal([]byte(raw), &ch); err != nil {
			ulog.Warn().Err(err).Str("id", m.ID).Msg("malformed feed entry")
			continue
		}
		changes = append(changes, ch)
		next = m.ID
	}
	return changes, next, nil
}
