package security

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uno-framework/uno/ulog"
	"github.com/uno-framework/uno/vars"
)

const auditStream = "unoaudit"

// AuditEvent is one security-relevant action.
type AuditEvent struct {
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	Target  string `json:"target"`
	Outcome string `json:"outcome"`
	IP      string `json:"ip"`
	At      int64  `json:"at"`
}

// Audit appends events to a capped redis stream and mirrors them to the
// log, so the trail survives process restarts and is tail-able fleet-wide.
type Audit struct {
	Rds    *redis.Client
	MaxLen int64
}

func NewAudit(rds *redis.Client) *Audit {
	return &Audit{Rds: rds, MaxLen: 100000}
}

func (a *Audit) Record(ctx context.Context, ev AuditEvent) error {
	if ev.At == 0 {
		ev.At = time.Now().UnixMilli()
	}
	ulog.Info().
		Str("actor", ev.Actor).Str("action", ev.Action).Str("target", ev.Target).
		Str("outcome", ev.Outcome).Str("ip", ev.IP).Msg("audit")
	if a.Rds == nil {
		return nil
	}
	err := a.Rds.XAdd(ctx, &redis.XAddArgs{
		Stream: auditStream,
		MaxLen: a.MaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"actor": ev.Actor, "action": ev.Action, "target": ev.Target,
			"outcome": ev.Outcome, "ip": ev.IP, "at": ev.At,
		},
	}).Err()
	return vars.Wrap(vars.CodeSecurity, "audit", err)
}

// Tail returns the most recent count events, newest first.
func (a *Audit) Tail(ctx context.Context, count int64) ([]AuditEvent, error) {
	if a.Rds == nil {
		return nil, nil
	}
	msgs, err := a.Rds.XRevRangeN(ctx, auditStream, "+", "-", count).Result()
	if err != nil {
		return nil, vars.Wrap(vars.CodeSecurity, "auditTail", err)
	}
	out := make([]AuditEvent, 0, len(msgs))
	for _, m := range msgs {
		ev := AuditEvent{}
		if s, ok := m.Values["actor"].(string); ok {
			ev.Actor = s
		}
		if s, ok := m.Values["action"].(string); ok {
			ev.Action = s
		}
		if s, ok := m.Values["target"].(string); ok {
			ev.Target = s
		}
		if s, ok := m.Values["outcome"].(string); ok {
			ev.Outcome = s
		}
		if s, ok := m.Values["ip"].(string); ok {
			ev.IP = s
		}
		out = append(out, ev)
	}
	return out, nil
}
