package security

import (
	"context"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/redis/go-redis/v9"
	"github.com/uno-framework/uno/async"
	"github.com/uno-framework/uno/config"
	"github.com/uno-framework/uno/ulog"
)

const permissionHashKey = "_unopermissions"

// Permissions gates table/verb operations. The allow table lives in a
// redis hash shared by all nodes and is mirrored into a local concurrent
// map for lock-free checks; the mirror refreshes on an interval.
type Permissions struct {
	Rds       *redis.Client
	permitmap cmap.ConcurrentMap[string, bool]
	loaded    bool
}

func NewPermissions(rds *redis.Client) *Permissions {
	return &Permissions{Rds: rds, permitmap: cmap.New[bool]()}
}

// IsPermitted checks operation keys of the form "<table>::<verb>".
// Blacklist entries ("<op>::off") win over whitelist ones. In dev,
// AutoPermit records and allows every first-seen operation.
func (p *Permissions) IsPermitted(table, verb string) bool {
	var (
		permitKey                             = table + "::" + verb
		permitKeyAllowed, permitKeyDisallowed = permitKey + "::on", permitKey + "::off"
	)
	if _, ok := p.permitmap.Get(permitKeyDisallowed); ok {
		return false
	}
	if _, ok := p.permitmap.Get(permitKeyAllowed); ok {
		return true
	}
	if config.Cfg.Security.AutoPermit {
		p.permitmap.Set(permitKeyAllowed, true)
		if p.Rds != nil {
			p.Rds.HSet(context.Background(), permissionHashKey, permitKeyAllowed, time.Now().Format("2006-01-02 15:04:05"))
		}
		return true
	}
	return false
}

// Allow persists a whitelist entry; Deny a blacklist one.
func (p *Permissions) Allow(ctx context.Context, table, verb string) error {
	key := table + "::" + verb + "::on"
	p.permitmap.Set(key, true)
	if p.Rds == nil {
		return nil
	}
	return p.Rds.HSet(ctx, permissionHashKey, key, time.Now().Format("2006-01-02 15:04:05")).Err()
}

func (p *Permissions) Deny(ctx context.Context, table, verb string) error {
	key := table + "::" + verb + "::off"
	p.permitmap.Set(key, true)
	if p.Rds == nil {
		return nil
	}
	return p.Rds.HSet(ctx, permissionHashKey, key, time.Now().Format("2006-01-02 15:04:05")).Err()
}

// Load replaces the mirror with the current redis table and keeps it fresh
// until ctx ends.
func (p *Permissions) Load(ctx context.Context) {
	p.reload(ctx)
	async.Every(ctx, time.Minute, func() { p.reload(ctx) })
}

func (p *Permissions) reload(ctx context.Context) {
	if p.Rds == nil {
		return
	}
	keys, err := p.Rds.HKeys(ctx, permissionHashKey).Result()
	for ; !p.loaded; p.loaded = true {
		if err != nil {
			ulog.Warn().AnErr("Step2.1: permission loading from redis failed", err).Send()
		} else {
			ulog.Info().Msg("Step2.2: permission table loaded from redis")
		}
	}
	if err != nil {
		return
	}
	fresh := cmap.New[bool]()
	for _, key := range keys {
		fresh.Set(key, true)
	}
	p.permitmap = fresh
}
