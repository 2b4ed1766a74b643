package offline

import (
	"context"
	"time"

	"github.com/uno-framework/uno/async"
	"github.com/uno-framework/uno/ulog"
	"github.com/uno-framework/uno/vars"
)

// Remote is the server seen from an offline store. The HTTP implementation
// lives in remote.go; tests plug in fakes.
type Remote interface {
	Push(ctx context.Context, changes []Change) (ackedIDs []string, err error)
	Pull(ctx context.Context, cursor string, limit int) (changes []Change, next string, err error)
}

// EngineOption tunes a sync engine.
type EngineOption struct {
	BatchSize int
	Resolver  Resolver
	Retry     *async.RetryOption
}

func mergeEngineOptions(ops ...*EngineOption) *EngineOption {
	out := &EngineOption{BatchSize: 128, Resolver: LastWriteWins{}}
	for _, op := range ops {
		if op.BatchSize > 0 {
			out.BatchSize = op.BatchSize
		}
		if op.Resolver != nil {
			out.Resolver = op.Resolver
		}
		if op.Retry != nil {
			out.Retry = op.Retry
		}
	}
	return out
}

// Engine drives synchronization between one Store and one Remote.
type Engine struct {
	Store  *Store
	Remote Remote
	option *EngineOption
}

func NewEngine(store *Store, remote Remote, ops ...*EngineOption) *Engine {
	return &Engine{Store: store, Remote: remote, option: mergeEngineOptions(ops...)}
}

// Push drains the journal in batches. Transient remote failures retry with
// backoff; changes the server refused stay journaled for the next run.
func (e *Engine) Push(ctx context.Context) (pushed int, err error) {
	for {
		changes, err := e.Store.PendingChanges(e.option.BatchSize)
		if err != nil {
			return pushed, err
		}
		if len(changes) == 0 {
			return pushed, nil
		}
		var acked []string
		pushOnce := func() error {
			var pushErr error
			if acked, pushErr = e.Remote.Push(ctx, changes); pushErr != nil {
				return pushErr
			}
			return nil
		}
		var retryOps []*async.RetryOption
		if e.option.Retry != nil {
			retryOps = append(retryOps, e.option.Retry)
		}
		if err = async.Retry(ctx, pushOnce, retryOps...); err != nil {
			return pushed, vars.Wrap(vars.CodeOffline, "push", vars.ErrNetwork)
		}
		if len(acked) == 0 {
			//server accepted nothing from this batch; stop rather than spin
			return pushed, vars.Wrap(vars.CodeOffline, "push", vars.ErrSyncAborted)
		}
		if err = e.Store.MarkApplied(acked); err != nil {
			return pushed, err
		}
		pushed += len(acked)
		if len(changes) < e.option.BatchSize {
			return pushed, nil
		}
	}
}

// Pull fetches remote changes past the cursor and applies them, running
// the resolver where a record also has unsynced local edits.
func (e *Engine) Pull(ctx context.Context) (applied int, err error) {
	cursor, err := e.Store.Cursor()
	if err != nil {
		return 0, err
	}
	for {
		changes, next, err := e.Remote.Pull(ctx, cursor, e.option.BatchSize)
		if err != nil {
			return applied, vars.Wrap(vars.CodeOffline, "pull", vars.ErrNetwork)
		}
		for _, remote := range changes {
			local, found, err := e.Store.PendingFor(remote.Table, remote.Key)
			if err != nil {
				return applied, err
			}
			if !found {
				if err = e.Store.ApplyRemote(remote); err != nil {
					return applied, err
				}
				applied++
				continue
			}
			winner, resolved := e.option.Resolver.Resolve(local, remote)
			switch winner {
			case WinnerLocal:
				//keep the journal entry, the next Push reasserts it
			case WinnerRemote:
				if err = e.Store.DropPending(local.ID); err != nil {
					return applied, err
				}
				if err = e.Store.ApplyRemote(resolved); err != nil {
					return applied, err
				}
				applied++
			case WinnerMerged:
				if err = e.Store.DropPending(local.ID); err != nil {
					return applied, err
				}
				resolved.At = time.Now().UnixMilli()
				if err = e.Store.Put(resolved.Table, resolved.Key, resolved.Value); err != nil {
					return applied, err
				}
				applied++
			}
			ulog.Debug().Str("table", remote.Table).Str("key", remote.Key).Int("winner", int(winner)).Msg("sync conflict resolved")
		}
		if next != "" && next != cursor {
			cursor = next
			if err = e.Store.SetCursor(cursor); err != nil {
				return applied, err
			}
		}
		if len(changes) < e.option.BatchSize {
			return applied, nil
		}
	}
}

// Sync is push then pull.
func (e *Engine) Sync(ctx context.Context) error {
	if _, err := e.Push(ctx); err != nil {
		return err
	}
	_, err := e.Pull(ctx)
	return err
}
