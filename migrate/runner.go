package migrate

import (
	"context"
	"database/sql"
	"io/fs"
	"time"

	"github.com/uno-framework/uno/ulog"
	"github.com/uno-framework/uno/vars"
)

const trackingTable = `CREATE TABLE IF NOT EXISTS uno_migrations (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMP WITH TIME ZONE NOT NULL
);`

// Runner applies migrations from a directory to one database. Each
// migration runs in its own transaction together with its tracking row.
type Runner struct {
	DB  *sql.DB
	FS  fs.FS
	all []*Migration
}

func NewRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	all, err := LoadDir(fsys)
	if err != nil {
		return nil, err
	}
	return &Runner{DB: db, FS: fsys, all: all}, nil
}

func (r *Runner) ensureTracking(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, trackingTable)
	return vars.Wrap(vars.CodeMigrate, "tracking", err)
}

// Applied returns the applied version set.
func (r *Runner) Applied(ctx context.Context) (map[int64]bool, error) {
	if err := r.ensureTracking(ctx); err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, "SELECT version FROM uno_migrations")
	if err != nil {
		return nil, vars.Wrap(vars.CodeMigrate, "applied", err)
	}
	defer rows.Close()
	applied := map[int64]bool{}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, vars.Wrap(vars.CodeMigrate, "applied", err)
		}
		applied[v] = true
	}
	return applied, vars.Wrap(vars.CodeMigrate, "applied", rows.Err())
}

// Up applies every pending migration in dependency order.
func (r *Runner) Up(ctx context.Context) error {
	return r.UpTo(ctx, -1)
}

// UpTo stops after the given version; -1 means no bound.
func (r *Runner) UpTo(ctx context.Context, maxVersion int64) error {
	ordered, err := order(r.all)
	if err != nil {
		return err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}
	for _, m := range pendingUpTo(ordered, applied, maxVersion) {
		if err := r.applyOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// pendingUpTo picks the migrations to apply, in application order. The
// version bound holds back higher versions, and a migration whose
// dependency is held back is held back with it: a depends edge may point
// at a higher version, and applying the dependent alone would run it
// without its declared prerequisite.
func pendingUpTo(ordered []*Migration, applied map[int64]bool, maxVersion int64) []*Migration {
	held := map[int64]bool{}
	var out []*Migration
	for _, m := range ordered {
		if applied[m.Version] {
			continue
		}
		if maxVersion >= 0 && m.Version > maxVersion {
			held[m.Version] = true
			continue
		}
		blocked := false
		for _, dep := range m.Depends {
			if held[dep] {
				blocked = true
				break
			}
		}
		if blocked {
			held[m.Version] = true
			ulog.Warn().Int64("version", m.Version).Msg("migration held back, its dependency is above the bound")
			continue
		}
		out = append(out, m)
	}
	return out
}

func (r *Runner) applyOne(ctx context.Context, m *Migration) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return vars.Wrap(vars.CodeMigrate, "up", err)
	}
	if _, err = tx.ExecContext(ctx, m.Up); err != nil {
		tx.Rollback()
		return vars.Wrap(vars.CodeMigrate, "up", err)
	}
	if _, err = tx.ExecContext(ctx, "INSERT INTO uno_migrations (version, name, applied_at) VALUES ($1, $2, $3)", m.Version, m.Name, time.Now()); err != nil {
		tx.Rollback()
		return vars.Wrap(vars.CodeMigrate, "up", err)
	}
	if err = tx.Commit(); err != nil {
		return vars.Wrap(vars.CodeMigrate, "up", err)
	}
	ulog.Info().Int64("version", m.Version).Str("name", m.Name).Msg("migration applied")
	return nil
}

// Down rolls back the migration applied last, in dependency terms: the
// applied one nothing else applied still depends on.
func (r *Runner) Down(ctx context.Context) error {
	ordered, err := order(r.all)
	if err != nil {
		return err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}
	plan := revertPlan(ordered, applied, -1)
	if len(plan) == 0 {
		return nil
	}
	return r.revertOne(ctx, plan[0])
}

// DownTo rolls back every applied migration above the given version, in
// reverse application order.
func (r *Runner) DownTo(ctx context.Context, keepVersion int64) error {
	ordered, err := order(r.all)
	if err != nil {
		return err
	}
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}
	for _, m := range revertPlan(ordered, applied, keepVersion) {
		if err := r.revertOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// revertPlan lists applied migrations above keepVersion in reverse
// application order, so dependents come off before what they depend on.
// Version order alone is not enough when a depends edge points at a
// higher version.
func revertPlan(ordered []*Migration, applied map[int64]bool, keepVersion int64) []*Migration {
	var out []*Migration
	for i := len(ordered) - 1; i >= 0; i-- {
		m := ordered[i]
		if applied[m.Version] && m.Version > keepVersion {
			out = append(out, m)
		}
	}
	return out
}

func (r *Runner) revertOne(ctx context.Context, m *Migration) error {
	if m.Down == "" {
		return vars.Wrap(vars.CodeMigrate, "down", vars.ErrIrreversible)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return vars.Wrap(vars.CodeMigrate, "down", err)
	}
	if _, err = tx.ExecContext(ctx, m.Down); err != nil {
		tx.Rollback()
		return vars.Wrap(vars.CodeMigrate, "down", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM uno_migrations WHERE version = $1", m.Version); err != nil {
		tx.Rollback()
		return vars.Wrap(vars.CodeMigrate, "down", err)
	}
	if err = tx.Commit(); err != nil {
		return vars.Wrap(vars.CodeMigrate, "down", err)
	}
	ulog.Info().Int64("version", m.Version).Str("name", m.Name).Msg("migration reverted")
	return nil
}

// StatusEntry pairs a known migration with whether it has been applied.
type StatusEntry struct {
	Version int64
	Name    string
	Applied bool
}

func (r *Runner) Status(ctx context.Context) ([]StatusEntry, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StatusEntry, 0, len(r.all))
	for _, m := range r.all {
		out = append(out, StatusEntry{Version: m.Version, Name: m.Name, Applied: applied[m.Version]})
	}
	return out, nil
}
