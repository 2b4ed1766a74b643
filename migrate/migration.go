package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/uno-framework/uno/vars"
)

// Migration is one parsed NNNN_name.sql file. Statements above the
// "-- DOWN" marker migrate up, the rest roll back; Depends lists versions
// that must be applied first regardless of numeric order.
type Migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
	Depends []int64
}

var fileNameRe = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)
var downMarkerRe = regexp.MustCompile(`(?mi)^--\s*DOWN\s*$`)
var dependsRe = regexp.MustCompile(`(?mi)^--\s*depends:\s*(.+)$`)

// LoadDir parses every migration file in fsys, sorted by version.
// Duplicate versions are an error.
func LoadDir(fsys fs.FS) ([]*Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, vars.Wrap(vars.CodeMigrate, "load", err)
	}
	seen := map[int64]string{}
	var out []*Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := fileNameRe.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return nil, vars.Wrap(vars.CodeMigrate, "load", err)
		}
		if prev, dup := seen[version]; dup {
			return nil, vars.Wrap(vars.CodeMigrate, "load", fmt.Errorf("version %d defined by both %s and %s", version, prev, entry.Name()))
		}
		seen[version] = entry.Name()

		raw, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, vars.Wrap(vars.CodeMigrate, "load", err)
		}
		m, err := parse(version, match[2], string(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func parse(version int64, name, raw string) (*Migration, error) {
	m := &Migration{Version: version, Name: name}
	for _, match := range dependsRe.FindAllStringSubmatch(raw, -1) {
		for _, tok := range strings.Split(match[1], ",") {
			dep, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
			if err != nil {
				return nil, vars.Wrap(vars.CodeMigrate, "parse", fmt.Errorf("migration %d: bad depends entry %q", version, tok))
			}
			m.Depends = append(m.Depends, dep)
		}
	}
	if loc := downMarkerRe.FindStringIndex(raw); loc != nil {
		m.Up = strings.TrimSpace(raw[:loc[0]])
		m.Down = strings.TrimSpace(raw[loc[1]:])
	} else {
		m.Up = strings.TrimSpace(raw)
	}
	if m.Up == "" {
		return nil, vars.Wrap(vars.CodeMigrate, "parse", fmt.Errorf("migration %d has no up statements", version))
	}
	return m, nil
}

// order returns migrations sorted by version, then adjusted so every
// Depends edge points backward. Missing dependencies and cycles fail.
func order(migrations []*Migration) ([]*Migration, error) {
	byVersion := map[int64]*Migration{}
	for _, m := range migrations {
		byVersion[m.Version] = m
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[int64]int{}
	var out []*Migration
	var visit func(m *Migration) error
	visit = func(m *Migration) error {
		switch color[m.Version] {
		case gray:
			return vars.Wrap(vars.CodeMigrate, "order", fmt.Errorf("%w: at version %d", vars.ErrCycle, m.Version))
		case black:
			return nil
		}
		color[m.Version] = gray
		for _, dep := range m.Depends {
			depM, ok := byVersion[dep]
			if !ok {
				return vars.Wrap(vars.CodeMigrate, "order", fmt.Errorf("migration %d depends on unknown version %d", m.Version, dep))
			}
			if err := visit(depM); err != nil {
				return err
			}
		}
		color[m.Version] = black
		out = append(out, m)
		return nil
	}
	for _, m := range migrations {
		if err := visit(m); err != nil {
			return nil, err
		}
	}
	return out, nil
}
