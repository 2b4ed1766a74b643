package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/uno-framework/uno/async"
	"github.com/uno-framework/uno/ulog"
	"github.com/uno-framework/uno/vars"
)

// Manifest is the on-disk switch for one plugin: <name>.toml in the
// manifest dir. Editing the file while the host runs applies the change.
type Manifest struct {
	Name    string `toml:"name"`
	Enabled bool   `toml:"enabled"`
}

// ApplyManifests reads every manifest in dir and moves plugins toward the
// states the files ask for. Unknown names are logged and skipped.
func (h *Host) ApplyManifests(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return vars.Wrap(vars.CodePlugin, "manifests", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		var m Manifest
		path := filepath.Join(dir, entry.Name())
		if _, err := toml.DecodeFile(path, &m); err != nil {
			ulog.Warn().Err(err).Str("manifest", path).Msg("bad plugin manifest, skipping")
			continue
		}
		if m.Name == "" {
			m.Name = strings.TrimSuffix(entry.Name(), ".toml")
		}
		if _, ok := h.State(m.Name); !ok {
			ulog.Warn().Str("manifest names unknown plugin", m.Name).Send()
			continue
		}
		if m.Enabled {
			if err := h.Enable(ctx, m.Name); err != nil {
				ulog.Warn().Err(err).Str("plugin", m.Name).Msg("manifest enable failed")
			}
		} else {
			if err := h.Disable(ctx, m.Name); err != nil {
				ulog.Warn().Err(err).Str("plugin", m.Name).Msg("manifest disable failed")
			}
		}
	}
	return nil
}

// WatchManifests keeps the host in line with manifest edits until ctx
// ends. Write bursts from editors are coalesced before applying.
func (h *Host) WatchManifests(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return vars.Wrap(vars.CodePlugin, "watch", err)
	}
	if err = watcher.Add(dir); err != nil {
		watcher.Close()
		return vars.Wrap(vars.CodePlugin, "watch", err)
	}
	apply := async.Debounce(time.Millisecond*250, func() {
		if err := h.ApplyManifests(ctx, dir); err != nil {
			ulog.Warn().Err(err).Msg("manifest apply failed")
		}
	})
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					apply()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				ulog.Warn().Err(err).Msg("manifest watcher error")
			}
		}
	}()
	return nil
}
