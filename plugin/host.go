package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/uno-framework/uno/ulog"
	"github.com/uno-framework/uno/vars"
)

type record struct {
	plugin Plugin
	state  State
}

// Host owns plugin lifecycle: Load → Enable → Disable → Unload. Enable
// order respects Requires; EnableAll runs a topological sort over the
// loaded set.
type Host struct {
	mu      sync.Mutex
	records map[string]*record
}

func NewHost() *Host {
	return &Host{records: map[string]*record{}}
}

func (h *Host) Load(p Plugin) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	name := p.Name()
	if _, exists := h.records[name]; exists {
		return vars.Wrap(vars.CodePlugin, "load", fmt.Errorf("plugin %q already loaded", name))
	}
	if err := p.Init(h); err != nil {
		return vars.Wrap(vars.CodePlugin, "load", err)
	}
	h.records[name] = &record{plugin: p, state: StateLoaded}
	ulog.Info().Str("plugin loaded", name).Str("version", p.Version()).Send()
	return nil
}

func (h *Host) State(name string) (State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.records[name]
	if !ok {
		return "", false
	}
	return rec.state, true
}

func (h *Host) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.records))
	for name := range h.records {
		names = append(names, name)
	}
	return names
}

// Enable starts one plugin after every dependency is enabled.
func (h *Host) Enable(ctx context.Context, name string) error {
	h.mu.Lock()
	rec, ok := h.records[name]
	if !ok {
		h.mu.Unlock()
		return vars.Wrap(vars.CodePlugin, "enable", vars.ErrUnknownPlugin)
	}
	if rec.state == StateEnabled {
		h.mu.Unlock()
		return nil
	}
	for _, dep := range rec.plugin.Requires() {
		depRec, ok := h.records[dep]
		if !ok {
			h.mu.Unlock()
			return vars.Wrap(vars.CodePlugin, "enable", fmt.Errorf("%w: %q requires %q", vars.ErrUnknownPlugin, name, dep))
		}
		if depRec.state != StateEnabled {
			h.mu.Unlock()
			return vars.Wrap(vars.CodePlugin, "enable", fmt.Errorf("%q requires %q which is %s", name, dep, depRec.state))
		}
	}
	h.mu.Unlock()

	if err := rec.plugin.Start(ctx); err != nil {
		return vars.Wrap(vars.CodePlugin, "enable", err)
	}
	h.mu.Lock()
	rec.state = StateEnabled
	h.mu.Unlock()
	ulog.Info().Str("plugin enabled", name).Send()
	return nil
}

// EnableAll enables every loaded plugin in dependency order.
func (h *Host) EnableAll(ctx context.Context) error {
	order, err := h.topoOrder()
	if err != nil {
		return err
	}
	for _, name := range order {
		if state, _ := h.State(name); state == StateDisabled {
			continue
		}
		if err := h.Enable(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) Disable(ctx context.Context, name string) error {
	h.mu.Lock()
	rec, ok := h.records[name]
	if !ok {
		h.mu.Unlock()
		return vars.Wrap(vars.CodePlugin, "disable", vars.ErrUnknownPlugin)
	}
	//disabling a dependency of an enabled plugin would strand it
	for other, otherRec := range h.records {
		if otherRec.state != StateEnabled || other == name {
			continue
		}
		for _, dep := range otherRec.plugin.Requires() {
			if dep == name {
				h.mu.Unlock()
				return vars.Wrap(vars.CodePlugin, "disable", fmt.Errorf("%w: %q still required by %q", vars.ErrBadTransition, name, other))
			}
		}
	}
	wasEnabled := rec.state == StateEnabled
	h.mu.Unlock()

	if wasEnabled {
		if err := rec.plugin.Stop(ctx); err != nil {
			return vars.Wrap(vars.CodePlugin, "disable", err)
		}
	}
	h.mu.Lock()
	rec.state = StateDisabled
	h.mu.Unlock()
	ulog.Info().Str("plugin disabled", name).Send()
	return nil
}

func (h *Host) Unload(ctx context.Context, name string) error {
	if state, ok := h.State(name); !ok {
		return vars.Wrap(vars.CodePlugin, "unload", vars.ErrUnknownPlugin)
	} else if state == StateEnabled {
		if err := h.Disable(ctx, name); err != nil {
			return err
		}
	}
	h.mu.Lock()
	delete(h.records, name)
	h.mu.Unlock()
	dropHooks(name)
	ulog.Info().Str("plugin unloaded", name).Send()
	return nil
}

// topoOrder sorts loaded plugins so dependencies come first; a cycle or a
// missing dependency is an error.
func (h *Host) topoOrder() ([]string, error) {
	h.mu.Lock()
	requires := map[string][]string{}
	for name, rec := range h.records {
		requires[name] = rec.plugin.Requires()
	}
	h.mu.Unlock()

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var order []string
	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case gray:
			return vars.Wrap(vars.CodePlugin, "order", fmt.Errorf("%w: at %q", vars.ErrCycle, name))
		case black:
			return nil
		}
		deps, ok := requires[name]
		if !ok {
			return vars.Wrap(vars.CodePlugin, "order", fmt.Errorf("%w: %q", vars.ErrUnknownPlugin, name))
		}
		color[name] = gray
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[name] = black
		order = append(order, name)
		return nil
	}
	names := make([]string, 0, len(requires))
	for name := range requires {
		names = append(names, name)
	}
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
