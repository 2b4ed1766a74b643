package plugin

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uno-framework/uno/vars"
)

// stubPlugin records its lifecycle calls.
type stubPlugin struct {
	name     string
	requires []string
	startErr error

	mu      sync.Mutex
	started int
	stopped int
	order   *[]string
}

func (p *stubPlugin) Name() string       { return p.name }
func (p *stubPlugin) Version() string    { return "1.0.0" }
func (p *stubPlugin) Requires() []string { return p.requires }
func (p *stubPlugin) Init(h *Host) error { return nil }

func (p *stubPlugin) Start(ctx context.Context) error {
	if p.startErr != nil {
		return p.startErr
	}
	p.mu.Lock()
	p.started++
	if p.order != nil {
		*p.order = append(*p.order, p.name)
	}
	p.mu.Unlock()
	return nil
}

func (p *stubPlugin) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.stopped++
	p.mu.Unlock()
	return nil
}

func TestLoadAndEnable(t *testing.T) {
	h := NewHost()
	p := &stubPlugin{name: "alpha"}
	require.NoError(t, h.Load(p))

	state, ok := h.State("alpha")
	require.True(t, ok)
	require.Equal(t, StateLoaded, state)

	require.NoError(t, h.Enable(context.Background(), "alpha"))
	state, _ = h.State("alpha")
	require.Equal(t, StateEnabled, state)
	require.Equal(t, 1, p.started)

	// enabling twice is a no-op
	require.NoError(t, h.Enable(context.Background(), "alpha"))
	require.Equal(t, 1, p.started)
}

func TestLoadDuplicate(t *testing.T) {
	h := NewHost()
	require.NoError(t, h.Load(&stubPlugin{name: "alpha"}))
	require.Error(t, h.Load(&stubPlugin{name: "alpha"}))
}

func TestEnableRequiresDependencies(t *testing.T) {
	h := NewHost()
	require.NoError(t, h.Load(&stubPlugin{name: "base"}))
	require.NoError(t, h.Load(&stubPlugin{name: "ext", requires: []string{"base"}}))

	err := h.Enable(context.Background(), "ext")
	require.Error(t, err, "dependency not enabled yet")

	require.NoError(t, h.Enable(context.Background(), "base"))
	require.NoError(t, h.Enable(context.Background(), "ext"))
}

func TestEnableAllOrder(t *testing.T) {
	h := NewHost()
	var order []string
	require.NoError(t, h.Load(&stubPlugin{name: "c", requires: []string{"b"}, order: &order}))
	require.NoError(t, h.Load(&stubPlugin{name: "a", order: &order}))
	require.NoError(t, h.Load(&stubPlugin{name: "b", requires: []string{"a"}, order: &order}))

	require.NoError(t, h.EnableAll(context.Background()))
	positions := map[string]int{}
	for i, name := range order {
		positions[name] = i
	}
	require.Less(t, positions["a"], positions["b"])
	require.Less(t, positions["b"], positions["c"])
}

func TestEnableAllCycle(t *testing.T) {
	h := NewHost()
	require.NoError(t, h.Load(&stubPlugin{name: "x", requires: []string{"y"}}))
	require.NoError(t, h.Load(&stubPlugin{name: "y", requires: []string{"x"}}))
	require.ErrorIs(t, h.EnableAll(context.Background()), vars.ErrCycle)
}

func TestDisableRefusedWhileRequired(t *testing.T) {
	h := NewHost()
	require.NoError(t, h.Load(&stubPlugin{name: "base"}))
	require.NoError(t, h.Load(&stubPlugin{name: "ext", requires: []string{"base"}}))
	require.NoError(t, h.EnableAll(context.Background()))

	require.ErrorIs(t, h.Disable(context.Background(), "base"), vars.ErrBadTransition)
	require.NoError(t, h.Disable(context.Background(), "ext"))
	require.NoError(t, h.Disable(context.Background(), "base"))
}

func TestUnloadStopsAndDropsHooks(t *testing.T) {
	h := NewHost()
	p := &stubPlugin{name: "hooked"}
	require.NoError(t, h.Load(p))
	require.NoError(t, h.Enable(context.Background(), "hooked"))

	RegisterHook("test.unload.point", "hooked", func(ctx context.Context, payload interface{}) (interface{}, error) {
		return "hi", nil
	})
	require.Len(t, Invoke(context.Background(), "test.unload.point", nil), 1)

	require.NoError(t, h.Unload(context.Background(), "hooked"))
	require.Equal(t, 1, p.stopped)
	_, ok := h.State("hooked")
	require.False(t, ok)
	require.Empty(t, Invoke(context.Background(), "test.unload.point", nil))
}

func TestEnableStartFailure(t *testing.T) {
	h := NewHost()
	boom := errors.New("no db")
	require.NoError(t, h.Load(&stubPlugin{name: "frail", startErr: boom}))
	require.ErrorIs(t, h.Enable(context.Background(), "frail"), boom)
	state, _ := h.State("frail")
	require.Equal(t, StateLoaded, state)
}
