package plugin

import (
	"context"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/uno-framework/uno/vars"
)

// Hook is one callback attached to an extension point.
type Hook func(ctx context.Context, payload interface{}) (interface{}, error)

type hookEntry struct {
	plugin string
	fn     Hook
}

type hookList struct {
	mu      sync.Mutex
	entries []hookEntry
}

// hook registries are keyed by extension point name; hooks within a point
// run in registration order.
var hookPoints = cmap.New[*hookList]()

// RegisterHook attaches fn to an extension point on behalf of a plugin.
// Points need no declaration; naming one brings it into being.
func RegisterHook(point, pluginName string, fn Hook) {
	list, _ := hookPoints.Get(point)
	if list == nil {
		list = &hookList{}
		if !hookPoints.SetIfAbsent(point, list) {
			list, _ = hookPoints.Get(point)
		}
	}
	list.mu.Lock()
	list.entries = append(list.entries, hookEntry{plugin: pluginName, fn: fn})
	list.mu.Unlock()
}

// Invoke runs every hook on the point and collects their results. A hook
// error does not stop the chain; callers inspect the Results.
func Invoke(ctx context.Context, point string, payload interface{}) []vars.Result[interface{}] {
	list, ok := hookPoints.Get(point)
	if !ok {
		return nil
	}
	list.mu.Lock()
	entries := append([]hookEntry{}, list.entries...)
	list.mu.Unlock()

	out := make([]vars.Result[interface{}], 0, len(entries))
	for _, entry := range entries {
		v, err := entry.fn(ctx, payload)
		if err != nil {
			out = append(out, vars.Failure[interface{}](vars.Wrap(vars.CodePlugin, point+"/"+entry.plugin, err)))
		} else {
			out = append(out, vars.Success(v))
		}
	}
	return out
}

// dropHooks removes every hook a plugin registered; used on unload.
func dropHooks(pluginName string) {
	for item := range hookPoints.IterBuffered() {
		list := item.Val
		list.mu.Lock()
		kept := list.entries[:0]
		for _, entry := range list.entries {
			if entry.plugin != pluginName {
				kept = append(kept, entry)
			}
		}
		list.entries = kept
		list.mu.Unlock()
	}
}
