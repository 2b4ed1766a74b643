package async

import (
	"context"
	"sync"
	"time"
)

// Debounce returns a trigger that runs fn once per quiet period: calls reset
// the timer, fn fires after the last call. Used by the plugin manifest
// watcher to coalesce editor write bursts.
func Debounce(wait time.Duration, fn func()) (trigger func()) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(wait, fn)
	}
}

// Every runs fn on an interval until the context ends. The first run happens
// after the first interval, not immediately.
func Every(ctx context.Context, interval time.Duration, fn func()) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}
