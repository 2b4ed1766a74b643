package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaskGroupCancelsOnFirstError(t *testing.T) {
	g := NewTaskGroup(context.Background(), 4)
	boom := errors.New("boom")

	g.Go(func(ctx context.Context) error { return boom })
	g.Go(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("sibling was not cancelled")
		}
	})
	require.ErrorIs(t, g.Wait(), boom)
}

func TestTaskGroupLimit(t *testing.T) {
	var running, peak int64
	g := NewTaskGroup(context.Background(), 2)
	for i := 0; i < 8; i++ {
		g.Go(func(ctx context.Context) error {
			n := atomic.AddInt64(&running, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestPool(t *testing.T) {
	var failures int64
	p := NewPool(3, func(err error) { atomic.AddInt64(&failures, 1) })

	var done int64
	for i := 0; i < 10; i++ {
		i := i
		err := p.Submit(context.Background(), func(ctx context.Context) error {
			atomic.AddInt64(&done, 1)
			if i%2 == 0 {
				return errors.New("even jobs fail")
			}
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, p.Drain(context.Background(), 3))
	require.Equal(t, int64(10), atomic.LoadInt64(&done))
	require.Equal(t, int64(5), atomic.LoadInt64(&failures))
}

func TestRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), func() error {
		if attempts++; attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, &RetryOption{InitialInterval: time.Millisecond, MaxElapsedTime: time.Second})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryPermanentStopsImmediately(t *testing.T) {
	boom := errors.New("fatal")
	attempts := 0
	err := Retry(context.Background(), func() error {
		attempts++
		return Permanent(boom)
	}, &RetryOption{InitialInterval: time.Millisecond})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, attempts)
}

func TestDebounceCoalesces(t *testing.T) {
	var fired int64
	trigger := Debounce(30*time.Millisecond, func() { atomic.AddInt64(&fired, 1) })
	for i := 0; i < 5; i++ {
		trigger()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int64(1), atomic.LoadInt64(&fired))
}

func TestEveryStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks int64
	Every(ctx, 10*time.Millisecond, func() { atomic.AddInt64(&ticks, 1) })
	time.Sleep(55 * time.Millisecond)
	cancel()
	settled := atomic.LoadInt64(&ticks)
	require.Greater(t, settled, int64(0))
	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, atomic.LoadInt64(&ticks), settled+1)
}
