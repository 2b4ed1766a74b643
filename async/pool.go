package async

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many submitted jobs run at once. Unlike TaskGroup it keeps
// going after individual failures; errors are delivered to the handler.
type Pool struct {
	sem     *semaphore.Weighted
	onError func(err error)
}

func NewPool(size int64, onError func(err error)) *Pool {
	if onError == nil {
		onError = func(err error) {}
	}
	return &Pool{sem: semaphore.NewWeighted(size), onError: onError}
}

func (p *Pool) Submit(ctx context.Context, job func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	go func() {
		defer p.sem.Release(1)
		if err := job(ctx); err != nil {
			p.onError(err)
		}
	}()
	return nil
}

// Drain waits for all running jobs by acquiring the whole semaphore.
func (p *Pool) Drain(ctx context.Context, size int64) error {
	if err := p.sem.Acquire(ctx, size); err != nil {
		return err
	}
	p.sem.Release(size)
	return nil
}
