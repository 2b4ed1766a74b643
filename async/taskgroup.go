package async

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// TaskGroup runs a set of related tasks and cancels the rest as soon as one
// fails. A limit of 0 means unlimited concurrency.
type TaskGroup struct {
	eg  *errgroup.Group
	ctx context.Context
}

func NewTaskGroup(ctx context.Context, limit int) *TaskGroup {
	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	return &TaskGroup{eg: eg, ctx: ctx}
}

func (g *TaskGroup) Go(task func(ctx context.Context) error) {
	g.eg.Go(func() error {
		return task(g.ctx)
	})
}

// Wait blocks until every task returned; the first error wins.
func (g *TaskGroup) Wait() error {
	return g.eg.Wait()
}

func (g *TaskGroup) Context() context.Context {
	return g.ctx
}
