package async

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Pool runs submitted tasks on a bounded number of goroutines.
//
// Submit blocks while every worker is busy, so a pool sized to the number of
// submissions never queues. There is no pool-wide join: each task's outcome
// lives in its Future, and callers wait on the futures they hold.
type Pool[T any] struct {
	ctx   context.Context
	group errgroup.Group
}

// NewPool creates a pool that runs at most workers tasks at once. Tasks
// receive ctx; the pool itself never cancels it.
func NewPool[T any](ctx context.Context, workers int) *Pool[T] {
	if workers < 1 {
		workers = 1
	}
	p := &Pool[T]{ctx: ctx}
	p.group.SetLimit(workers)
	return p
}

// Submit schedules fn and returns its future.
// A panicking task resolves its future with an error instead of crashing
// sibling workers.
func (p *Pool[T]) Submit(name string, fn func(context.Context) (T, error)) *Future[T] {
	f := NewFuture[T]()
	p.group.Go(func() error {
		var (
			value T
			err   error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task %s panicked: %v", name, r)
			}
			f.Resolve(value, err)
		}()

		value, err = fn(p.ctx)
		if err != nil {
			err = fmt.Errorf("task %s: %w", name, err)
		}
		// The error is delivered through f; the group only bounds concurrency.
		return nil
	})
	return f
}
