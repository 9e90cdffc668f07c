package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/imamik/dpuprov/internal/device"
	"github.com/imamik/dpuprov/internal/util/async"
)

// Future is the outcome of a node task.
type Future = async.Future[*device.Result]

// ErrPending is returned when replacing a future that has not resolved.
var ErrPending = errors.New("node has a pending task")

// ErrAborted is the cancellation cause when Abort is called with nil.
var ErrAborted = errors.New("fleet aborted")

// Registry maps node names to their latest task future.
type Registry struct {
	mu      sync.Mutex
	names   []string
	entries map[string]*Future

	ctx    context.Context
	cancel context.CancelCauseFunc
}

// NewRegistry creates a registry with a resolved, empty entry for every
// name. The fleet context derives from ctx.
func NewRegistry(ctx context.Context, names ...string) *Registry {
	fleetCtx, cancel := context.WithCancelCause(ctx)
	r := &Registry{
		names:   make([]string, 0, len(names)),
		entries: make(map[string]*Future, len(names)),
		ctx:     fleetCtx,
		cancel:  cancel,
	}
	for _, name := range names {
		if _, dup := r.entries[name]; dup {
			panic(fmt.Sprintf("fleet: duplicate node %q", name))
		}
		r.names = append(r.names, name)
		r.entries[name] = async.Resolved[*device.Result](nil, nil)
	}
	return r
}

// Names returns the node names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Get returns the current future of name. Unknown names panic.
func (r *Registry) Get(name string) *Future {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(name)
}

// Set replaces the future of name. It fails with ErrPending while the
// current future is unresolved. Unknown names panic.
func (r *Registry) Set(name string, f *Future) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lookup(name).IsResolved() {
		return fmt.Errorf("node %s: %w", name, ErrPending)
	}
	r.entries[name] = f
	return nil
}

// Chain waits for the current task of name and, if it succeeded, stores
// the future returned by submit as the node's new entry. A failed previous
// task is returned without calling submit. submit runs with the registry
// locked and must not call back into it.
func (r *Registry) Chain(ctx context.Context, name string, submit func() *Future) error {
	prev := r.Get(name)
	if _, err := prev.Wait(ctx); err != nil {
		return err
	}
	if err := r.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[name] != prev {
		return fmt.Errorf("node %s: %w", name, ErrPending)
	}
	r.entries[name] = submit()
	return nil
}

// WaitAll blocks until every node's current future resolves. If the fleet
// was aborted the abort cause is returned; otherwise the joined errors of
// all failed nodes.
func (r *Registry) WaitAll(ctx context.Context) error {
	r.mu.Lock()
	futures := make([]*Future, len(r.names))
	for i, name := range r.names {
		futures[i] = r.entries[name]
	}
	r.mu.Unlock()

	var errs []error
	for i, f := range futures {
		if _, err := f.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			errs = append(errs, fmt.Errorf("node %s: %w", r.names[i], err))
		}
	}

	if err := r.Err(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// Context returns the fleet context. It is cancelled by Abort.
func (r *Registry) Context() context.Context {
	return r.ctx
}

// Abort cancels the fleet context with err as cause. Only the first call
// takes effect.
func (r *Registry) Abort(err error) {
	if err == nil {
		err = ErrAborted
	}
	r.cancel(err)
}

// Err returns the abort cause, or nil while the fleet is running.
func (r *Registry) Err() error {
	if r.ctx.Err() == nil {
		return nil
	}
	return context.Cause(r.ctx)
}

func (r *Registry) lookup(name string) *Future {
	f, ok := r.entries[name]
	if !ok {
		panic(fmt.Sprintf("fleet: unknown node %q", name))
	}
	return f
}
