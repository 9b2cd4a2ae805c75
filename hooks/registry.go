package hooks

import (
	"context"
	"sync"
)

// Registry maps instance identifiers to per-instance values.
type Registry[V any] struct {
	m  map[string]V
	mu sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{m: make(map[string]V)}
}

// Set stores v under id, replacing any previous value.
func (r *Registry[V]) Set(id string, v V) {
	r.mu.Lock()
	r.m[id] = v
	r.mu.Unlock()
}

// Get returns the value stored under id.
func (r *Registry[V]) Get(id string) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[id]
	return v, ok
}

// Take removes and returns the value stored under id.
func (r *Registry[V]) Take(id string) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[id]
	if ok {
		delete(r.m, id)
	}
	return v, ok
}

// CompareAndDelete removes the entry for id only if match reports true for
// the stored value.
func (r *Registry[V]) CompareAndDelete(id string, match func(V) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[id]
	if !ok || !match(v) {
		return false
	}
	delete(r.m, id)
	return true
}

// Len returns the number of entries.
func (r *Registry[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

// Pending is a single-assignment result, settled exactly once by Resolve
// or Reject.
type Pending[T any] struct {
	value T
	err   error
	done  chan struct{}
	once  sync.Once
}

// NewPending creates an unsettled result.
func NewPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

// Resolve settles p with v. It reports false if p was already settled.
func (p *Pending[T]) Resolve(v T) bool {
	settled := false
	p.once.Do(func() {
		p.value = v
		close(p.done)
		settled = true
	})
	return settled
}

// Reject settles p with err. It reports false if p was already settled.
func (p *Pending[T]) Reject(err error) bool {
	settled := false
	p.once.Do(func() {
		p.err = err
		close(p.done)
		settled = true
	})
	return settled
}

// Done is closed once p settles.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether p has been resolved or rejected.
func (p *Pending[T]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Result returns the settled value and error. It must only be called after
// Done is closed.
func (p *Pending[T]) Result() (T, error) {
	return p.value, p.err
}

// Wait blocks until p settles or ctx ends.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
