// Package pool provides a fixed-size pool of reusable resources.
package pool

import (
	"context"
	"errors"
)

// ErrEmptyPool is returned by New when asked for a pool with no resources.
var ErrEmptyPool = errors.New("pool size must be at least 1")

// Pool holds a fixed number of resources. A resource is used by at most one borrower
// at a time; Acquire blocks while all of them are out.
type Pool[T any] struct {
	items chan T
	size  int
}

// New creates a pool of size resources built by newFn.
func New[T any](size int, newFn func() T) (*Pool[T], error) {
	if size < 1 {
		return nil, ErrEmptyPool
	}
	p := &Pool[T]{items: make(chan T, size), size: size}
	for i := 0; i < size; i++ {
		p.items <- newFn()
	}
	return p, nil
}

// Acquire borrows a resource, waiting until one is free or ctx is done.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	select {
	case item := <-p.items:
		return item, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Release returns a borrowed resource. Releasing more resources than the pool holds
// panics, since it can only happen through a double release.
func (p *Pool[T]) Release(item T) {
	select {
	case p.items <- item:
	default:
		panic("pool: release of a resource that was not acquired")
	}
}

// Size returns the number of resources the pool was created with.
func (p *Pool[T]) Size() int {
	return p.size
}

// Available returns how many resources are currently free.
func (p *Pool[T]) Available() int {
	return len(p.items)
}

// With borrows a resource for the duration of fn. The resource is released when fn
// returns, also when it returns an error or panics.
func With[T, R any](ctx context.Context, p *Pool[T], fn func(T) (R, error)) (R, error) {
	item, err := p.Acquire(ctx)
	if err != nil {
		var zero R
		return zero, err
	}
	defer p.Release(item)
	return fn(item)
}
