// Package infra provides resilience primitives shared by the MediaWiki and
// Wikibase clients: per-key single flight and a circuit breaker.
package infra

import (
	"context"
	"fmt"
	"sync"
)

// Group runs at most one function per key at a time. Callers that arrive while
// a call for the same key is in flight wait for it and receive its result.
//
// Used to close check-then-create races, e.g. two test cases asking for the
// same datatype's property at once.
type Group[V any] struct {
	mu       sync.Mutex
	inflight map[string]*call[V]
}

type call[V any] struct {
	done    chan struct{}
	val     V
	err     error
	waiters int
}

// NewGroup creates an empty Group
func NewGroup[V any]() *Group[V] {
	return &Group[V]{inflight: make(map[string]*call[V])}
}

// Do executes fn unless a call with the same key is already running, in which
// case it waits for that call. The boolean reports whether the result came
// from another caller's flight.
//
// fn runs on its own goroutine with ctx detached from cancellation, so one
// caller giving up neither fails the others nor aborts the work. Each caller,
// including the one that started the flight, stops waiting when its own ctx
// ends. A panic in fn is returned to every caller as an error.
func (g *Group[V]) Do(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (V, bool, error) {
	g.mu.Lock()
	c, shared := g.inflight[key]
	if shared {
		c.waiters++
	} else {
		c = &call[V]{done: make(chan struct{}), waiters: 1}
		g.inflight[key] = c
		go g.run(context.WithoutCancel(ctx), key, c, fn)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		return c.val, shared, c.err
	case <-ctx.Done():
		var zero V
		return zero, shared, ctx.Err()
	}
}

func (g *Group[V]) run(ctx context.Context, key string, c *call[V], fn func(ctx context.Context) (V, error)) {
	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("panic in %q: %v", key, r)
		}
		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
		close(c.done)
	}()

	c.val, c.err = fn(ctx)
}

// InFlight returns the number of keys with a running call
func (g *Group[V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}
