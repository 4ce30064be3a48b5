// Package singleflight coalesces duplicate in-flight calls so only one
// execution runs for a given key at a time.
package singleflight

import (
	"context"
	"sync"
)

// Group manages a set of in-flight calls keyed by string.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

// call represents an active or completed function call.
type call struct {
	done chan struct{}
	val  interface{}
	err  error
}

// New creates a new singleflight Group.
func New() *Group {
	return &Group{m: make(map[string]*call)}
}

// Do executes fn and returns its results, making sure that only one
// execution is in-flight for a given key at a time. Duplicate callers wait
// for the owner to complete and receive the same results; shared reports
// whether the result came from another caller's execution. Waiting is
// context-aware: a cancelled waiter unblocks without affecting the owner.
func (g *Group) Do(ctx context.Context, key string, fn func() (interface{}, error)) (v interface{}, err error, shared bool) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err, true
		case <-ctx.Done():
			return nil, ctx.Err(), true
		}
	}

	c := &call{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
	close(c.done)

	return c.val, c.err, false
}

// InFlight reports whether a call for key is currently executing.
func (g *Group) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}
