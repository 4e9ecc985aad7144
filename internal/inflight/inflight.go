// Package inflight counts background operations. Unlike sync.WaitGroup,
// Add may run concurrently with a waiter whose counter is at zero.
package inflight

import (
	"context"
	"sync"
)

var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

type Group struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

// Add registers n operations.
func (g *Group) Add(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n == 0 {
		g.idle = make(chan struct{})
	}
	g.n += n
}

// Done marks one operation finished.
func (g *Group) Done() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n == 0 {
		panic("inflight: Done without Add")
	}
	g.n--
	if g.n == 0 {
		close(g.idle)
	}
}

// Idle is closed once every operation registered so far has finished.
func (g *Group) Idle() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n == 0 {
		return closed
	}
	return g.idle
}

// Wait blocks until Idle or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	select {
	case <-g.Idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
