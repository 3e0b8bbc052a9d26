// Package status memoizes the result of expensive checks and collapses
// concurrent identical requests into a single in-flight call. It fronts
// anything externally rate-limited: connection-health probes, token
// refresh.
package status

import (
	"context"
	"sync"
	"time"
)

// call is one in-flight computation. Every caller that arrives while it is
// pending receives the same settled result.
type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

type entry[T any] struct {
	val        T
	computedAt time.Time
	hasValue   bool
	inflight   *call[T]
}

// Cache deduplicates and memoizes computations per key.
//
// Unlike a cooperative single-threaded scheduler, goroutines preempt, so
// the in-flight map is guarded by a mutex with check-and-set semantics.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	now     func() time.Time
}

// New creates an empty cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]*entry[T]),
		now:     time.Now,
	}
}

// GetOrCompute returns the memoized value for key when it is younger than
// ttl. Otherwise it joins the in-flight computation for key if one exists,
// or starts compute and memoizes its result on success.
//
// Failures are never memoized: the in-flight handle is cleared on both
// success and failure so a subsequent call may retry. A canceled ctx
// releases the waiting caller; the computation itself keeps running and
// settles for everyone else.
func (c *Cache[T]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{}
		c.entries[key] = e
	}

	if e.hasValue && c.now().Sub(e.computedAt) < ttl {
		val := e.val
		c.mu.Unlock()
		return val, nil
	}

	if e.inflight != nil {
		pending := e.inflight
		c.mu.Unlock()
		var zero T
		select {
		case <-pending.done:
			return pending.val, pending.err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	pending := &call[T]{done: make(chan struct{})}
	e.inflight = pending
	c.mu.Unlock()

	pending.val, pending.err = compute(ctx)

	c.mu.Lock()
	// The key may have been invalidated while computing; only touch the
	// entry that still owns this call.
	if cur, ok := c.entries[key]; ok && cur.inflight == pending {
		cur.inflight = nil
		if pending.err == nil {
			cur.val = pending.val
			cur.computedAt = c.now()
			cur.hasValue = true
		}
	}
	c.mu.Unlock()

	close(pending.done)
	return pending.val, pending.err
}

// Peek returns the memoized value for key if one exists and is younger
// than ttl, without ever computing.
func (c *Cache[T]) Peek(key string, ttl time.Duration) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	e, ok := c.entries[key]
	if !ok || !e.hasValue || c.now().Sub(e.computedAt) >= ttl {
		return zero, false
	}
	return e.val, true
}

// Invalidate drops the memoized value for key. Must be called when the
// owning identity changes. An in-flight computation for the key still
// settles for its waiters but its result is discarded.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll drops every memoized value.
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[T])
}
