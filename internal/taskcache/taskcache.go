package taskcache

import (
	"context"
	"sync"
)

// Factory produces the value for a key. It must honour ctx cancellation.
type Factory[V any] func(ctx context.Context) (V, error)

type task[V any] struct {
	cancel    context.CancelFunc
	done      chan struct{}
	refs      int
	cancelled bool
	value     V
	err       error
}

// Cache shares one in-flight Factory call per key among concurrent callers.
// The zero value is not usable; construct with New.
type Cache[V any] struct {
	mu    sync.Mutex
	tasks map[string]*task[V]
}

// New returns an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{tasks: make(map[string]*task[V])}
}

// Acquire returns the result of the in-flight task for key, starting factory
// when none is running. Every waiter receives the same value and error. When
// ctx ends first, Acquire returns ctx.Err() and drops its reference; the last
// reference to go cancels the task. A cancelled task keeps its key until it
// settles, and callers arriving meanwhile wait for it before starting anew.
func (c *Cache[V]) Acquire(ctx context.Context, key string, factory Factory[V]) (V, error) {
	var t *task[V]
	for t == nil {
		c.mu.Lock()
		existing, ok := c.tasks[key]
		switch {
		case ok && existing.cancelled:
			c.mu.Unlock()
			select {
			case <-existing.done:
			case <-ctx.Done():
				var zero V
				return zero, ctx.Err()
			}
			continue
		case ok:
			existing.refs++
			t = existing
		default:
			taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			t = &task[V]{cancel: cancel, done: make(chan struct{}), refs: 1}
			c.tasks[key] = t
			go c.run(taskCtx, key, t, factory)
		}
		c.mu.Unlock()
	}

	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		c.release(t)
		var zero V
		return zero, ctx.Err()
	}
}

func (c *Cache[V]) run(ctx context.Context, key string, t *task[V], factory Factory[V]) {
	value, err := factory(ctx)
	c.mu.Lock()
	t.value, t.err = value, err
	if c.tasks[key] == t {
		delete(c.tasks, key)
	}
	c.mu.Unlock()
	close(t.done)
	t.cancel()
}

func (c *Cache[V]) release(t *task[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.refs == 0 {
		return
	}
	t.refs--
	if t.refs > 0 {
		return
	}
	t.cancelled = true
	t.cancel()
}

// Pending reports how many keys have a task in flight, including cancelled
// tasks that have not settled yet.
func (c *Cache[V]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}
