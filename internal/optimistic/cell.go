package optimistic

import "sync"

// Cell is a piece of local state a mutation reads and writes
type Cell[S any] interface {
	Load() S
	Store(S)
}

// Value is a mutex guarded Cell. Once closed, stores are dropped so a
// mutation settling after its view went away cannot resurrect it.
type Value[S any] struct {
	mu     sync.RWMutex
	v      S
	closed bool
}

var _ Cell[int] = (*Value[int])(nil)

func NewValue[S any](v S) *Value[S] {
	return &Value[S]{v: v}
}

func (c *Value[S]) Load() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

func (c *Value[S]) Store(v S) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.v = v
}

// Update applies fn under the lock, dropped when closed
func (c *Value[S]) Update(fn func(S) S) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.v = fn(c.v)
}

// Close marks the cell discarded
func (c *Value[S]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Value[S]) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
