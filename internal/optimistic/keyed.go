package optimistic

import (
	"context"
	"sync"
)

// keyedMutex hands out one slot per key. Entries are dropped once
// nobody holds or waits for them.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

func (k *keyedMutex) acquire(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.m == nil {
		k.m = make(map[string]*slot)
	}
	s, ok := k.m[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		k.m[key] = s
	}
	s.refs++
	return s
}

func (k *keyedMutex) release(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.m, key)
	}
}

// Lock waits for the key. It gives up when ctx is done.
func (k *keyedMutex) Lock(ctx context.Context, key string) (unlock func(), err error) {
	s := k.acquire(key)
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		k.release(key, s)
		return nil, ctx.Err()
	}
	return func() {
		<-s.sem
		k.release(key, s)
	}, nil
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}
