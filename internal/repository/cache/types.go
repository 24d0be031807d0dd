package cache

import "time"

// Envelope wraps a cached value with a logical expiry. The redis key
// itself has no TTL, a stale envelope is still served while one caller
// rebuilds it in the background.
type Envelope[T any] struct {
	Data     T         `json:"data"`
	ExpireAt time.Time `json:"expire_at"`
}

// Wrap 包装数据并设置逻辑过期时间
func Wrap[T any](data T, ttl time.Duration) *Envelope[T] {
	return &Envelope[T]{
		Data:     data,
		ExpireAt: time.Now().Add(ttl),
	}
}

// Stale reports whether the logical expiry has passed
func (e *Envelope[T]) Stale() bool {
	return time.Now().After(e.ExpireAt)
}
