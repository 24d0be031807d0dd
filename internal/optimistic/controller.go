// Package optimistic applies a mutation to local state before the remote
// write completes and restores the exact previous state if the write fails.
package optimistic

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// MutationError is returned when the remote write failed and the local
// state was restored. errors.Is reaches the remote error.
type MutationError struct {
	Key string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("mutation %s rolled back: %v", e.Key, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

// Controller serialises mutations that share a key. Mutations on different
// keys run concurrently.
type Controller struct {
	locks keyedMutex
	log   *logrus.Entry
}

func NewController() *Controller {
	return &Controller{log: logrus.WithField("component", "optimistic")}
}

// Remote performs the write for a mutation from prev to next
type Remote[S any] func(ctx context.Context, prev, next S) error

// SettlingRemote is a Remote that may return a function applied to the
// local state after a successful write, e.g. to swap a placeholder for the
// server's record. A nil settle keeps the speculative state as is.
type SettlingRemote[S any] func(ctx context.Context, prev, next S) (settle func(S) S, err error)

// Do snapshots cell, stores speculate(snapshot), runs remote and keeps the
// speculative state on success or stores the snapshot back on failure.
func Do[S any](ctx context.Context, c *Controller, key string, cell Cell[S], speculate func(S) S, remote Remote[S]) (S, error) {
	return DoSettle(ctx, c, key, cell, speculate, func(ctx context.Context, prev, next S) (func(S) S, error) {
		return nil, remote(ctx, prev, next)
	})
}

// DoSettle is Do with a remote that can reconcile the kept state
func DoSettle[S any](ctx context.Context, c *Controller, key string, cell Cell[S], speculate func(S) S, remote SettlingRemote[S]) (S, error) {
	unlock, err := c.locks.Lock(ctx, key)
	if err != nil {
		return cell.Load(), err
	}
	defer unlock()

	snapshot := cell.Load()
	next := speculate(snapshot)
	cell.Store(next)

	settle, err := remote(ctx, snapshot, next)
	if err != nil {
		cell.Store(snapshot)
		c.log.WithField("key", key).Warnf("remote write failed, local state restored: %v", err)
		return snapshot, &MutationError{Key: key, Err: err}
	}

	if settle != nil {
		next = settle(cell.Load())
		cell.Store(next)
	}
	return next, nil
}
