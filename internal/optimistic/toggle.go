package optimistic

import (
	"context"

	"github.com/Guyuepp/newsfeed/domain"
)

// ToggleState is the local view of one membership, e.g. liked and the like count
type ToggleState struct {
	On    bool
	Count int64
}

// Flip turns the flag over and moves the count with it. Count never goes below zero.
func (s ToggleState) Flip() ToggleState {
	s.On = !s.On
	if s.On {
		s.Count++
	} else if s.Count > 0 {
		s.Count--
	}
	return s
}

// MembershipSetter adds actorID to, or removes it from, the membership set of
// entityID. Adding a present member or removing an absent one must not
// change any counter.
type MembershipSetter interface {
	SetMembership(ctx context.Context, entityID, actorID string, add bool) error
}

// SetterFunc adapts a function to MembershipSetter
type SetterFunc func(ctx context.Context, entityID, actorID string, add bool) error

func (f SetterFunc) SetMembership(ctx context.Context, entityID, actorID string, add bool) error {
	return f(ctx, entityID, actorID, add)
}

// Target names the membership being toggled
type Target struct {
	Kind     string
	EntityID string
	ActorID  string
}

func (t Target) key() string {
	return t.Kind + ":" + t.EntityID + ":" + t.ActorID
}

// Toggle flips the membership of t.ActorID. Without an actor nothing is
// touched and domain.ErrUnauthenticated is returned.
func (c *Controller) Toggle(ctx context.Context, cell Cell[ToggleState], t Target, setter MembershipSetter) (ToggleState, error) {
	if t.ActorID == "" {
		return cell.Load(), domain.ErrUnauthenticated
	}

	return Do(ctx, c, t.key(), cell, ToggleState.Flip, func(ctx context.Context, _, next ToggleState) error {
		return setter.SetMembership(ctx, t.EntityID, t.ActorID, next.On)
	})
}
