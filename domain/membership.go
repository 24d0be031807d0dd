package domain

import "time"

const (
	// LikeRecordLimit bounds how many liked articles of one user are loaded into the cache
	LikeRecordLimit = 300
)

// UserLike is representing a like record, one member of an article's liker set
type UserLike struct {
	ArticleID string
	UserID    string
	CreatedAt time.Time
}

type LikeStateChanges struct {
	ToAdd    []UserLike
	ToRemove []UserLike
}

// Bookmark is one member of a user's bookmark set
type Bookmark struct {
	UserID    string
	ArticleID string
	CreatedAt time.Time
}

// MembershipResult reports the outcome of an idempotent set-union or set-removal.
// Changed is false when the actor was already in (or already out of) the set.
type MembershipResult struct {
	Changed bool
	Member  bool
	Count   int64
	// Members is filled for bookmark sets
	Members []string
}
