package domain

import "context"

// LikeAction is the direction of a like membership change
type LikeAction int8

const (
	Like   LikeAction = 1
	Unlike LikeAction = -1
)

func (l LikeAction) String() string {
	switch l {
	case Like:
		return "like"
	case Unlike:
		return "unlike"
	default:
		return "unknown"
	}
}

// SyncLikesWorker persists like membership changes accepted by the cache.
// Send never blocks the request path; it reports false when the change
// could not be queued.
type SyncLikesWorker interface {
	Start(ctx context.Context)
	Send(likeRecord UserLike, action LikeAction) bool
}
