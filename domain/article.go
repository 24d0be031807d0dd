package domain

import (
	"context"
	"time"
)

// Article is representing the Article data struct
type Article struct {
	ID           string    // Unique identifier, generated on creation
	Title        string    `validate:"required,max=200"`
	Content      string    `validate:"required"`
	Category     string    `validate:"max=45"`
	ImageURL     string    `validate:"omitempty,url"`
	Author       User      // Author information, only ID is persisted
	PublishedAt  time.Time // Publication timestamp
	UpdatedAt    time.Time // Last update timestamp
	Likes        int64     // Number of likers
	CommentCount int64     // Number of comments

	// Liked reports whether the viewing actor is in the liker set.
	// It is per viewer and never cached.
	Liked bool `json:"-"`
}

// ArticleFilter selects a page of articles, newest first.
type ArticleFilter struct {
	Cursor   string
	Num      int64
	Category string
}

// IsHome reports whether the filter asks for the default first page.
func (f ArticleFilter) IsHome() bool {
	return f.Cursor == "" && f.Category == ""
}

// ArticleDBRepository defines the contract for article data persistence
type ArticleDBRepository interface {
	// Fetch retrieves a page of articles ordered by publication date, newest first.
	// cursor: for pagination, pass the value returned with the previous page or empty string for the first page.
	Fetch(ctx context.Context, filter ArticleFilter) (res []Article, err error)

	// GetByID retrieves a single article by its ID.
	// Returns ErrNotFound if the article doesn't exist.
	GetByID(ctx context.Context, id string) (Article, error)

	// GetByIDs retrieves articles by given IDs. Missing ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]Article, error)

	// GetByTitle retrieves an article by its title.
	GetByTitle(ctx context.Context, title string) (Article, error)

	// Update modifies an existing article.
	// Returns ErrNotFound if the article doesn't exist.
	Update(ctx context.Context, ar *Article) error

	// Store creates a new article and backfills its generated ID.
	Store(ctx context.Context, a *Article) error

	// Delete removes an article by its ID.
	// Returns ErrNotFound if not exists
	Delete(ctx context.Context, id string) error

	// AddCommentCount adjusts the comment counter, never below zero.
	AddCommentCount(ctx context.Context, id string, delta int64) error

	// FetchUserLikedArticles returns the newest article ids liked by uid, limited to limit entries.
	FetchUserLikedArticles(ctx context.Context, uid string, limit int64) ([]string, error)

	// FetchUserLikedAmong returns the subset of articleIDs liked by uid.
	FetchUserLikedAmong(ctx context.Context, uid string, articleIDs []string) ([]string, error)

	// ApplyLikeChanges writes membership changes and recomputes the counters of every touched article.
	ApplyLikeChanges(ctx context.Context, changes LikeStateChanges) error

	FetchArticlesByLikes(ctx context.Context, limit int64) ([]Article, error)

	FetchIDs(ctx context.Context, cursor string, limit int64) ([]string, error)
}

// ArticleRepository is the contract usecases depend on. The implementation
// puts the cache in front of an ArticleDBRepository.
type ArticleRepository interface {
	ArticleDBRepository
}

type ArticleCache interface {
	// Article related
	GetArticleWithLogicalExpire(ctx context.Context, id string) (res Article, expired bool, err error)
	SetArticleWithLogicalExpire(ctx context.Context, ar *Article, ttl time.Duration) error
	GetArticleByIDs(ctx context.Context, ids []string) ([]Article, error)
	BatchSetArticle(ctx context.Context, ars []Article) error
	GetHomeWithLogicalExpire(ctx context.Context) (res []Article, expired bool, err error)
	SetHomeWithLogicalExpire(ctx context.Context, ars []Article, ttl time.Duration) error

	// DeleteArticle drops the cached article and the home page
	DeleteArticle(ctx context.Context, id string) error

	// Likes related
	GetLikeCount(ctx context.Context, articleID string) (int64, error)
	MGetLikeCounts(ctx context.Context, articleIDs []string) (map[string]int64, error)
	// InitLikeCount seeds the counter only when it is not cached yet
	InitLikeCount(ctx context.Context, articleID string, likes int64) error

	// AddLikeRecord and RemoveLikeRecord report whether the membership changed.
	// A partial liked set answers ErrCachePartial for an absent member unless
	// verified says the caller already loaded the persisted membership.
	AddLikeRecord(ctx context.Context, likeRecord UserLike, verified bool) (bool, error)
	RemoveLikeRecord(ctx context.Context, likeRecord UserLike, verified bool) (bool, error)
	// IsLikedBatch returns the flags together with ErrCachePartial when the set
	// is partial; false flags are then unknown.
	IsLikedBatch(ctx context.Context, userID string, articleIDs []string) (map[string]bool, error)
	// SetUserLikedArticles adds ids to the liked set. partial marks a set loaded
	// from a truncated list.
	SetUserLikedArticles(ctx context.Context, userID string, articleIDs []string, partial bool) error

	GetDailyRank(ctx context.Context, limit int64) ([]Article, error)
	GetHistoryRank(ctx context.Context, limit int64) ([]Article, error)
	SetHistoryRank(ctx context.Context, articleIDs []string, scores []float64) error
}

type ArticleUsecase interface {
	// Fetch returns a page of articles and the cursor of the next page.
	// viewerID may be empty; when set, Liked is filled for every article.
	Fetch(ctx context.Context, filter ArticleFilter, viewerID string) ([]Article, string, error)
	GetByID(ctx context.Context, id string, viewerID string) (Article, error)
	Store(ctx context.Context, ar *Article) error
	Update(ctx context.Context, ar *Article) error
	Delete(ctx context.Context, id string) error
	Like(ctx context.Context, likeRecord UserLike) (MembershipResult, error)
	Unlike(ctx context.Context, likeRecord UserLike) (MembershipResult, error)
	FetchDailyRank(ctx context.Context, limit int64) ([]Article, error)
	FetchHistoryRank(ctx context.Context, limit int64) ([]Article, error)
	InitBloomFilter(ctx context.Context) error
}
