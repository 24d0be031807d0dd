package domain

import (
	"context"
	"time"
)

// Comment domain model
type Comment struct {
	ID          string    `json:"id"`
	ArticleID   string    `json:"article_id" validate:"required"`
	UserID      string    `json:"user_id" validate:"required"`
	UserName    string    `json:"user_name"`
	IsAnonymous bool      `json:"is_anonymous"`
	Text        string    `json:"text" validate:"required,max=2000"`
	CreatedAt   time.Time `json:"created_at"`
}

// CommentUsecase 业务逻辑接口
type CommentUsecase interface {
	Create(ctx context.Context, c *Comment) error
	// Delete removes a comment written by the actor, or any comment when the actor is an admin
	Delete(ctx context.Context, id string, actor Actor) error
	FetchByArticle(ctx context.Context, articleID string, cursor string, limit int64) ([]Comment, string, error)
	FetchByUser(ctx context.Context, userID string, cursor string, limit int64) ([]Comment, string, error)
}

// CommentRepository 数据存取接口
type CommentRepository interface {
	Store(ctx context.Context, c *Comment) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Comment, error)
	// FetchByArticle returns comments newest first
	FetchByArticle(ctx context.Context, articleID string, cursor string, limit int64) ([]Comment, error)
	FetchByUser(ctx context.Context, userID string, cursor string, limit int64) ([]Comment, error)
}
