package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/repository"
	"github.com/Guyuepp/newsfeed/internal/repository/mysql/model"
)

type commentRepository struct {
	DB *gorm.DB
}

var _ domain.CommentRepository = (*commentRepository)(nil)

func NewCommentRepository(db *gorm.DB) *commentRepository {
	return &commentRepository{
		DB: db,
	}
}

func (c *commentRepository) Delete(ctx context.Context, id string) error {
	result := c.DB.WithContext(ctx).Delete(&model.Comment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (c *commentRepository) FetchByArticle(ctx context.Context, articleID string, cursor string, limit int64) ([]domain.Comment, error) {
	return c.fetch(ctx, "article_id = ?", articleID, cursor, limit)
}

func (c *commentRepository) FetchByUser(ctx context.Context, userID string, cursor string, limit int64) ([]domain.Comment, error) {
	return c.fetch(ctx, "user_id = ?", userID, cursor, limit)
}

func (c *commentRepository) fetch(ctx context.Context, cond string, arg string, cursor string, limit int64) ([]domain.Comment, error) {
	repository.PageVerify(&limit)
	query := c.DB.WithContext(ctx).Where(cond, arg)
	if cursor != "" {
		decodedCursor, err := repository.DecodeCursor(cursor)
		if err != nil {
			return nil, domain.ErrBadParamInput
		}
		query = query.Where("created_at < ?", decodedCursor)
	}

	var comments []model.Comment
	err := query.
		Order("created_at DESC").
		Limit(int(limit)).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	res := make([]domain.Comment, 0, len(comments))
	for i := range comments {
		res = append(res, comments[i].ToDomain())
	}
	return res, nil
}

func (c *commentRepository) GetByID(ctx context.Context, id string) (domain.Comment, error) {
	var comment model.Comment
	err := c.DB.WithContext(ctx).First(&comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Comment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Comment{}, err
	}
	return comment.ToDomain(), nil
}

func (c *commentRepository) Store(ctx context.Context, comment *domain.Comment) error {
	comment.ID = newID()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	return c.DB.WithContext(ctx).Create(model.NewCommentFromDomain(comment)).Error
}
