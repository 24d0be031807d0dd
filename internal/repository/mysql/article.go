package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/repository"
	"github.com/Guyuepp/newsfeed/internal/repository/mysql/model"
)

type articleRepository struct {
	DB *gorm.DB
}

// mysql层只负责数据库操作
var _ domain.ArticleDBRepository = (*articleRepository)(nil)

// NewArticleDBRepository 创建数据库操作层
func NewArticleDBRepository(db *gorm.DB) *articleRepository {
	return &articleRepository{db}
}

func (m *articleRepository) Fetch(ctx context.Context, filter domain.ArticleFilter) (res []domain.Article, err error) {
	num := filter.Num
	repository.PageVerify(&num)

	query := m.DB.WithContext(ctx).Model(&model.Article{})
	if filter.Cursor != "" {
		decodedCursor, err := repository.DecodeCursor(filter.Cursor)
		if err != nil {
			return nil, domain.ErrBadParamInput
		}
		query = query.Where("published_at < ?", decodedCursor)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var articles []model.Article
	err = query.Order("published_at DESC").
		Limit(int(num)).
		Find(&articles).
		Error
	if err != nil {
		return nil, err
	}

	res = make([]domain.Article, 0, len(articles))
	for i := range articles {
		res = append(res, articles[i].ToDomain())
	}
	return res, nil
}

func (m *articleRepository) GetByID(ctx context.Context, id string) (res domain.Article, err error) {
	var article model.Article
	err = m.DB.WithContext(ctx).First(&article, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return res, domain.ErrNotFound
	}
	if err != nil {
		return res, err
	}
	return article.ToDomain(), nil
}

func (m *articleRepository) GetByTitle(ctx context.Context, title string) (res domain.Article, err error) {
	var article model.Article
	err = m.DB.WithContext(ctx).First(&article, "title = ?", title).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return res, domain.ErrNotFound
	}
	if err != nil {
		return res, err
	}
	return article.ToDomain(), nil
}

func (m *articleRepository) Store(ctx context.Context, a *domain.Article) error {
	if a.ID == "" {
		a.ID = newID()
	}
	now := time.Now()
	if a.PublishedAt.IsZero() {
		a.PublishedAt = now
	}
	a.UpdatedAt = now

	articleModel := model.NewArticleFromDomain(a)
	if err := m.DB.WithContext(ctx).Create(articleModel).Error; err != nil {
		return conflict(err)
	}
	return nil
}

func (m *articleRepository) Delete(ctx context.Context, id string) error {
	return m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&model.Article{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrNotFound
		}

		if err := tx.Where("article_id = ?", id).Delete(&model.UserLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&model.UserBookmark{}).Error; err != nil {
			return err
		}
		return tx.Where("article_id = ?", id).Delete(&model.Comment{}).Error
	})
}

func (m *articleRepository) Update(ctx context.Context, ar *domain.Article) error {
	ar.UpdatedAt = time.Now()
	articleModel := model.NewArticleFromDomain(ar)
	result := m.DB.WithContext(ctx).
		Model(&model.Article{ID: ar.ID}).
		Select("title", "content", "category", "image_url", "updated_at").
		Updates(articleModel)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (m *articleRepository) AddCommentCount(ctx context.Context, id string, delta int64) error {
	result := m.DB.WithContext(ctx).
		Model(&model.Article{}).
		Where("id = ?", id).
		UpdateColumn("comment_count", gorm.Expr("GREATEST(comment_count + ?, 0)", delta))
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (m *articleRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var articles []model.Article
	err := m.DB.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&articles).Error
	if err != nil {
		return nil, err
	}

	res := make([]domain.Article, len(articles))
	for i := range articles {
		res[i] = articles[i].ToDomain()
	}
	return res, nil
}

// ApplyLikeChanges writes a batch of like membership changes. Inserts are
// idempotent and every touched article gets its counter recomputed from the
// membership table, so replays never double count.
func (m *articleRepository) ApplyLikeChanges(ctx context.Context, changes domain.LikeStateChanges) error {
	if len(changes.ToAdd) == 0 && len(changes.ToRemove) == 0 {
		return nil
	}

	return m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		filteredAdd := make([]model.UserLike, 0, len(changes.ToAdd))
		if len(changes.ToAdd) > 0 {
			toAddIDs := make([]string, 0, len(changes.ToAdd))
			seen := make(map[string]bool)
			for _, row := range changes.ToAdd {
				if !seen[row.ArticleID] {
					toAddIDs = append(toAddIDs, row.ArticleID)
					seen[row.ArticleID] = true
				}
			}

			var validIDs []string
			if err := tx.Model(&model.Article{}).
				Where("id IN ?", toAddIDs).
				Pluck("id", &validIDs).Error; err != nil {
				return err
			}

			validMap := make(map[string]bool)
			for _, id := range validIDs {
				validMap[id] = true
			}

			for _, row := range changes.ToAdd {
				if validMap[row.ArticleID] {
					filteredAdd = append(filteredAdd, model.NewUserLikeFromDomain(row))
				} else {
					logrus.Warnf("Dropped orphan like for article %s", row.ArticleID)
				}
			}
		}

		for _, row := range changes.ToRemove {
			if err := tx.Where("article_id = ? AND user_id = ?", row.ArticleID, row.UserID).
				Delete(&model.UserLike{}).Error; err != nil {
				return err
			}
		}

		if len(filteredAdd) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				DoNothing: true,
			}).Create(&filteredAdd).Error; err != nil {
				return err
			}
		}

		uniqueArticleIDs := make(map[string]struct{})
		for _, row := range changes.ToRemove {
			uniqueArticleIDs[row.ArticleID] = struct{}{}
		}
		for _, row := range changes.ToAdd {
			uniqueArticleIDs[row.ArticleID] = struct{}{}
		}

		for aid := range uniqueArticleIDs {
			var realCount int64
			if err := tx.Model(&model.UserLike{}).
				Where("article_id = ?", aid).
				Count(&realCount).Error; err != nil {
				return err
			}

			if err := tx.Model(&model.Article{}).
				Where("id = ?", aid).
				UpdateColumn("likes", realCount).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (m *articleRepository) FetchUserLikedArticles(ctx context.Context, uid string, limit int64) ([]string, error) {
	var res []string
	err := m.DB.WithContext(ctx).
		Model(&model.UserLike{}).
		Where("user_id = ?", uid).
		Order("article_id desc").
		Limit(int(limit)).
		Pluck("article_id", &res).Error

	return res, err
}

func (m *articleRepository) FetchUserLikedAmong(ctx context.Context, uid string, aids []string) ([]string, error) {
	if len(aids) == 0 {
		return []string{}, nil
	}
	var res []string
	err := m.DB.WithContext(ctx).
		Model(&model.UserLike{}).
		Where("user_id = ? AND article_id IN ?", uid, aids).
		Pluck("article_id", &res).Error

	return res, err
}

func (m *articleRepository) FetchArticlesByLikes(ctx context.Context, limit int64) ([]domain.Article, error) {
	var res []model.Article
	err := m.DB.WithContext(ctx).Model(&model.Article{}).Order("likes desc").Limit(int(limit)).Find(&res).Error
	if err != nil {
		return nil, err
	}
	ars := make([]domain.Article, len(res))
	for i := range res {
		ars[i] = res[i].ToDomain()
	}
	return ars, nil
}

func (m *articleRepository) FetchIDs(ctx context.Context, cursor string, limit int64) (ids []string, err error) {
	err = m.DB.WithContext(ctx).
		Model(&model.Article{}).
		Where("id > ?", cursor).
		Order("id").
		Limit(int(limit)).
		Pluck("id", &ids).Error
	return
}
