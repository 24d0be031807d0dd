package comment

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/repository"
)

type service struct {
	commentRepo domain.CommentRepository
	articleRepo domain.ArticleRepository
	userRepo    domain.UserRepository
	bloomRepo   domain.BloomRepository
	validate    *validator.Validate
	textPolicy  *bluemonday.Policy
}

var _ domain.CommentUsecase = (*service)(nil)

func NewService(commentRepo domain.CommentRepository, articleRepo domain.ArticleRepository, userRepo domain.UserRepository, bloomRepo domain.BloomRepository) *service {
	return &service{
		commentRepo: commentRepo,
		articleRepo: articleRepo,
		userRepo:    userRepo,
		bloomRepo:   bloomRepo,
		validate:    validator.New(),
		textPolicy:  bluemonday.StrictPolicy(),
	}
}

func (s *service) mustExists(ctx context.Context, id string) error {
	exists, err := s.bloomRepo.Exists(ctx, id)
	if err == nil && !exists {
		logrus.Warnf("bloom filter says article %s does not exist", id)
		return domain.ErrNotFound
	}

	return nil
}

// plainText strips markup, comments are rendered as text
func (s *service) plainText(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.textPolicy.Sanitize(text)))
}

func (s *service) Create(ctx context.Context, c *domain.Comment) error {
	if c.UserID == "" {
		return domain.ErrUnauthenticated
	}
	c.Text = s.plainText(c.Text)
	if err := s.validate.Struct(c); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}

	if err := s.mustExists(ctx, c.ArticleID); err != nil {
		return err
	}
	if _, err := s.articleRepo.GetByID(ctx, c.ArticleID); err != nil {
		return err
	}

	c.UserName = ""
	if !c.IsAnonymous {
		u, err := s.userRepo.GetByID(ctx, c.UserID)
		if err != nil {
			return err
		}
		c.UserName = u.DisplayName
	}

	if err := s.commentRepo.Store(ctx, c); err != nil {
		return err
	}

	if err := s.articleRepo.AddCommentCount(ctx, c.ArticleID, 1); err != nil {
		logrus.Errorf("failed to increase comment count of %s: %v", c.ArticleID, err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id string, actor domain.Actor) error {
	if actor.ID == "" {
		return domain.ErrUnauthenticated
	}

	c, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != actor.ID && !actor.IsAdmin() {
		return domain.ErrForbidden
	}

	if err := s.commentRepo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.articleRepo.AddCommentCount(ctx, c.ArticleID, -1); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logrus.Errorf("failed to decrease comment count of %s: %v", c.ArticleID, err)
	}
	return nil
}

func (s *service) FetchByArticle(ctx context.Context, articleID string, cursor string, limit int64) ([]domain.Comment, string, error) {
	if err := s.mustExists(ctx, articleID); err != nil {
		return nil, "", err
	}
	res, err := s.commentRepo.FetchByArticle(ctx, articleID, cursor, limit)
	return page(res, err)
}

func (s *service) FetchByUser(ctx context.Context, userID string, cursor string, limit int64) ([]domain.Comment, string, error) {
	res, err := s.commentRepo.FetchByUser(ctx, userID, cursor, limit)
	return page(res, err)
}

func page(res []domain.Comment, err error) ([]domain.Comment, string, error) {
	if err != nil {
		return []domain.Comment{}, "", err
	}
	if len(res) == 0 {
		return []domain.Comment{}, "", nil
	}
	return res, repository.EncodeCursor(res[len(res)-1].CreatedAt), nil
}
