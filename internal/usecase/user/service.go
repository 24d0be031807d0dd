package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/auth"
)

const minPasswordLen = 6

type service struct {
	userRepo    domain.UserRepository
	articleRepo domain.ArticleRepository
	verifier    domain.ProviderVerifier
	jwtSecret   []byte
	jwtTTL      time.Duration
	validate    *validator.Validate
}

var _ domain.UserUsecase = (*service)(nil)

func NewService(userRepo domain.UserRepository, articleRepo domain.ArticleRepository, verifier domain.ProviderVerifier, jwtSecret []byte, jwtTTL time.Duration) *service {
	return &service{
		userRepo:    userRepo,
		articleRepo: articleRepo,
		verifier:    verifier,
		jwtSecret:   jwtSecret,
		jwtTTL:      jwtTTL,
		validate:    validator.New(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, email, password, displayName string) (domain.AuthResult, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return domain.AuthResult{}, errors.Join(domain.ErrValidation, err)
	}
	if len(password) < minPasswordLen {
		return domain.AuthResult{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLen)
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return domain.AuthResult{}, domain.ErrConflict
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.AuthResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.AuthResult{}, err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = domain.DefaultDisplayName
	}

	u := domain.User{
		Email:       email,
		DisplayName: displayName,
		Password:    string(hash),
		Role:        domain.RoleUser,
		Provider:    domain.ProviderPassword,
		LastLogin:   time.Now(),
	}
	if err := s.userRepo.Insert(ctx, &u); err != nil {
		return domain.AuthResult{}, err
	}

	return s.issue(u)
}

func (s *service) Login(ctx context.Context, email, password string) (domain.AuthResult, error) {
	u, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.AuthResult{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.AuthResult{}, err
	}
	if u.Password == "" {
		// provider account, no password set
		return domain.AuthResult{}, domain.ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return domain.AuthResult{}, domain.ErrUnauthenticated
	}

	s.touch(ctx, &u)
	return s.signedIn(ctx, u)
}

// LoginWithProvider signs in the account matching the provider identity,
// creating it on first use. An e-mail already registered with a password
// cannot be taken over by a provider login.
func (s *service) LoginWithProvider(ctx context.Context, provider, idToken string) (domain.AuthResult, error) {
	if provider != domain.ProviderGoogle && provider != domain.ProviderApple {
		return domain.AuthResult{}, domain.ErrBadParamInput
	}

	id, err := s.verifier.Verify(ctx, provider, idToken)
	if err != nil {
		return domain.AuthResult{}, err
	}

	u, err := s.userRepo.GetByEmail(ctx, id.Email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		name := strings.TrimSpace(id.DisplayName)
		if name == "" {
			name = domain.DefaultDisplayName
		}
		u = domain.User{
			Email:       id.Email,
			DisplayName: name,
			PhotoURL:    id.PhotoURL,
			Role:        domain.RoleUser,
			Provider:    provider,
			LastLogin:   time.Now(),
		}
		if err := s.userRepo.Insert(ctx, &u); err != nil {
			return domain.AuthResult{}, err
		}
		return s.issue(u)
	case err != nil:
		return domain.AuthResult{}, err
	}

	if u.Provider == domain.ProviderPassword {
		return domain.AuthResult{}, domain.ErrConflict
	}
	if id.PhotoURL != "" {
		u.PhotoURL = id.PhotoURL
	}
	s.touch(ctx, &u)
	return s.signedIn(ctx, u)
}

func (s *service) touch(ctx context.Context, u *domain.User) {
	u.LastLogin = time.Now()
	if err := s.userRepo.Update(ctx, u); err != nil {
		logrus.Warnf("failed to update last login of %s: %v", u.ID, err)
	}
}

func (s *service) signedIn(ctx context.Context, u domain.User) (domain.AuthResult, error) {
	bookmarks, err := s.userRepo.FetchBookmarks(ctx, u.ID)
	if err != nil {
		return domain.AuthResult{}, err
	}
	u.Bookmarks = bookmarks
	return s.issue(u)
}

func (s *service) issue(u domain.User) (domain.AuthResult, error) {
	token, err := auth.GenerateToken(s.jwtSecret, &auth.Claims{UserID: u.ID, Role: u.Role}, s.jwtTTL)
	if err != nil {
		return domain.AuthResult{}, err
	}
	u.Password = ""
	if u.Bookmarks == nil {
		u.Bookmarks = []string{}
	}
	return domain.AuthResult{Token: token, User: u}, nil
}

func (s *service) Profile(ctx context.Context, id string) (domain.User, error) {
	if id == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	u.Password = ""
	u.Bookmarks, err = s.userRepo.FetchBookmarks(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *service) AddBookmark(ctx context.Context, userID, articleID string) (domain.MembershipResult, error) {
	if userID == "" {
		return domain.MembershipResult{}, domain.ErrUnauthenticated
	}
	if _, err := s.articleRepo.GetByID(ctx, articleID); err != nil {
		return domain.MembershipResult{}, err
	}

	changed, err := s.userRepo.AddBookmark(ctx, userID, articleID)
	if err != nil {
		return domain.MembershipResult{}, err
	}
	return s.bookmarks(ctx, userID, changed, true)
}

// RemoveBookmark does not look the article up, a deleted article can still be unbookmarked
func (s *service) RemoveBookmark(ctx context.Context, userID, articleID string) (domain.MembershipResult, error) {
	if userID == "" {
		return domain.MembershipResult{}, domain.ErrUnauthenticated
	}

	changed, err := s.userRepo.RemoveBookmark(ctx, userID, articleID)
	if err != nil {
		return domain.MembershipResult{}, err
	}
	return s.bookmarks(ctx, userID, changed, false)
}

func (s *service) bookmarks(ctx context.Context, userID string, changed, member bool) (domain.MembershipResult, error) {
	set, err := s.userRepo.FetchBookmarks(ctx, userID)
	if err != nil {
		return domain.MembershipResult{}, err
	}
	if set == nil {
		set = []string{}
	}
	return domain.MembershipResult{
		Changed: changed,
		Member:  member,
		Count:   int64(len(set)),
		Members: set,
	}, nil
}
