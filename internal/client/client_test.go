package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/domain/mocks"
	"github.com/Guyuepp/newsfeed/internal/auth"
	"github.com/Guyuepp/newsfeed/internal/client"
	"github.com/Guyuepp/newsfeed/internal/rest"
	"github.com/Guyuepp/newsfeed/internal/session"
)

var secret = []byte("client-test-secret-0123")

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	*httptest.Server
	articles *mocks.ArticleUsecase
	comments *mocks.CommentUsecase
	users    *mocks.UserUsecase
}

func newServer(t *testing.T) server {
	t.Helper()
	s := server{
		articles: new(mocks.ArticleUsecase),
		comments: new(mocks.CommentUsecase),
		users:    new(mocks.UserUsecase),
	}
	s.Server = httptest.NewServer(rest.NewRouter(rest.RouterConfig{
		JWTSecret:      secret,
		Timeout:        time.Second,
		AllowedOrigins: []string{"*"},
		RPS:            100,
		Burst:          100,
	}, s.articles, s.comments, s.users))
	t.Cleanup(s.Close)
	return s
}

func token(t *testing.T, uid, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(secret, &auth.Claims{UserID: uid, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestGetArticlesPage(t *testing.T) {
	s := newServer(t)
	c := client.New(s.URL)
	s.articles.On("Fetch", mock.Anything, domain.ArticleFilter{Num: 5, Category: "tech"}, "").
		Return([]domain.Article{
			{ID: "A", Title: "hello", Likes: 5, Author: domain.User{ID: "W", DisplayName: "Writer"}},
		}, "next", nil).Once()

	list, next, err := c.GetArticlesPage(context.TODO(), 5, "tech", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].ID)
	assert.Equal(t, int64(5), list[0].Likes)
	assert.False(t, list[0].Liked)
	assert.Equal(t, "Writer", list[0].Author.DisplayName)
	assert.Equal(t, "next", next)
}

func TestStatusMapsToSentinel(t *testing.T) {
	s := newServer(t)
	c := client.New(s.URL)
	s.articles.On("GetByID", mock.Anything, "gone", "").Return(domain.Article{}, domain.ErrNotFound).Once()
	s.articles.On("GetByID", mock.Anything, "boom", "").Return(domain.Article{}, errors.New("db down")).Once()

	_, err := c.GetArticle(context.TODO(), "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	_, err = c.GetArticle(context.TODO(), "boom")
	assert.ErrorIs(t, err, client.ErrRemote)

	_, err = c.Like(context.TODO(), "A")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	s.articles.AssertNotCalled(t, "Like", mock.Anything, mock.Anything)
}

func TestNetworkFailureIsRemote(t *testing.T) {
	s := newServer(t)
	url := s.URL
	s.Close()

	_, err := client.New(url).GetArticle(context.TODO(), "A")
	assert.ErrorIs(t, err, client.ErrRemote)
}

func TestLikeSetterIsIdempotent(t *testing.T) {
	s := newServer(t)
	c := client.New(s.URL)
	c.SetToken(token(t, "U", domain.RoleUser))

	rec := domain.UserLike{ArticleID: "A", UserID: "U"}
	s.articles.On("Like", mock.Anything, rec).Return(domain.MembershipResult{Changed: true, Member: true, Count: 6}, nil).Once()
	s.articles.On("Like", mock.Anything, rec).Return(domain.MembershipResult{Member: true, Count: 6}, nil).Once()
	s.articles.On("Unlike", mock.Anything, rec).Return(domain.MembershipResult{Count: 5}, nil).Once()

	setter := c.LikeSetter()
	require.NoError(t, setter.SetMembership(context.TODO(), "A", "U", true))
	require.NoError(t, setter.SetMembership(context.TODO(), "A", "U", true))
	require.NoError(t, setter.SetMembership(context.TODO(), "A", "U", false))
	s.articles.AssertExpectations(t)
}

func TestPinnedTokenWins(t *testing.T) {
	s := newServer(t)
	next := token(t, "V", domain.RoleUser)
	c := client.New(s.URL, client.WithTokenSource(func() string { return next }))

	s.articles.On("Like", mock.Anything, domain.UserLike{ArticleID: "A", UserID: "U"}).
		Return(domain.MembershipResult{Changed: true, Member: true, Count: 1}, nil).Once()
	s.articles.On("Like", mock.Anything, domain.UserLike{ArticleID: "A", UserID: "V"}).
		Return(domain.MembershipResult{Changed: true, Member: true, Count: 2}, nil).Once()

	ctx := client.WithToken(context.TODO(), token(t, "U", domain.RoleUser))
	require.NoError(t, c.LikeSetter().SetMembership(ctx, "A", "U", true))
	require.NoError(t, c.LikeSetter().SetMembership(context.TODO(), "A", "V", true))
	s.articles.AssertExpectations(t)
}

func TestBookmarks(t *testing.T) {
	s := newServer(t)
	c := client.New(s.URL)
	c.SetToken(token(t, "U", domain.RoleUser))
	s.users.On("AddBookmark", mock.Anything, "U", "A").
		Return(domain.MembershipResult{Changed: true, Member: true, Count: 1, Members: []string{"A"}}, nil).Once()
	s.users.On("RemoveBookmark", mock.Anything, "U", "A").
		Return(domain.MembershipResult{Changed: true, Members: []string{}}, nil).Once()

	res, err := c.AddBookmark(context.TODO(), "A")
	require.NoError(t, err)
	assert.True(t, res.IsChanged)
	assert.Equal(t, []string{"A"}, res.Bookmarks)

	require.NoError(t, c.BookmarkSetter().SetMembership(context.TODO(), "A", "U", false))
}

func TestComments(t *testing.T) {
	s := newServer(t)
	c := client.New(s.URL)
	c.SetToken(token(t, "U", domain.RoleUser))

	s.comments.On("Create", mock.Anything, mock.AnythingOfType("*domain.Comment")).
		Run(func(args mock.Arguments) {
			cm := args.Get(1).(*domain.Comment)
			cm.ID = "C"
			cm.CreatedAt = time.Now()
		}).Return(nil).Once()
	s.comments.On("FetchByArticle", mock.Anything, "A", "", int64(10)).Return([]domain.Comment{
		{ID: "C", ArticleID: "A", UserID: "U", UserName: "Ann", Text: "hi"},
		{ID: "D", ArticleID: "A", UserID: "V", Text: "psst", IsAnonymous: true},
	}, "", nil).Once()
	s.comments.On("Delete", mock.Anything, "C", domain.Actor{ID: "U", Role: domain.RoleUser}).Return(nil).Once()

	created, err := c.AddComment(context.TODO(), "A", "hi", true)
	require.NoError(t, err)
	assert.Equal(t, "C", created.ID)
	assert.True(t, created.IsAnonymous)
	assert.Empty(t, created.AuthorID)

	list, err := c.GetComments(context.TODO(), "A", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ann", list[0].AuthorName)
	assert.Empty(t, list[1].AuthorName)

	require.NoError(t, c.DeleteComment(context.TODO(), "C"))
}

func TestSessionThroughAuthenticator(t *testing.T) {
	s := newServer(t)
	c := client.New(s.URL)
	sess := session.New(c.Authenticator())
	c.SetTokenSource(sess.Token)

	tok := token(t, "U", domain.RoleAdmin)
	s.users.On("Login", mock.Anything, "ann@example.com", "secret1").Return(domain.AuthResult{
		Token: tok,
		User:  domain.User{ID: "U", Email: "ann@example.com", DisplayName: "Ann", Role: domain.RoleAdmin, Bookmarks: []string{"A"}},
	}, nil).Once()
	s.users.On("Profile", mock.Anything, "U").
		Return(domain.User{ID: "U", DisplayName: "Ann", Role: domain.RoleAdmin}, nil).Twice()

	id, err := sess.SignIn(context.TODO(), "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "U", id.ActorID)
	assert.Equal(t, []string{"A"}, id.Bookmarks)
	assert.True(t, sess.IsAdmin())

	// the token source follows the session
	me, err := c.Me(context.TODO())
	require.NoError(t, err)
	assert.Equal(t, "U", me.ID)

	sess.SignOut()
	_, err = c.Me(context.TODO())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	restored, err := sess.Restore(context.TODO(), tok)
	require.NoError(t, err)
	assert.Equal(t, "Ann", restored.DisplayName)
	assert.Equal(t, tok, sess.Token())
}

func TestMessage(t *testing.T) {
	assert.Empty(t, client.Message(nil))
	assert.Equal(t, "Please sign in to do that.", client.Message(domain.ErrUnauthenticated))
	assert.Equal(t, "Please fill in the required text before sending.", client.Message(domain.ErrValidation))
	assert.Contains(t, client.Message(&client.APIError{Status: http.StatusBadGateway}), "could not reach")
	assert.Contains(t, client.Message(&client.APIError{Status: http.StatusNotFound}), "no longer exists")
	assert.Equal(t, "Something went wrong. Please try again.", client.Message(errors.New("odd")))
}
