package client_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/client"
	"github.com/Guyuepp/newsfeed/internal/optimistic"
	"github.com/Guyuepp/newsfeed/internal/session"
)

var errDown = errors.New("connection reset")

// fakeAPI keeps membership sets like the service does. fail makes the next
// writes fail, block holds them until released.
type fakeAPI struct {
	mu        sync.Mutex
	articles  []client.Article
	likes     map[string]map[string]bool
	bookmarks map[string]bool
	comments  map[string][]client.Comment
	calls     int
	gets      int
	getErr    error
	fail      error
	block     chan struct{}
	entered   chan struct{}
}

func newFakeAPI(articles ...client.Article) *fakeAPI {
	return &fakeAPI{
		articles:  articles,
		likes:     make(map[string]map[string]bool),
		bookmarks: make(map[string]bool),
		comments:  make(map[string][]client.Comment),
	}
}

func (f *fakeAPI) write() error {
	f.mu.Lock()
	f.calls++
	block, entered, fail := f.block, f.entered, f.fail
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return fail
}

func (f *fakeAPI) failReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

func (f *fakeAPI) reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func (f *fakeAPI) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAPI) GetArticlesPage(_ context.Context, limit int, _, cursor string) ([]client.Article, string, error) {
	if cursor != "" {
		return nil, "", nil
	}
	if limit > 0 && limit < len(f.articles) {
		return f.articles[:limit], "more", nil
	}
	return f.articles, "", nil
}

func (f *fakeAPI) GetArticle(_ context.Context, id string) (client.Article, error) {
	f.mu.Lock()
	f.gets++
	err := f.getErr
	f.mu.Unlock()
	if err != nil {
		return client.Article{}, err
	}
	for _, a := range f.articles {
		if a.ID == id {
			return a, nil
		}
	}
	return client.Article{}, domain.ErrNotFound
}

func (f *fakeAPI) GetComments(_ context.Context, articleID string, _ int) ([]client.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.Comment(nil), f.comments[articleID]...), nil
}

func (f *fakeAPI) AddComment(_ context.Context, articleID, text string, anonymous bool) (client.Comment, error) {
	if err := f.write(); err != nil {
		return client.Comment{}, err
	}
	c := client.Comment{ID: "C-new", ArticleID: articleID, Text: text, IsAnonymous: anonymous, CreatedAt: time.Now()}
	f.mu.Lock()
	f.comments[articleID] = append([]client.Comment{c}, f.comments[articleID]...)
	f.mu.Unlock()
	return c, nil
}

func (f *fakeAPI) DeleteComment(_ context.Context, id string) error {
	return f.write()
}

func (f *fakeAPI) LikeSetter() optimistic.MembershipSetter {
	return optimistic.SetterFunc(func(_ context.Context, entityID, actorID string, add bool) error {
		if err := f.write(); err != nil {
			return err
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.likes[entityID] == nil {
			f.likes[entityID] = make(map[string]bool)
		}
		if add {
			f.likes[entityID][actorID] = true
		} else {
			delete(f.likes[entityID], actorID)
		}
		return nil
	})
}

func (f *fakeAPI) BookmarkSetter() optimistic.MembershipSetter {
	return optimistic.SetterFunc(func(_ context.Context, entityID, _ string, add bool) error {
		if err := f.write(); err != nil {
			return err
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if add {
			f.bookmarks[entityID] = true
		} else {
			delete(f.bookmarks, entityID)
		}
		return nil
	})
}

type stubAuth struct {
	mock.Mock
}

func (a *stubAuth) SignIn(ctx context.Context, email, password string) (session.Credentials, error) {
	ret := a.Called(ctx, email, password)
	return ret.Get(0).(session.Credentials), ret.Error(1)
}

func (a *stubAuth) Register(ctx context.Context, email, password, displayName string) (session.Credentials, error) {
	ret := a.Called(ctx, email, password, displayName)
	return ret.Get(0).(session.Credentials), ret.Error(1)
}

func (a *stubAuth) SignInWithProvider(ctx context.Context, provider, idToken string) (session.Credentials, error) {
	ret := a.Called(ctx, provider, idToken)
	return ret.Get(0).(session.Credentials), ret.Error(1)
}

func (a *stubAuth) Restore(ctx context.Context, token string) (session.Identity, error) {
	ret := a.Called(ctx, token)
	return ret.Get(0).(session.Identity), ret.Error(1)
}

func signedIn(t *testing.T, bookmarks ...string) *session.Session {
	t.Helper()
	a := new(stubAuth)
	a.On("SignIn", mock.Anything, "ann@example.com", "secret1").Return(session.Credentials{
		Token:    "tok",
		Identity: session.Identity{ActorID: "U", DisplayName: "Ann", Bookmarks: bookmarks},
	}, nil)
	sess := session.New(a)
	_, err := sess.SignIn(context.TODO(), "ann@example.com", "secret1")
	require.NoError(t, err)
	return sess
}

func newFeed(t *testing.T, api *fakeAPI, sess *session.Session) *client.Feed {
	t.Helper()
	f := client.NewFeed(api, sess)
	t.Cleanup(f.Close)
	_, err := f.Load(context.TODO(), 0, "")
	require.NoError(t, err)
	return f
}

func TestToggleLikeRollback(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A", Likes: 5})
	feed := newFeed(t, api, signedIn(t))

	api.block = make(chan struct{})
	api.entered = make(chan struct{}, 1)
	api.fail = errDown

	type result struct {
		st  optimistic.ToggleState
		err error
	}
	done := make(chan result, 1)
	go func() {
		st, err := feed.ToggleLike(context.TODO(), "A")
		done <- result{st, err}
	}()

	<-api.entered
	card, ok := feed.Card("A")
	require.True(t, ok)
	assert.True(t, card.Liked)
	assert.Equal(t, int64(6), card.Likes)

	close(api.block)
	res := <-done
	var mErr *optimistic.MutationError
	require.ErrorAs(t, res.err, &mErr)
	assert.ErrorIs(t, res.err, errDown)
	assert.Equal(t, optimistic.ToggleState{On: false, Count: 5}, res.st)

	card, _ = feed.Card("A")
	assert.False(t, card.Liked)
	assert.Equal(t, int64(5), card.Likes)
}

func TestToggleLikeRoundTrip(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A", Likes: 5})
	feed := newFeed(t, api, signedIn(t))

	st, err := feed.ToggleLike(context.TODO(), "A")
	require.NoError(t, err)
	assert.Equal(t, optimistic.ToggleState{On: true, Count: 6}, st)
	assert.True(t, api.likes["A"]["U"])

	st, err = feed.ToggleLike(context.TODO(), "A")
	require.NoError(t, err)
	assert.Equal(t, optimistic.ToggleState{On: false, Count: 5}, st)
	assert.Empty(t, api.likes["A"])
	assert.Equal(t, 2, api.writes())
}

func TestToggleLikeSignedOut(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A", Likes: 5})
	sess := session.New(new(stubAuth))
	feed := newFeed(t, api, sess)

	_, err := feed.ToggleLike(context.TODO(), "A")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = feed.ToggleBookmark(context.TODO(), "A")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = feed.PostComment(context.TODO(), "A", "hi", false)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	assert.Zero(t, api.writes())
	card, _ := feed.Card("A")
	assert.Equal(t, int64(5), card.Likes)
}

func TestToggleLikeUnknownArticle(t *testing.T) {
	api := newFakeAPI()
	feed := newFeed(t, api, signedIn(t))

	_, err := feed.ToggleLike(context.TODO(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, api.writes())
}

func TestToggleBookmarkAddThenRemove(t *testing.T) {
	api := newFakeAPI()
	feed := newFeed(t, api, signedIn(t, "B"))
	assert.Equal(t, []string{"B"}, feed.Bookmarks())

	st, err := feed.ToggleBookmark(context.TODO(), "A")
	require.NoError(t, err)
	assert.True(t, st.On)
	assert.Equal(t, int64(2), st.Count)
	assert.True(t, feed.IsBookmarked("A"))

	_, err = feed.ToggleBookmark(context.TODO(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, feed.Bookmarks())
	assert.False(t, api.bookmarks["A"])
}

func TestToggleBookmarkRollbackKeepsOthers(t *testing.T) {
	api := newFakeAPI()
	feed := newFeed(t, api, signedIn(t, "B", "C", "D"))
	api.fail = errDown

	for _, id := range []string{"B", "C", "D"} {
		_, err := feed.ToggleBookmark(context.TODO(), id)
		assert.ErrorIs(t, err, errDown)
		assert.Equal(t, []string{"B", "C", "D"}, feed.Bookmarks())
	}

	_, err := feed.ToggleBookmark(context.TODO(), "E")
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, []string{"B", "C", "D"}, feed.Bookmarks())
}

func TestSignOutResetsActorState(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A", Likes: 5, Liked: true})
	sess := signedIn(t, "A")
	feed := newFeed(t, api, sess)

	card, _ := feed.Card("A")
	require.True(t, card.Liked)

	sess.SignOut()
	assert.Eventually(t, func() bool {
		card, _ := feed.Card("A")
		return !card.Liked && card.Likes == 5 && len(feed.Bookmarks()) == 0
	}, time.Second, 10*time.Millisecond)
}

func liked(feed *client.Feed, id string, want bool, likes int64) func() bool {
	return func() bool {
		card, _ := feed.Card(id)
		return card.Liked == want && card.Likes == likes
	}
}

func TestSignInAgainRestoresLikedFlags(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A", Likes: 5, Liked: true})
	api.likes["A"] = map[string]bool{"U": true}
	sess := signedIn(t)
	feed := newFeed(t, api, sess)

	sess.SignOut()
	require.Eventually(t, liked(feed, "A", false, 5), time.Second, 10*time.Millisecond)

	_, err := sess.SignIn(context.TODO(), "ann@example.com", "secret1")
	require.NoError(t, err)
	require.Eventually(t, liked(feed, "A", true, 5), time.Second, 10*time.Millisecond)

	st, err := feed.ToggleLike(context.TODO(), "A")
	require.NoError(t, err)
	assert.Equal(t, optimistic.ToggleState{On: false, Count: 4}, st)
	assert.Empty(t, api.likes["A"])
}

func TestToggleLikeFetchesStaleCard(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A", Likes: 5, Liked: true})
	api.likes["A"] = map[string]bool{"U": true}
	sess := signedIn(t)
	feed := newFeed(t, api, sess)

	sess.SignOut()
	require.Eventually(t, liked(feed, "A", false, 5), time.Second, 10*time.Millisecond)

	api.failReads(errDown)
	_, err := sess.SignIn(context.TODO(), "ann@example.com", "secret1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return api.reads() > 0 }, time.Second, 10*time.Millisecond)

	_, err = feed.ToggleLike(context.TODO(), "A")
	assert.ErrorIs(t, err, errDown)
	assert.Zero(t, api.writes())
	card, _ := feed.Card("A")
	assert.False(t, card.Liked)

	api.failReads(nil)
	st, err := feed.ToggleLike(context.TODO(), "A")
	require.NoError(t, err)
	assert.Equal(t, optimistic.ToggleState{On: false, Count: 4}, st)
	assert.Equal(t, 1, api.writes())
	assert.Empty(t, api.likes["A"])
}

func TestPostComment(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A", CommentCount: 1})
	api.comments["A"] = []client.Comment{{ID: "C-old", ArticleID: "A", Text: "first"}}
	feed := newFeed(t, api, signedIn(t))
	_, err := feed.LoadComments(context.TODO(), "A", 10)
	require.NoError(t, err)

	api.block = make(chan struct{})
	api.entered = make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		_, err := feed.PostComment(context.TODO(), "A", "  second ", false)
		done <- err
	}()

	<-api.entered
	pending := feed.Comments("A")
	require.Len(t, pending, 2)
	assert.True(t, pending[0].Pending)
	assert.Equal(t, "second", pending[0].Text)
	assert.Equal(t, "Ann", pending[0].AuthorName)
	card, _ := feed.Card("A")
	assert.Equal(t, int64(2), card.CommentCount)

	close(api.block)
	require.NoError(t, <-done)
	list := feed.Comments("A")
	require.Len(t, list, 2)
	assert.Equal(t, "C-new", list[0].ID)
	assert.False(t, list[0].Pending)
	assert.Equal(t, "C-old", list[1].ID)
}

func TestPostCommentFailureRestores(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A", CommentCount: 0})
	feed := newFeed(t, api, signedIn(t))
	api.fail = errDown

	_, err := feed.PostComment(context.TODO(), "A", "hello", true)
	assert.ErrorIs(t, err, errDown)
	assert.Empty(t, feed.Comments("A"))
	card, _ := feed.Card("A")
	assert.Zero(t, card.CommentCount)
}

func TestPostCommentBlank(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A"})
	feed := newFeed(t, api, signedIn(t))

	_, err := feed.PostComment(context.TODO(), "A", "   ", false)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, api.writes())
}

func TestDeleteComment(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A", CommentCount: 2})
	api.comments["A"] = []client.Comment{{ID: "C1"}, {ID: "C2"}}
	feed := newFeed(t, api, signedIn(t))
	_, err := feed.LoadComments(context.TODO(), "A", 10)
	require.NoError(t, err)

	api.fail = errDown
	err = feed.DeleteComment(context.TODO(), "A", "C1")
	assert.ErrorIs(t, err, errDown)
	assert.Len(t, feed.Comments("A"), 2)

	api.fail = nil
	require.NoError(t, feed.DeleteComment(context.TODO(), "A", "C1"))
	list := feed.Comments("A")
	require.Len(t, list, 1)
	assert.Equal(t, "C2", list[0].ID)
	card, _ := feed.Card("A")
	assert.Equal(t, int64(1), card.CommentCount)
}

func TestMore(t *testing.T) {
	api := newFakeAPI(client.Article{ID: "A"}, client.Article{ID: "B"})
	feed := client.NewFeed(api, session.New(new(stubAuth)))
	defer feed.Close()

	cards, err := feed.Load(context.TODO(), 1, "")
	require.NoError(t, err)
	require.Len(t, cards, 1)

	more, err := feed.More(context.TODO(), 1)
	require.NoError(t, err)
	assert.False(t, more)

	more, err = feed.More(context.TODO(), 1)
	require.NoError(t, err)
	assert.False(t, more)
}
