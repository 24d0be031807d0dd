package article_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/domain/mocks"
	"github.com/Guyuepp/newsfeed/internal/usecase/article"
)

type deps struct {
	repo   *mocks.ArticleRepository
	cache  *mocks.ArticleCache
	worker *mocks.SyncLikesWorker
	bloom  *mocks.BloomRepository
}

func newService() (*article.Service, deps) {
	d := deps{
		repo:   new(mocks.ArticleRepository),
		cache:  new(mocks.ArticleCache),
		worker: new(mocks.SyncLikesWorker),
		bloom:  new(mocks.BloomRepository),
	}
	return article.NewService(d.repo, d.cache, d.worker, d.bloom), d
}

func TestFetch(t *testing.T) {
	now := time.Now()
	list := []domain.Article{
		{ID: "A", Title: "first", PublishedAt: now, Likes: 1},
		{ID: "B", Title: "second", PublishedAt: now.Add(-time.Hour), Likes: 2},
	}

	t.Run("success with viewer", func(t *testing.T) {
		svc, d := newService()
		filter := domain.ArticleFilter{Num: 2}
		d.repo.On("Fetch", mock.Anything, filter).Return(append([]domain.Article(nil), list...), nil).Once()
		d.cache.On("MGetLikeCounts", mock.Anything, []string{"A", "B"}).Return(map[string]int64{"A": 7}, nil).Once()
		d.cache.On("IsLikedBatch", mock.Anything, "U", []string{"A", "B"}).Return(map[string]bool{"B": true}, nil).Once()

		res, next, err := svc.Fetch(context.TODO(), filter, "U")
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, int64(7), res[0].Likes)
		assert.Equal(t, int64(2), res[1].Likes)
		assert.False(t, res[0].Liked)
		assert.True(t, res[1].Liked)
		assert.NotEmpty(t, next)
		d.repo.AssertExpectations(t)
		d.cache.AssertExpectations(t)
	})

	t.Run("liked set loaded on cache miss", func(t *testing.T) {
		svc, d := newService()
		filter := domain.ArticleFilter{Num: 2}
		d.repo.On("Fetch", mock.Anything, filter).Return(append([]domain.Article(nil), list...), nil).Once()
		d.cache.On("MGetLikeCounts", mock.Anything, mock.Anything).Return(map[string]int64{}, nil).Once()
		d.cache.On("IsLikedBatch", mock.Anything, "U", mock.Anything).Return(nil, domain.ErrCacheMiss).Once()
		d.repo.On("FetchUserLikedArticles", mock.Anything, "U", int64(domain.LikeRecordLimit)).Return([]string{"A"}, nil).Once()
		d.cache.On("SetUserLikedArticles", mock.Anything, "U", []string{"A"}, false).Return(nil).Once()

		res, _, err := svc.Fetch(context.TODO(), filter, "U")
		require.NoError(t, err)
		assert.True(t, res[0].Liked)
		assert.False(t, res[1].Liked)
		d.repo.AssertExpectations(t)
		d.cache.AssertExpectations(t)
	})

	t.Run("anonymous viewer", func(t *testing.T) {
		svc, d := newService()
		filter := domain.ArticleFilter{Num: 2}
		d.repo.On("Fetch", mock.Anything, filter).Return(append([]domain.Article(nil), list...), nil).Once()
		d.cache.On("MGetLikeCounts", mock.Anything, mock.Anything).Return(nil, errors.New("redis down")).Once()

		res, _, err := svc.Fetch(context.TODO(), filter, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), res[0].Likes)
		d.cache.AssertNotCalled(t, "IsLikedBatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty page has no cursor", func(t *testing.T) {
		svc, d := newService()
		d.repo.On("Fetch", mock.Anything, mock.Anything).Return([]domain.Article{}, nil).Once()
		res, next, err := svc.Fetch(context.TODO(), domain.ArticleFilter{Num: 5}, "")
		require.NoError(t, err)
		assert.Empty(t, res)
		assert.Empty(t, next)
	})
}

func TestGetByID(t *testing.T) {
	t.Run("bloom rejects", func(t *testing.T) {
		svc, d := newService()
		d.bloom.On("Exists", mock.Anything, "X").Return(false, nil).Once()
		_, err := svc.GetByID(context.TODO(), "X", "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		d.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("counter seeded on miss", func(t *testing.T) {
		svc, d := newService()
		d.bloom.On("Exists", mock.Anything, "A").Return(true, nil).Once()
		d.repo.On("GetByID", mock.Anything, "A").Return(domain.Article{ID: "A", Likes: 4}, nil).Once()
		d.cache.On("GetLikeCount", mock.Anything, "A").Return(int64(0), domain.ErrCacheMiss).Once()
		d.cache.On("InitLikeCount", mock.Anything, "A", int64(4)).Return(nil).Once()

		res, err := svc.GetByID(context.TODO(), "A", "")
		require.NoError(t, err)
		assert.Equal(t, int64(4), res.Likes)
		d.cache.AssertExpectations(t)
	})

	t.Run("live counter and liked flag", func(t *testing.T) {
		svc, d := newService()
		d.bloom.On("Exists", mock.Anything, "A").Return(true, nil).Once()
		d.repo.On("GetByID", mock.Anything, "A").Return(domain.Article{ID: "A", Likes: 4}, nil).Once()
		d.cache.On("GetLikeCount", mock.Anything, "A").Return(int64(9), nil).Once()
		d.cache.On("IsLikedBatch", mock.Anything, "U", []string{"A"}).Return(map[string]bool{"A": true}, nil).Once()

		res, err := svc.GetByID(context.TODO(), "A", "U")
		require.NoError(t, err)
		assert.Equal(t, int64(9), res.Likes)
		assert.True(t, res.Liked)
	})
}

func TestStore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc, d := newService()
		ar := domain.Article{Title: " Breaking ", Content: "<p>hi</p><script>alert(1)</script>", Likes: 99}
		d.repo.On("GetByTitle", mock.Anything, "Breaking").Return(domain.Article{}, domain.ErrNotFound).Once()
		d.repo.On("Store", mock.Anything, mock.AnythingOfType("*domain.Article")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.Article).ID = "NEW"
			}).Return(nil).Once()
		d.bloom.On("Add", mock.Anything, "NEW").Return(nil).Once()

		require.NoError(t, svc.Store(context.TODO(), &ar))
		assert.Equal(t, "NEW", ar.ID)
		assert.Equal(t, int64(0), ar.Likes)
		assert.Equal(t, "<p>hi</p>", ar.Content)
		d.repo.AssertExpectations(t)
		d.bloom.AssertExpectations(t)
	})

	t.Run("duplicate title", func(t *testing.T) {
		svc, d := newService()
		d.repo.On("GetByTitle", mock.Anything, "Breaking").Return(domain.Article{ID: "OLD"}, nil).Once()
		err := svc.Store(context.TODO(), &domain.Article{Title: "Breaking", Content: "x"})
		assert.ErrorIs(t, err, domain.ErrConflict)
		d.repo.AssertNotCalled(t, "Store", mock.Anything, mock.Anything)
	})

	t.Run("validation", func(t *testing.T) {
		svc, d := newService()
		err := svc.Store(context.TODO(), &domain.Article{Title: "", Content: "x"})
		assert.ErrorIs(t, err, domain.ErrValidation)
		d.repo.AssertNotCalled(t, "GetByTitle", mock.Anything, mock.Anything)
	})
}

func TestUpdateKeepsCounters(t *testing.T) {
	svc, d := newService()
	published := time.Now().Add(-time.Hour)
	d.repo.On("GetByID", mock.Anything, "A").Return(domain.Article{
		ID: "A", Author: domain.User{ID: "U"}, PublishedAt: published, Likes: 3, CommentCount: 2,
	}, nil).Once()
	d.repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Article")).Return(nil).Once()

	ar := domain.Article{ID: "A", Title: "new", Content: "body", Likes: 100}
	require.NoError(t, svc.Update(context.TODO(), &ar))
	assert.Equal(t, int64(3), ar.Likes)
	assert.Equal(t, int64(2), ar.CommentCount)
	assert.Equal(t, "U", ar.Author.ID)
	assert.Equal(t, published, ar.PublishedAt)
}

func TestLike(t *testing.T) {
	rec := domain.UserLike{ArticleID: "A", UserID: "U"}

	t.Run("unauthenticated", func(t *testing.T) {
		svc, d := newService()
		_, err := svc.Like(context.TODO(), domain.UserLike{ArticleID: "A"})
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
		d.cache.AssertNotCalled(t, "AddLikeRecord", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("changed", func(t *testing.T) {
		svc, d := newService()
		d.bloom.On("Exists", mock.Anything, "A").Return(true, nil).Once()
		d.cache.On("AddLikeRecord", mock.Anything, rec, false).Return(true, nil).Once()
		d.worker.On("Send", mock.AnythingOfType("domain.UserLike"), domain.Like).Return(true).Once()
		d.cache.On("GetLikeCount", mock.Anything, "A").Return(int64(5), nil).Once()

		res, err := svc.Like(context.TODO(), rec)
		require.NoError(t, err)
		assert.Equal(t, domain.MembershipResult{Changed: true, Member: true, Count: 5}, res)
		d.worker.AssertExpectations(t)
	})

	t.Run("already liked is a no-op", func(t *testing.T) {
		svc, d := newService()
		d.bloom.On("Exists", mock.Anything, "A").Return(true, nil).Once()
		d.cache.On("AddLikeRecord", mock.Anything, rec, false).Return(false, nil).Once()
		d.cache.On("GetLikeCount", mock.Anything, "A").Return(int64(5), nil).Once()

		res, err := svc.Like(context.TODO(), rec)
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.True(t, res.Member)
		d.worker.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("cache miss warms state and retries", func(t *testing.T) {
		svc, d := newService()
		d.bloom.On("Exists", mock.Anything, "A").Return(true, nil).Once()
		d.cache.On("AddLikeRecord", mock.Anything, rec, false).Return(false, domain.ErrCacheMiss).Once()
		d.repo.On("GetByID", mock.Anything, "A").Return(domain.Article{ID: "A", Likes: 2}, nil).Once()
		d.cache.On("InitLikeCount", mock.Anything, "A", int64(2)).Return(nil).Once()
		d.repo.On("FetchUserLikedArticles", mock.Anything, "U", int64(domain.LikeRecordLimit)).Return([]string{}, nil).Once()
		d.cache.On("SetUserLikedArticles", mock.Anything, "U", []string{}, false).Return(nil).Once()
		d.cache.On("AddLikeRecord", mock.Anything, rec, false).Return(true, nil).Once()
		d.worker.On("Send", mock.Anything, domain.Like).Return(true).Once()
		d.cache.On("GetLikeCount", mock.Anything, "A").Return(int64(3), nil).Once()

		res, err := svc.Like(context.TODO(), rec)
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, int64(3), res.Count)
		d.cache.AssertExpectations(t)
		d.repo.AssertExpectations(t)
	})

	t.Run("deleted article", func(t *testing.T) {
		svc, d := newService()
		d.bloom.On("Exists", mock.Anything, "A").Return(true, nil).Once()
		d.cache.On("AddLikeRecord", mock.Anything, rec, false).Return(false, domain.ErrCacheMiss).Once()
		d.repo.On("GetByID", mock.Anything, "A").Return(domain.Article{}, domain.ErrNotFound).Once()

		_, err := svc.Like(context.TODO(), rec)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

// olderLikes is a liked list cut at the cache window
func olderLikes() []string {
	ids := make([]string, domain.LikeRecordLimit)
	for i := range ids {
		ids[i] = fmt.Sprintf("R%03d", i)
	}
	return ids
}

func TestLikeBeyondCachedWindow(t *testing.T) {
	rec := domain.UserLike{ArticleID: "OLD", UserID: "U"}

	t.Run("repeated like of an old article is a no-op", func(t *testing.T) {
		svc, d := newService()
		d.bloom.On("Exists", mock.Anything, "OLD").Return(true, nil).Once()
		d.cache.On("AddLikeRecord", mock.Anything, rec, false).Return(false, domain.ErrCacheMiss).Once()
		d.repo.On("GetByID", mock.Anything, "OLD").Return(domain.Article{ID: "OLD", Likes: 8}, nil).Once()
		d.cache.On("InitLikeCount", mock.Anything, "OLD", int64(8)).Return(nil).Once()
		d.repo.On("FetchUserLikedArticles", mock.Anything, "U", int64(domain.LikeRecordLimit)).Return(olderLikes(), nil).Once()
		d.cache.On("SetUserLikedArticles", mock.Anything, "U", olderLikes(), true).Return(nil).Once()
		d.cache.On("AddLikeRecord", mock.Anything, rec, false).Return(false, domain.ErrCachePartial).Once()
		d.repo.On("FetchUserLikedAmong", mock.Anything, "U", []string{"OLD"}).Return([]string{"OLD"}, nil).Once()
		d.cache.On("SetUserLikedArticles", mock.Anything, "U", []string{"OLD"}, true).Return(nil).Once()
		d.cache.On("AddLikeRecord", mock.Anything, rec, true).Return(false, nil).Once()
		d.cache.On("GetLikeCount", mock.Anything, "OLD").Return(int64(8), nil).Once()

		res, err := svc.Like(context.TODO(), rec)
		require.NoError(t, err)
		assert.Equal(t, domain.MembershipResult{Changed: false, Member: true, Count: 8}, res)
		d.worker.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		d.cache.AssertExpectations(t)
		d.repo.AssertExpectations(t)
	})

	t.Run("first like of an old article counts once", func(t *testing.T) {
		svc, d := newService()
		d.bloom.On("Exists", mock.Anything, "OLD").Return(true, nil).Once()
		d.cache.On("AddLikeRecord", mock.Anything, rec, false).Return(false, domain.ErrCachePartial).Once()
		d.repo.On("FetchUserLikedAmong", mock.Anything, "U", []string{"OLD"}).Return([]string{}, nil).Once()
		d.cache.On("AddLikeRecord", mock.Anything, rec, true).Return(true, nil).Once()
		d.worker.On("Send", mock.Anything, domain.Like).Return(true).Once()
		d.cache.On("GetLikeCount", mock.Anything, "OLD").Return(int64(9), nil).Once()

		res, err := svc.Like(context.TODO(), rec)
		require.NoError(t, err)
		assert.Equal(t, domain.MembershipResult{Changed: true, Member: true, Count: 9}, res)
		d.cache.AssertNotCalled(t, "SetUserLikedArticles", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unlike of an old article", func(t *testing.T) {
		svc, d := newService()
		d.bloom.On("Exists", mock.Anything, "OLD").Return(true, nil).Once()
		d.cache.On("RemoveLikeRecord", mock.Anything, rec, false).Return(false, domain.ErrCachePartial).Once()
		d.repo.On("FetchUserLikedAmong", mock.Anything, "U", []string{"OLD"}).Return([]string{"OLD"}, nil).Once()
		d.cache.On("SetUserLikedArticles", mock.Anything, "U", []string{"OLD"}, true).Return(nil).Once()
		d.cache.On("RemoveLikeRecord", mock.Anything, rec, true).Return(true, nil).Once()
		d.worker.On("Send", mock.Anything, domain.Unlike).Return(true).Once()
		d.cache.On("GetLikeCount", mock.Anything, "OLD").Return(int64(7), nil).Once()

		res, err := svc.Unlike(context.TODO(), rec)
		require.NoError(t, err)
		assert.Equal(t, domain.MembershipResult{Changed: true, Member: false, Count: 7}, res)
	})
}

func TestLikeQueueFullReverts(t *testing.T) {
	svc, d := newService()
	rec := domain.UserLike{ArticleID: "A", UserID: "U"}
	d.bloom.On("Exists", mock.Anything, "A").Return(true, nil).Once()
	d.cache.On("AddLikeRecord", mock.Anything, rec, false).Return(true, nil).Once()
	d.worker.On("Send", mock.Anything, domain.Like).Return(false).Once()
	d.cache.On("RemoveLikeRecord", mock.Anything, rec, true).Return(true, nil).Once()

	_, err := svc.Like(context.TODO(), rec)
	assert.ErrorIs(t, err, domain.ErrBusy)
	d.cache.AssertExpectations(t)
	d.cache.AssertNotCalled(t, "GetLikeCount", mock.Anything, mock.Anything)
}

func TestLikedFlagsFromPartialSet(t *testing.T) {
	svc, d := newService()
	d.bloom.On("Exists", mock.Anything, "OLD").Return(true, nil).Once()
	d.repo.On("GetByID", mock.Anything, "OLD").Return(domain.Article{ID: "OLD", Likes: 8}, nil).Once()
	d.cache.On("GetLikeCount", mock.Anything, "OLD").Return(int64(8), nil).Once()
	d.cache.On("IsLikedBatch", mock.Anything, "U", []string{"OLD"}).
		Return(map[string]bool{"OLD": false}, domain.ErrCachePartial).Once()
	d.repo.On("FetchUserLikedAmong", mock.Anything, "U", []string{"OLD"}).Return([]string{"OLD"}, nil).Once()

	res, err := svc.GetByID(context.TODO(), "OLD", "U")
	require.NoError(t, err)
	assert.True(t, res.Liked)
	d.repo.AssertExpectations(t)
}

func TestUnlikeAbsentIsNoop(t *testing.T) {
	svc, d := newService()
	rec := domain.UserLike{ArticleID: "A", UserID: "U"}
	d.bloom.On("Exists", mock.Anything, "A").Return(true, nil).Once()
	d.cache.On("RemoveLikeRecord", mock.Anything, rec, false).Return(false, nil).Once()
	d.cache.On("GetLikeCount", mock.Anything, "A").Return(int64(0), nil).Once()

	res, err := svc.Unlike(context.TODO(), rec)
	require.NoError(t, err)
	assert.Equal(t, domain.MembershipResult{Changed: false, Member: false, Count: 0}, res)
	d.worker.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestFetchHistoryRankMiss(t *testing.T) {
	svc, d := newService()
	d.cache.On("GetHistoryRank", mock.Anything, int64(2)).Return(nil, domain.ErrCacheMiss).Once()
	d.repo.On("FetchArticlesByLikes", mock.Anything, int64(100)).Return([]domain.Article{
		{ID: "A", Likes: 9}, {ID: "B", Likes: 5}, {ID: "C", Likes: 1},
	}, nil).Once()
	d.cache.On("SetHistoryRank", mock.Anything, []string{"A", "B", "C"}, []float64{9, 5, 1}).Return(nil).Once()

	res, err := svc.FetchHistoryRank(context.TODO(), 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "A", res[0].ID)
	d.cache.AssertExpectations(t)
}

func TestFetchDailyRankSkipsDeleted(t *testing.T) {
	svc, d := newService()
	d.cache.On("GetDailyRank", mock.Anything, int64(10)).Return([]domain.Article{
		{ID: "A", Likes: 4}, {ID: "GONE", Likes: 3}, {ID: "B", Likes: 1},
	}, nil).Once()
	d.repo.On("GetByIDs", mock.Anything, []string{"A", "GONE", "B"}).Return([]domain.Article{
		{ID: "B", Title: "b", Likes: 50}, {ID: "A", Title: "a", Likes: 50},
	}, nil).Once()

	res, err := svc.FetchDailyRank(context.TODO(), 10)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "A", res[0].ID)
	assert.Equal(t, int64(4), res[0].Likes)
	assert.Equal(t, "B", res[1].ID)
}

func TestInitBloomFilter(t *testing.T) {
	svc, d := newService()
	d.repo.On("FetchIDs", mock.Anything, "", int64(1000)).Return([]string{"A", "B"}, nil).Once()
	d.bloom.On("BulkAdd", mock.Anything, []string{"A", "B"}).Return(nil).Once()
	d.repo.On("FetchIDs", mock.Anything, "B", int64(1000)).Return([]string{}, nil).Once()

	require.NoError(t, svc.InitBloomFilter(context.TODO()))
	d.repo.AssertExpectations(t)
	d.bloom.AssertExpectations(t)
}
