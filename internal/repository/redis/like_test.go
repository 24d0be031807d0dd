package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guyuepp/newsfeed/domain"
)

func TestLikeRecordOnPartialSet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewArticleCache(client)
	rec := domain.UserLike{ArticleID: "A", UserID: "U"}

	mock.ExpectEvalSha(likeScript.Hash(), c.likeKeys(rec), "A", 1, 0, likedSetPartial).SetVal(int64(-3))
	changed, err := c.AddLikeRecord(context.TODO(), rec, false)
	assert.ErrorIs(t, err, domain.ErrCachePartial)
	assert.False(t, changed)

	mock.ExpectEvalSha(likeScript.Hash(), c.likeKeys(rec), "A", 1, 1, likedSetPartial).SetVal(int64(1))
	changed, err = c.AddLikeRecord(context.TODO(), rec, true)
	require.NoError(t, err)
	assert.True(t, changed)

	mock.ExpectEvalSha(unlikeScript.Hash(), c.likeKeys(rec), "A", -1, 1, likedSetPartial).SetVal(int64(0))
	changed, err = c.RemoveLikeRecord(context.TODO(), rec, true)
	require.NoError(t, err)
	assert.False(t, changed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsLikedBatchPartial(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewArticleCache(client)
	key := fmt.Sprintf(KeyUserLikedArticles, "U")

	mock.ExpectEvalSha(isLikedBatchScript.Hash(), []string{key}, "A", "B", likedSetPartial).
		SetVal([]any{int64(1), int64(0), int64(1)})
	flags, err := c.IsLikedBatch(context.TODO(), "U", []string{"A", "B"})
	assert.ErrorIs(t, err, domain.ErrCachePartial)
	assert.Equal(t, map[string]bool{"A": true, "B": false}, flags)

	mock.ExpectEvalSha(isLikedBatchScript.Hash(), []string{key}, "A", likedSetPartial).
		SetVal([]any{int64(0), int64(0)})
	flags, err = c.IsLikedBatch(context.TODO(), "U", []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"A": false}, flags)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetUserLikedArticlesMarksPartial(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewArticleCache(client)
	key := fmt.Sprintf(KeyUserLikedArticles, "U")

	mock.ExpectTxPipeline()
	mock.ExpectSAdd(key, likedSetPlaceholder, likedSetPartial, "A").SetVal(3)
	mock.ExpectExpire(key, likedSetTTL).SetVal(true)
	mock.ExpectTxPipelineExec()

	require.NoError(t, c.SetUserLikedArticles(context.TODO(), "U", []string{"A"}, true))
	assert.NoError(t, mock.ExpectationsWereMet())
}
