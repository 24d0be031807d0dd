package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/repository/cache"
)

const (
	KeyArticles               = "article:%s"
	KeyHome                   = "article:home"
	KeyUserLikedArticles      = "article:user:%s:likedArticles"
	KeyHotDailyRaw            = "article:hot:daily:raw:%s"
	KeyHotDailyAggreGatedRank = "article:hot:daily:rank"
	KeyHotHistoryRank         = "article:hot:history:rank"
	KeyLikesBuffer            = "article:likes:%s"

	// likedSetPlaceholder keeps an empty liked set alive so a loaded-but-empty
	// set is distinguishable from a set that was never loaded
	likedSetPlaceholder = "-"
	// likedSetPartial marks a liked set loaded from a truncated list
	likedSetPartial = "+"
	likedSetTTL     = 30 * time.Minute
	articleTTL      = 24 * time.Hour
	// likeCountTTL bounds how long a counter that drifted from the database can be served
	likeCountTTL = 24 * time.Hour
)

// likeScript adds ARGV[1] to the liker set KEYS[1]. It is a no-op when the
// member is already there, so repeated likes never double count. A partial
// set (marker ARGV[4]) cannot vouch for an absent member unless ARGV[3] is 1.
var likeScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return -1 -- 未缓存, 需要加载缓存
	end
	if redis.call('EXISTS', KEYS[3]) == 0 then
		return -2 -- 点赞数未缓存
	end

	if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
		return 0 -- 已点赞
	end
	if ARGV[3] ~= '1' and redis.call('SISMEMBER', KEYS[1], ARGV[4]) == 1 then
		return -3 -- 集合不完整, 需要查库
	end

	redis.call('SADD', KEYS[1], ARGV[1])
	redis.call('EXPIRE', KEYS[1], 1800)

	redis.call('ZINCRBY', KEYS[2], ARGV[2], ARGV[1])
	redis.call('EXPIRE', KEYS[2], 60*60*26) -- 26 hours

	redis.call('INCR', KEYS[3])
	return 1 -- 点赞成功
`)

// unlikeScript is the symmetric removal; the counter never goes below zero.
var unlikeScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return -1 -- 未缓存, 需要加载缓存
	end
	if redis.call('EXISTS', KEYS[3]) == 0 then
		return -2 -- 点赞数未缓存
	end

	if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then
		if ARGV[3] ~= '1' and redis.call('SISMEMBER', KEYS[1], ARGV[4]) == 1 then
			return -3 -- 集合不完整, 需要查库
		end
		return 0 -- 未点赞
	end

	redis.call('SREM', KEYS[1], ARGV[1])
	redis.call('EXPIRE', KEYS[1], 1800)

	redis.call('ZINCRBY', KEYS[2], ARGV[2], ARGV[1])
	redis.call('EXPIRE', KEYS[2], 60*60*26) -- 26 hours

	if tonumber(redis.call('GET', KEYS[3])) > 0 then
		redis.call('DECR', KEYS[3])
	end
	return 1 -- 取消赞成功
`)

var isLikedBatchScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return nil
	end

	redis.call('EXPIRE', KEYS[1], 60*30)

	local results = {}
	for i, id in ipairs(ARGV) do
		results[i] = redis.call('SISMEMBER', KEYS[1], id)
	end
	return results
`)

type articleCache struct {
	client *redis.Client
}

var _ domain.ArticleCache = (*articleCache)(nil)

func NewArticleCache(client *redis.Client) *articleCache {
	return &articleCache{
		client,
	}
}

func (c *articleCache) GetArticleWithLogicalExpire(ctx context.Context, id string) (domain.Article, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(KeyArticles, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Article{}, false, domain.ErrCacheMiss
	} else if err != nil {
		return domain.Article{}, false, err
	}

	var wrapped cache.Envelope[domain.Article]
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return domain.Article{}, false, err
	}
	return wrapped.Data, wrapped.Stale(), nil
}

func (c *articleCache) SetArticleWithLogicalExpire(ctx context.Context, ar *domain.Article, ttl time.Duration) error {
	data, err := json.Marshal(cache.Wrap(*ar, ttl))
	if err != nil {
		return err
	}
	// the physical TTL only reclaims memory, freshness is decided by the logical expiry
	return c.client.Set(ctx, fmt.Sprintf(KeyArticles, ar.ID), data, articleTTL).Err()
}

func (c *articleCache) GetArticleByIDs(ctx context.Context, ids []string) ([]domain.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(KeyArticles, id)
	}

	jsonList, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	articles := make([]domain.Article, 0, len(ids))
	for _, val := range jsonList {
		str, ok := val.(string)
		if !ok {
			continue
		}

		var wrapped cache.Envelope[domain.Article]
		if err := json.Unmarshal([]byte(str), &wrapped); err != nil {
			logrus.Warnf("failed to unmarshal cached article: %v", err)
			continue
		}
		articles = append(articles, wrapped.Data)
	}

	return articles, nil
}

func (c *articleCache) BatchSetArticle(ctx context.Context, ars []domain.Article) error {
	if len(ars) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	var errMarshal error
	for i := range ars {
		data, err := json.Marshal(cache.Wrap(ars[i], 10*time.Minute))
		if err != nil {
			logrus.Warnf("failed to marshal article for cache, ID: %s, err: %v", ars[i].ID, err)
			errMarshal = err
			continue
		}
		pipe.Set(ctx, fmt.Sprintf(KeyArticles, ars[i].ID), data, articleTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return errMarshal
}

func (c *articleCache) GetHomeWithLogicalExpire(ctx context.Context) ([]domain.Article, bool, error) {
	data, err := c.client.Get(ctx, KeyHome).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, domain.ErrCacheMiss
	} else if err != nil {
		return nil, false, err
	}

	var wrapped cache.Envelope[[]domain.Article]
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, false, err
	}
	return wrapped.Data, wrapped.Stale(), nil
}

func (c *articleCache) SetHomeWithLogicalExpire(ctx context.Context, ars []domain.Article, ttl time.Duration) error {
	data, err := json.Marshal(cache.Wrap(ars, ttl))
	if err != nil {
		return err
	}
	return c.client.Set(ctx, KeyHome, data, articleTTL).Err()
}

func (c *articleCache) DeleteArticle(ctx context.Context, id string) error {
	return c.client.Del(ctx,
		fmt.Sprintf(KeyArticles, id),
		fmt.Sprintf(KeyLikesBuffer, id),
		KeyHome,
	).Err()
}

func (c *articleCache) likeKeys(likeRecord domain.UserLike) []string {
	// KEYS = {该用户喜欢的文章列表, 今日热榜, 点赞数}
	return []string{
		fmt.Sprintf(KeyUserLikedArticles, likeRecord.UserID),
		fmt.Sprintf(KeyHotDailyRaw, time.Now().Format("2006010215")),
		fmt.Sprintf(KeyLikesBuffer, likeRecord.ArticleID),
	}
}

func (c *articleCache) runLikeScript(ctx context.Context, script *redis.Script, likeRecord domain.UserLike, score int, verified bool) (bool, error) {
	checked := 0
	if verified {
		checked = 1
	}
	// ARGV = {本次文章ID, 点赞加分, 已查库, 不完整标记}
	res, err := script.Run(ctx, c.client, c.likeKeys(likeRecord), likeRecord.ArticleID, score, checked, likedSetPartial).Int()
	if err != nil {
		return false, err
	}
	switch res {
	case -1, -2:
		return false, domain.ErrCacheMiss
	case -3:
		return false, domain.ErrCachePartial
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

func (c *articleCache) AddLikeRecord(ctx context.Context, likeRecord domain.UserLike, verified bool) (bool, error) {
	return c.runLikeScript(ctx, likeScript, likeRecord, 1, verified)
}

func (c *articleCache) RemoveLikeRecord(ctx context.Context, likeRecord domain.UserLike, verified bool) (bool, error) {
	return c.runLikeScript(ctx, unlikeScript, likeRecord, -1, verified)
}

func (c *articleCache) IsLikedBatch(ctx context.Context, uid string, aids []string) (map[string]bool, error) {
	if len(aids) == 0 {
		return map[string]bool{}, nil
	}
	// the partial marker is asked last
	args := make([]any, len(aids), len(aids)+1)
	for i, aid := range aids {
		args[i] = aid
	}
	args = append(args, likedSetPartial)

	result, err := isLikedBatchScript.Run(ctx, c.client, []string{fmt.Sprintf(KeyUserLikedArticles, uid)}, args...).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	resMap := make(map[string]bool, len(aids))
	partial := false
	for i, val := range result {
		n, _ := val.(int64)
		if i == len(aids) {
			partial = n == 1
			break
		}
		resMap[aids[i]] = n == 1
	}

	if partial {
		return resMap, domain.ErrCachePartial
	}
	return resMap, nil
}

func (c *articleCache) SetUserLikedArticles(ctx context.Context, uid string, aids []string, partial bool) error {
	members := make([]any, 0, len(aids)+2)
	members = append(members, likedSetPlaceholder)
	if partial {
		members = append(members, likedSetPartial)
	}
	for _, aid := range aids {
		members = append(members, aid)
	}
	key := fmt.Sprintf(KeyUserLikedArticles, uid)

	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, likedSetTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *articleCache) GetDailyRank(ctx context.Context, limit int64) ([]domain.Article, error) {
	if c.client.Exists(ctx, KeyHotDailyAggreGatedRank).Val() > 0 {
		return c.fetchRankFromKey(ctx, KeyHotDailyAggreGatedRank, limit)
	}

	keys := make([]string, 24)
	now := time.Now()
	for i := range 24 {
		keys[i] = fmt.Sprintf(KeyHotDailyRaw, now.Add(time.Duration(-i)*time.Hour).Format("2006010215"))
	}

	err := c.client.ZUnionStore(ctx, KeyHotDailyAggreGatedRank, &redis.ZStore{
		Keys:      keys,
		Aggregate: "SUM",
	}).Err()
	if err != nil {
		return nil, err
	}

	c.client.Expire(ctx, KeyHotDailyAggreGatedRank, 5*time.Minute)

	return c.fetchRankFromKey(ctx, KeyHotDailyAggreGatedRank, limit)
}

func (c *articleCache) fetchRankFromKey(ctx context.Context, key string, limit int64) ([]domain.Article, error) {
	zRes, err := c.client.ZRevRangeWithScores(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	res := make([]domain.Article, 0, len(zRes))
	for _, z := range zRes {
		aid, ok := z.Member.(string)
		if !ok {
			continue
		}
		res = append(res, domain.Article{
			ID:    aid,
			Likes: int64(z.Score),
		})
	}
	return res, nil
}

func (c *articleCache) GetHistoryRank(ctx context.Context, limit int64) ([]domain.Article, error) {
	if c.client.Exists(ctx, KeyHotHistoryRank).Val() > 0 {
		return c.fetchRankFromKey(ctx, KeyHotHistoryRank, limit)
	}
	return nil, domain.ErrCacheMiss
}

func (c *articleCache) SetHistoryRank(ctx context.Context, aids []string, scores []float64) error {
	if len(aids) != len(scores) || len(aids) == 0 {
		return domain.ErrBadParamInput
	}

	zMem := make([]redis.Z, len(aids))
	for i := range zMem {
		zMem[i] = redis.Z{
			Score:  scores[i],
			Member: aids[i],
		}
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, KeyHotHistoryRank)
	pipe.ZAdd(ctx, KeyHotHistoryRank, zMem...)
	pipe.Expire(ctx, KeyHotHistoryRank, time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *articleCache) GetLikeCount(ctx context.Context, aid string) (int64, error) {
	resStr, err := c.client.Get(ctx, fmt.Sprintf(KeyLikesBuffer, aid)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrCacheMiss
	}
	if err != nil {
		return 0, err
	}
	likes, err := strconv.ParseInt(resStr, 10, 64)
	if err != nil {
		logrus.Errorf("strconv.ParseInt failed for like count of %s: %v", aid, err)
		return 0, domain.ErrCacheMiss
	}
	return max(0, likes), nil
}

func (c *articleCache) MGetLikeCounts(ctx context.Context, aids []string) (map[string]int64, error) {
	if len(aids) == 0 {
		return map[string]int64{}, nil
	}
	keys := make([]string, len(aids))
	for i, aid := range aids {
		keys[i] = fmt.Sprintf(KeyLikesBuffer, aid)
	}

	result, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	// only cached counters are returned, callers keep their own value for the rest
	res := make(map[string]int64, len(aids))
	for i, val := range result {
		if val == nil {
			continue
		}

		valStr, ok := val.(string)
		if !ok {
			logrus.Errorf("invalid type in redis for like count, id: %s, val: %v", aids[i], val)
			continue
		}

		likes, err := strconv.ParseInt(valStr, 10, 64)
		if err != nil {
			logrus.Errorf("failed to strconv.ParseInt in redis, id: %s, err: %v", aids[i], err)
			continue
		}
		res[aids[i]] = max(0, likes)
	}
	return res, nil
}

func (c *articleCache) InitLikeCount(ctx context.Context, aid string, likes int64) error {
	return c.client.SetNX(ctx, fmt.Sprintf(KeyLikesBuffer, aid), likes, likeCountTTL).Err()
}
