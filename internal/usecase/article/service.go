package article

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/repository"
)

const (
	// historyRankSize 历史热榜缓存的最大文章数
	historyRankSize = 100
	bloomBatchSize  = 1000
)

type Service struct {
	articleRepo     domain.ArticleRepository
	articleCache    domain.ArticleCache
	syncLikesWorker domain.SyncLikesWorker
	bloomRepo       domain.BloomRepository
	validate        *validator.Validate
	contentPolicy   *bluemonday.Policy
}

var _ domain.ArticleUsecase = (*Service)(nil)

// NewService will create a new article service object
func NewService(a domain.ArticleRepository, ac domain.ArticleCache, s domain.SyncLikesWorker, b domain.BloomRepository) *Service {
	return &Service{
		articleRepo:     a,
		articleCache:    ac,
		syncLikesWorker: s,
		bloomRepo:       b,
		validate:        validator.New(),
		contentPolicy:   bluemonday.UGCPolicy(),
	}
}

func (a *Service) mustExist(ctx context.Context, id string) error {
	exists, err := a.bloomRepo.Exists(ctx, id)
	if err != nil {
		logrus.Warnf("bloom filter check failed for article %s: %v", id, err)
		return nil
	}
	if !exists {
		logrus.Warnf("bloom filter says article %s does not exist", id)
		return domain.ErrNotFound
	}
	return nil
}

func (a *Service) Fetch(ctx context.Context, filter domain.ArticleFilter, viewerID string) ([]domain.Article, string, error) {
	res, err := a.articleRepo.Fetch(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	if len(res) == 0 {
		return res, "", nil
	}

	a.overlayLikes(ctx, res, viewerID)
	return res, repository.EncodeCursor(res[len(res)-1].PublishedAt), nil
}

// overlayLikes replaces the persisted like counters with the live ones and
// fills the viewer's liked flag. Failures only degrade freshness.
func (a *Service) overlayLikes(ctx context.Context, res []domain.Article, viewerID string) {
	ids := make([]string, len(res))
	for i := range res {
		ids[i] = res[i].ID
	}

	var (
		counts map[string]int64
		flags  map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = a.articleCache.MGetLikeCounts(gctx, ids)
		return err
	})
	if viewerID != "" {
		g.Go(func() error {
			var err error
			flags, err = a.likedFlags(gctx, viewerID, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logrus.Warnf("failed to overlay like state: %v", err)
	}

	for i := range res {
		if likes, ok := counts[res[i].ID]; ok {
			res[i].Likes = likes
		}
		res[i].Liked = flags[res[i].ID]
	}
}

func (a *Service) likedFlags(ctx context.Context, uid string, ids []string) (map[string]bool, error) {
	flags, err := a.articleCache.IsLikedBatch(ctx, uid, ids)
	switch {
	case err == nil:
		return flags, nil
	case errors.Is(err, domain.ErrCachePartial):
		return a.verifyLiked(ctx, uid, flags)
	case !errors.Is(err, domain.ErrCacheMiss):
		return nil, err
	}

	liked, partial, err := a.loadUserLikes(ctx, uid)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(liked))
	for _, id := range liked {
		set[id] = true
	}
	flags = make(map[string]bool, len(ids))
	for _, id := range ids {
		flags[id] = set[id]
	}
	if partial {
		return a.verifyLiked(ctx, uid, flags)
	}
	return flags, nil
}

// verifyLiked asks the database about the ids a partial liked set has no answer for
func (a *Service) verifyLiked(ctx context.Context, uid string, flags map[string]bool) (map[string]bool, error) {
	unknown := make([]string, 0, len(flags))
	for id, liked := range flags {
		if !liked {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) == 0 {
		return flags, nil
	}
	slices.Sort(unknown)

	liked, err := a.articleRepo.FetchUserLikedAmong(ctx, uid, unknown)
	if err != nil {
		logrus.Errorf("failed to FetchUserLikedAmong from repo: %v", err)
		return nil, err
	}
	for _, id := range liked {
		flags[id] = true
	}
	return flags, nil
}

// loadUserLikes 去数据库加载这个用户喜欢哪些文章, 并存入缓存.
// partial is true when the list hit domain.LikeRecordLimit.
func (a *Service) loadUserLikes(ctx context.Context, uid string) ([]string, bool, error) {
	liked, err := a.articleRepo.FetchUserLikedArticles(ctx, uid, domain.LikeRecordLimit)
	if err != nil {
		logrus.Errorf("failed to FetchUserLikedArticles from repo: %v", err)
		return nil, false, err
	}
	partial := int64(len(liked)) >= domain.LikeRecordLimit
	if err := a.articleCache.SetUserLikedArticles(ctx, uid, liked, partial); err != nil {
		logrus.Errorf("failed to SetUserLikedArticles to redis: %v", err)
		return nil, false, err
	}
	return liked, partial, nil
}

func (a *Service) GetByID(ctx context.Context, id string, viewerID string) (domain.Article, error) {
	if err := a.mustExist(ctx, id); err != nil {
		return domain.Article{}, err
	}

	res, err := a.articleRepo.GetByID(ctx, id)
	if err != nil {
		return domain.Article{}, err
	}

	likes, err := a.articleCache.GetLikeCount(ctx, id)
	switch {
	case errors.Is(err, domain.ErrCacheMiss):
		if err := a.articleCache.InitLikeCount(ctx, id, res.Likes); err != nil {
			logrus.Warnf("failed to InitLikeCount: %v", err)
		}
	case err != nil:
		logrus.Errorf("failed to GetLikeCount from redis: %v", err)
	default:
		res.Likes = likes
	}

	if viewerID != "" {
		flags, err := a.likedFlags(ctx, viewerID, []string{id})
		if err != nil {
			logrus.Warnf("failed to load liked flag: %v", err)
		}
		res.Liked = flags[id]
	}
	return res, nil
}

func (a *Service) normalize(ar *domain.Article) error {
	ar.Title = strings.TrimSpace(ar.Title)
	ar.Category = strings.TrimSpace(ar.Category)
	ar.Content = a.contentPolicy.Sanitize(ar.Content)
	if err := a.validate.Struct(ar); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}
	return nil
}

// Store creates an article. Counters always start at zero.
func (a *Service) Store(ctx context.Context, ar *domain.Article) error {
	if err := a.normalize(ar); err != nil {
		return err
	}

	_, err := a.articleRepo.GetByTitle(ctx, ar.Title)
	if err == nil {
		return domain.ErrConflict
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	ar.Likes = 0
	ar.CommentCount = 0
	if err := a.articleRepo.Store(ctx, ar); err != nil {
		return err
	}

	if err := a.bloomRepo.Add(ctx, ar.ID); err != nil {
		logrus.Errorf("failed to add article %s to bloom filter: %v", ar.ID, err)
	}
	return nil
}

// Update rewrites the editable fields of an existing article
func (a *Service) Update(ctx context.Context, ar *domain.Article) error {
	existing, err := a.articleRepo.GetByID(ctx, ar.ID)
	if err != nil {
		return err
	}

	ar.Author = existing.Author
	ar.PublishedAt = existing.PublishedAt
	ar.Likes = existing.Likes
	ar.CommentCount = existing.CommentCount
	if err := a.normalize(ar); err != nil {
		return err
	}
	ar.UpdatedAt = time.Now()
	return a.articleRepo.Update(ctx, ar)
}

func (a *Service) Delete(ctx context.Context, id string) error {
	return a.articleRepo.Delete(ctx, id)
}

func (a *Service) Like(ctx context.Context, likeRecord domain.UserLike) (domain.MembershipResult, error) {
	return a.setLike(ctx, likeRecord, domain.Like)
}

func (a *Service) Unlike(ctx context.Context, likeRecord domain.UserLike) (domain.MembershipResult, error) {
	return a.setLike(ctx, likeRecord, domain.Unlike)
}

// setLike adds or removes the actor from the liker set. Both directions are
// idempotent: a repeated like or unlike reports Changed=false and leaves the
// counter alone.
func (a *Service) setLike(ctx context.Context, likeRecord domain.UserLike, action domain.LikeAction) (domain.MembershipResult, error) {
	if likeRecord.UserID == "" {
		return domain.MembershipResult{}, domain.ErrUnauthenticated
	}
	if err := a.mustExist(ctx, likeRecord.ArticleID); err != nil {
		return domain.MembershipResult{}, err
	}

	run := func(verified bool) (bool, error) {
		if action == domain.Unlike {
			return a.articleCache.RemoveLikeRecord(ctx, likeRecord, verified)
		}
		return a.articleCache.AddLikeRecord(ctx, likeRecord, verified)
	}

	changed, err := run(false)
	if errors.Is(err, domain.ErrCacheMiss) {
		if err := a.warmLikeState(ctx, likeRecord); err != nil {
			return domain.MembershipResult{}, err
		}
		changed, err = run(false)
	}
	if errors.Is(err, domain.ErrCachePartial) {
		changed, err = a.runVerified(ctx, likeRecord, run)
	}
	if err != nil {
		logrus.Errorf("failed to %s like record in redis: %v", action, err)
		return domain.MembershipResult{}, err
	}

	if changed {
		likeRecord.CreatedAt = time.Now()
		if !a.syncLikesWorker.Send(likeRecord, action) {
			a.revertLike(ctx, likeRecord, action)
			return domain.MembershipResult{}, domain.ErrBusy
		}
	}

	likes, err := a.articleCache.GetLikeCount(ctx, likeRecord.ArticleID)
	if err != nil {
		logrus.Warnf("failed to read like count of %s after %s: %v", likeRecord.ArticleID, action, err)
	}

	return domain.MembershipResult{
		Changed: changed,
		Member:  action == domain.Like,
		Count:   likes,
	}, nil
}

// runVerified settles a membership the partial liked set cannot answer for:
// a persisted like is loaded into the set first, then the set is trusted.
func (a *Service) runVerified(ctx context.Context, likeRecord domain.UserLike, run func(verified bool) (bool, error)) (bool, error) {
	liked, err := a.articleRepo.FetchUserLikedAmong(ctx, likeRecord.UserID, []string{likeRecord.ArticleID})
	if err != nil {
		return false, err
	}
	if len(liked) > 0 {
		if err := a.articleCache.SetUserLikedArticles(ctx, likeRecord.UserID, liked, true); err != nil {
			return false, err
		}
	}
	return run(true)
}

// revertLike undoes a cache change whose persistence could not be queued
func (a *Service) revertLike(ctx context.Context, likeRecord domain.UserLike, action domain.LikeAction) {
	var err error
	if action == domain.Like {
		_, err = a.articleCache.RemoveLikeRecord(ctx, likeRecord, true)
	} else {
		_, err = a.articleCache.AddLikeRecord(ctx, likeRecord, true)
	}
	if err != nil {
		logrus.Errorf("failed to revert %s of article %s: %v", action, likeRecord.ArticleID, err)
	}
}

// warmLikeState loads the actor's liked set and the article counter into the cache
func (a *Service) warmLikeState(ctx context.Context, likeRecord domain.UserLike) error {
	ar, err := a.articleRepo.GetByID(ctx, likeRecord.ArticleID)
	if err != nil {
		return err
	}
	if err := a.articleCache.InitLikeCount(ctx, ar.ID, ar.Likes); err != nil {
		logrus.Errorf("failed to InitLikeCount: %v", err)
		return err
	}
	_, _, err = a.loadUserLikes(ctx, likeRecord.UserID)
	return err
}

func (a *Service) FetchDailyRank(ctx context.Context, limit int64) ([]domain.Article, error) {
	rank, err := a.articleCache.GetDailyRank(ctx, limit)
	if err != nil {
		logrus.Errorf("failed to GetDailyRank from redis: %v", err)
		return nil, err
	}
	return a.fillRank(ctx, rank)
}

func (a *Service) FetchHistoryRank(ctx context.Context, limit int64) ([]domain.Article, error) {
	rank, err := a.articleCache.GetHistoryRank(ctx, limit)
	if errors.Is(err, domain.ErrCacheMiss) {
		res, err := a.articleRepo.FetchArticlesByLikes(ctx, historyRankSize)
		if err != nil {
			logrus.Errorf("failed to FetchArticlesByLikes from repo: %v", err)
			return nil, err
		}
		if len(res) == 0 {
			return res, nil
		}

		ids := make([]string, len(res))
		scores := make([]float64, len(res))
		for i := range res {
			ids[i] = res[i].ID
			scores[i] = float64(res[i].Likes)
		}
		if err := a.articleCache.SetHistoryRank(ctx, ids, scores); err != nil {
			logrus.Warnf("fail to SetHistoryRank to redis: %v", err)
		}

		return res[:min(int64(len(res)), limit)], nil
	} else if err != nil {
		logrus.Errorf("failed to GetHistoryRank from redis: %v", err)
		return nil, err
	}

	return a.fillRank(ctx, rank)
}

// fillRank 填充热榜文章的完整信息, 保持排名顺序, 使用热榜中的分数
func (a *Service) fillRank(ctx context.Context, rank []domain.Article) ([]domain.Article, error) {
	if len(rank) == 0 {
		return rank, nil
	}

	ids := make([]string, len(rank))
	for i := range rank {
		ids[i] = rank[i].ID
	}
	full, err := a.articleRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	mp := make(map[string]domain.Article, len(full))
	for i := range full {
		mp[full[i].ID] = full[i]
	}

	res := make([]domain.Article, 0, len(rank))
	for _, r := range rank {
		ar, ok := mp[r.ID]
		if !ok {
			// deleted since it was ranked
			continue
		}
		ar.Likes = r.Likes
		res = append(res, ar)
	}
	return res, nil
}

// InitBloomFilter loads every article id into the bloom filter
func (a *Service) InitBloomFilter(ctx context.Context) error {
	cursor := ""
	for {
		ids, err := a.articleRepo.FetchIDs(ctx, cursor, bloomBatchSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := a.bloomRepo.BulkAdd(ctx, ids); err != nil {
			return err
		}
		cursor = ids[len(ids)-1]
	}
}
