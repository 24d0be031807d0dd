package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Guyuepp/newsfeed/domain"
)

const (
	homeCacheTTL    = 30 * time.Second
	articleCacheTTL = 10 * time.Minute
)

// articleRepository 协调层，协调缓存和数据库
type articleRepository struct {
	db            domain.ArticleDBRepository
	cache         domain.ArticleCache
	userRepo      domain.UserRepository
	rebuildGroup  singleflight.Group
	mu            sync.Mutex
	rebuildingMap map[string]bool // 正在重建的文章ID
}

var _ domain.ArticleRepository = (*articleRepository)(nil)

// NewArticleRepository 创建协调层repository
func NewArticleRepository(db domain.ArticleDBRepository, cache domain.ArticleCache, userRepo domain.UserRepository) *articleRepository {
	return &articleRepository{
		db:            db,
		cache:         cache,
		userRepo:      userRepo,
		rebuildingMap: make(map[string]bool),
	}
}

// Fetch 获取文章列表
func (r *articleRepository) Fetch(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error) {
	PageVerify(&filter.Num)
	if filter.IsHome() {
		articles, expired, err := r.cache.GetHomeWithLogicalExpire(ctx)
		if err == nil && int64(len(articles)) >= filter.Num {
			if expired {
				go r.rebuildHomeCache(context.Background(), filter)
			}
			return articles[:filter.Num], nil
		}
	}

	articles, err := r.db.Fetch(ctx, filter)
	if err != nil {
		return nil, err
	}

	articles, err = r.fillUserDetails(ctx, articles)
	if err != nil {
		return nil, err
	}

	if filter.IsHome() {
		go func(data []domain.Article) {
			if err := r.cache.SetHomeWithLogicalExpire(context.Background(), data, homeCacheTTL); err != nil {
				logrus.Warnf("failed to set home cache: %v", err)
			}
		}(articles)
	}

	return articles, nil
}

// GetByID 根据ID获取文章，使用逻辑过期策略避免缓存击穿
func (r *articleRepository) GetByID(ctx context.Context, id string) (domain.Article, error) {
	article, expired, err := r.cache.GetArticleWithLogicalExpire(ctx, id)
	if err == nil {
		if expired {
			go r.rebuildArticleCache(context.Background(), id)
		}
		return article, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		logrus.Warnf("cache get error for article %s: %v", id, err)
	}

	// 缓存未命中，使用singleflight避免缓存击穿
	result, err, _ := r.rebuildGroup.Do("article:"+id, func() (any, error) {
		art, err := r.loadArticle(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := r.cache.SetArticleWithLogicalExpire(ctx, &art, articleCacheTTL); err != nil {
			logrus.Warnf("failed to set article cache: %v", err)
		}
		return art, nil
	})
	if err != nil {
		return domain.Article{}, err
	}

	return result.(domain.Article), nil
}

// GetByIDs 批量获取文章, 先查缓存, 未命中的部分查数据库
func (r *articleRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found := make(map[string]domain.Article, len(ids))
	cached, err := r.cache.GetArticleByIDs(ctx, ids)
	if err != nil {
		logrus.Warnf("failed to GetArticleByIDs from cache: %v", err)
	}
	for _, ar := range cached {
		found[ar.ID] = ar
	}

	missed := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missed = append(missed, id)
		}
	}

	if len(missed) > 0 {
		articles, err := r.db.GetByIDs(ctx, missed)
		if err != nil {
			return nil, err
		}
		articles, err = r.fillUserDetails(ctx, articles)
		if err != nil {
			return nil, err
		}
		for _, ar := range articles {
			found[ar.ID] = ar
		}

		go func(arts []domain.Article) {
			if err := r.cache.BatchSetArticle(context.Background(), arts); err != nil {
				logrus.Warnf("failed to BatchSetArticle: %v", err)
			}
		}(articles)
	}

	res := make([]domain.Article, 0, len(ids))
	for _, id := range ids {
		if ar, ok := found[id]; ok {
			res = append(res, ar)
		}
	}
	return res, nil
}

// GetByTitle 根据标题获取文章, 标题查询不常用，不走缓存
func (r *articleRepository) GetByTitle(ctx context.Context, title string) (domain.Article, error) {
	return r.db.GetByTitle(ctx, title)
}

func (r *articleRepository) Store(ctx context.Context, a *domain.Article) error {
	if err := r.db.Store(ctx, a); err != nil {
		return err
	}
	r.invalidate(a.ID)
	return nil
}

func (r *articleRepository) Update(ctx context.Context, ar *domain.Article) error {
	if err := r.db.Update(ctx, ar); err != nil {
		return err
	}
	r.invalidate(ar.ID)
	return nil
}

func (r *articleRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(id)
	return nil
}

func (r *articleRepository) AddCommentCount(ctx context.Context, id string, delta int64) error {
	if err := r.db.AddCommentCount(ctx, id, delta); err != nil {
		return err
	}
	r.invalidate(id)
	return nil
}

func (r *articleRepository) FetchUserLikedArticles(ctx context.Context, uid string, limit int64) ([]string, error) {
	return r.db.FetchUserLikedArticles(ctx, uid, limit)
}

func (r *articleRepository) FetchUserLikedAmong(ctx context.Context, uid string, aids []string) ([]string, error) {
	return r.db.FetchUserLikedAmong(ctx, uid, aids)
}

func (r *articleRepository) ApplyLikeChanges(ctx context.Context, changes domain.LikeStateChanges) error {
	return r.db.ApplyLikeChanges(ctx, changes)
}

func (r *articleRepository) FetchArticlesByLikes(ctx context.Context, limit int64) ([]domain.Article, error) {
	articles, err := r.db.FetchArticlesByLikes(ctx, limit)
	if err != nil {
		return nil, err
	}
	return r.fillUserDetails(ctx, articles)
}

func (r *articleRepository) FetchIDs(ctx context.Context, cursor string, limit int64) ([]string, error) {
	return r.db.FetchIDs(ctx, cursor, limit)
}

// invalidate 异步删除缓存
func (r *articleRepository) invalidate(id string) {
	go func(id string) {
		if err := r.cache.DeleteArticle(context.Background(), id); err != nil {
			logrus.Warnf("failed to delete article cache %s: %v", id, err)
		}
	}(id)
}

func (r *articleRepository) loadArticle(ctx context.Context, id string) (domain.Article, error) {
	art, err := r.db.GetByID(ctx, id)
	if err != nil {
		return domain.Article{}, err
	}

	user, err := r.userRepo.GetByID(ctx, art.Author.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Article{}, err
	}
	if err == nil {
		art.Author = publicUser(user)
	}
	return art, nil
}

// fillUserDetails 批量填充用户详细信息
func (r *articleRepository) fillUserDetails(ctx context.Context, articles []domain.Article) ([]domain.Article, error) {
	if len(articles) == 0 {
		return articles, nil
	}

	userIDs := make([]string, 0, len(articles))
	existMap := make(map[string]bool)
	for _, item := range articles {
		if !existMap[item.Author.ID] {
			userIDs = append(userIDs, item.Author.ID)
			existMap[item.Author.ID] = true
		}
	}

	users, err := r.userRepo.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	userMap := make(map[string]domain.User, len(users))
	for _, u := range users {
		userMap[u.ID] = publicUser(u)
	}

	for i := range articles {
		if u, ok := userMap[articles[i].Author.ID]; ok {
			articles[i].Author = u
		}
	}

	return articles, nil
}

// publicUser strips everything that must not end up in a cache
func publicUser(u domain.User) domain.User {
	return domain.User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		Role:        u.Role,
	}
}

// rebuildHomeCache 异步重建首页缓存
func (r *articleRepository) rebuildHomeCache(ctx context.Context, filter domain.ArticleFilter) {
	_, err, _ := r.rebuildGroup.Do("home", func() (any, error) {
		articles, err := r.db.Fetch(ctx, filter)
		if err != nil {
			return nil, err
		}

		articles, err = r.fillUserDetails(ctx, articles)
		if err != nil {
			return nil, err
		}

		return nil, r.cache.SetHomeWithLogicalExpire(ctx, articles, homeCacheTTL)
	})

	if err != nil {
		logrus.Errorf("rebuildHomeCache failed: %v", err)
	}
}

// rebuildArticleCache 异步重建文章缓存
func (r *articleRepository) rebuildArticleCache(ctx context.Context, id string) {
	r.mu.Lock()
	if r.rebuildingMap[id] {
		r.mu.Unlock()
		return
	}
	r.rebuildingMap[id] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.rebuildingMap, id)
		r.mu.Unlock()
	}()

	_, err, _ := r.rebuildGroup.Do("rebuild:"+id, func() (any, error) {
		article, err := r.loadArticle(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// 文章不存在，删除缓存
				_ = r.cache.DeleteArticle(ctx, id)
			}
			return nil, err
		}

		return nil, r.cache.SetArticleWithLogicalExpire(ctx, &article, articleCacheTTL)
	})

	if err != nil {
		logrus.Errorf("rebuildArticleCache failed for id %s: %v", id, err)
	}
}
