package workers

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/newsfeed/domain"
)

const (
	batchSize     = 100
	flushInterval = time.Second
	queueSize     = 1024
	flushTimeout  = 5 * time.Second
)

var (
	likeTasksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsfeed_like_tasks_dropped_total",
		Help: "Like membership changes dropped because the sync queue was full.",
	})
	likeFlushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsfeed_like_flush_failures_total",
		Help: "Batches of like membership changes that failed to persist.",
	})
)

type LikeTask struct {
	ArticleID string
	UserID    string
	CreatedAt time.Time
	Action    domain.LikeAction
}

type syncLikesWorker struct {
	ArticleRepo domain.ArticleDBRepository
	ch          chan LikeTask
	interval    time.Duration
}

var _ domain.SyncLikesWorker = (*syncLikesWorker)(nil)

func NewSyncLikesWorker(ar domain.ArticleDBRepository) *syncLikesWorker {
	return &syncLikesWorker{
		ArticleRepo: ar,
		ch:          make(chan LikeTask, queueSize),
		interval:    flushInterval,
	}
}

// Send adds a like record if action == Like, and removes a like record if action == Unlike.
// It returns false when the queue is full.
func (s *syncLikesWorker) Send(likeRecord domain.UserLike, action domain.LikeAction) bool {
	task := LikeTask{
		ArticleID: likeRecord.ArticleID,
		UserID:    likeRecord.UserID,
		CreatedAt: likeRecord.CreatedAt,
		Action:    action,
	}
	select {
	case s.ch <- task:
		return true
	default:
		likeTasksDropped.Inc()
		logrus.Warnf("SyncLikesWorker's channel is full, task for article %s dropped", likeRecord.ArticleID)
		return false
	}
}

// Start blocks until ctx is done, then flushes what is still queued and returns
func (s *syncLikesWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	batch := make([]LikeTask, 0, batchSize)
	for {
		select {
		case task := <-s.ch:
			batch = append(batch, task)
			if len(batch) == batchSize {
				s.flush(ctx, batch)
				batch = make([]LikeTask, 0, batchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(ctx, batch)
				batch = make([]LikeTask, 0, batchSize)
			}
		case <-ctx.Done():
			logrus.Info("shutting down SyncLikesWorker, flushing remain tasks...")
			s.drain(batch)
			return
		}
	}
}

func (s *syncLikesWorker) drain(batch []LikeTask) {
	for {
		select {
		case task := <-s.ch:
			batch = append(batch, task)
		default:
			ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			defer cancel()
			s.flush(ctx, batch)
			return
		}
	}
}

type taskKey struct {
	aid, uid string
}

// flush keeps only the last action per (article, user) pair
func (s *syncLikesWorker) flush(ctx context.Context, batch []LikeTask) {
	if len(batch) == 0 {
		return
	}

	tasks := make(map[taskKey]LikeTask)
	for i := range batch {
		key := taskKey{
			aid: batch[i].ArticleID,
			uid: batch[i].UserID,
		}
		tasks[key] = batch[i]
	}

	var changes domain.LikeStateChanges
	for key, task := range tasks {
		rec := domain.UserLike{
			ArticleID: key.aid,
			UserID:    key.uid,
			CreatedAt: task.CreatedAt,
		}
		switch task.Action {
		case domain.Like:
			changes.ToAdd = append(changes.ToAdd, rec)
		case domain.Unlike:
			changes.ToRemove = append(changes.ToRemove, rec)
		default:
			logrus.Errorf("Unsuported action: %v", task.Action)
		}
	}

	if err := s.ArticleRepo.ApplyLikeChanges(ctx, changes); err != nil {
		likeFlushFailures.Inc()
		logrus.WithFields(logrus.Fields{
			"add":    len(changes.ToAdd),
			"remove": len(changes.ToRemove),
		}).Errorf("failed to ApplyLikeChanges: %v", err)
	}
}
