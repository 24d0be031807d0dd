package client

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/optimistic"
	"github.com/Guyuepp/newsfeed/internal/session"
)

const (
	kindLike     = "like"
	kindBookmark = "bookmark"
	kindComment  = "comment"

	pendingPrefix = "pending-"

	resyncParallelism = 4
)

// API is the part of Client the Feed needs
type API interface {
	GetArticlesPage(ctx context.Context, limit int, category, cursor string) ([]Article, string, error)
	GetArticle(ctx context.Context, id string) (Article, error)
	GetComments(ctx context.Context, articleID string, limit int) ([]Comment, error)
	AddComment(ctx context.Context, articleID, text string, anonymous bool) (Comment, error)
	DeleteComment(ctx context.Context, id string) error
	LikeSetter() optimistic.MembershipSetter
	BookmarkSetter() optimistic.MembershipSetter
}

var _ API = (*Client)(nil)

// card holds the liked flag of actor. A stale card keeps the count but its
// flag has not been fetched for actor yet.
type card struct {
	article *optimistic.Value[Article]
	like    *optimistic.Value[optimistic.ToggleState]
	actor   string
	stale   bool
}

func newCard(a Article, actor string) *card {
	return &card{
		article: optimistic.NewValue(a),
		like:    optimistic.NewValue(optimistic.ToggleState{On: a.Liked, Count: a.Likes}),
		actor:   actor,
	}
}

func (c *card) close() {
	c.article.Close()
	c.like.Close()
}

func (c *card) fresh(actor string) bool {
	return !c.stale && c.actor == actor
}

// reset hands the card to actor with the flag cleared. Mutations still in
// flight land on the closed cell.
func (c *card) reset(actor string) {
	count := c.like.Load().Count
	c.like.Close()
	c.like = optimistic.NewValue(optimistic.ToggleState{Count: count})
	c.actor = actor
	c.stale = actor != ""
}

func (c *card) view() Article {
	a := c.article.Load()
	l := c.like.Load()
	a.Liked, a.Likes = l.On, l.Count
	return a
}

// Feed is the local state of the reader: article cards, the bookmark set of
// the signed in actor and the comments of opened articles. Every change goes
// through the optimistic controller.
type Feed struct {
	api  API
	sess *session.Session
	ctrl *optimistic.Controller
	log  *logrus.Entry

	mu        sync.RWMutex
	order     []string
	cards     map[string]*card
	threads   map[string]*optimistic.Value[[]Comment]
	bookmarks *optimistic.Value[[]string]
	actor     string
	category  string
	cursor    string

	cancel context.CancelFunc
	stop   func()
	done   chan struct{}
}

// NewFeed follows sess until Close. The current session state is applied
// before NewFeed returns.
func NewFeed(api API, sess *session.Session) *Feed {
	f := &Feed{
		api:       api,
		sess:      sess,
		ctrl:      optimistic.NewController(),
		log:       logrus.WithField("component", "feed"),
		cards:     make(map[string]*card),
		threads:   make(map[string]*optimistic.Value[[]Comment]),
		bookmarks: optimistic.NewValue([]string{}),
		done:      make(chan struct{}),
	}

	ch, stop := sess.Subscribe()
	f.stop = stop
	if c, ok := <-ch; ok {
		f.apply(c)
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go f.watch(ctx, ch)
	return f
}

func (f *Feed) watch(ctx context.Context, ch <-chan session.Change) {
	defer close(f.done)
	for c := range ch {
		if f.apply(c) {
			f.resync(ctx)
		}
	}
}

// apply re-seeds the bookmark set from the profile. When the actor changes
// the liked flags belong to someone else, so the cards are handed to the new
// actor with the flag cleared. It reports whether cards wait for a resync.
func (f *Feed) apply(c session.Change) bool {
	actor := ""
	bookmarks := []string{}
	if c.LoggedIn {
		actor = c.Identity.ActorID
		bookmarks = append(bookmarks, c.Identity.Bookmarks...)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.bookmarks.Close()
	f.bookmarks = optimistic.NewValue(bookmarks)

	stale := false
	if actor != f.actor {
		for _, cd := range f.cards {
			if cd.actor != actor {
				cd.reset(actor)
			}
			stale = stale || cd.stale
		}
		f.log.WithField("actor", actor).Debug("actor changed, liked flags reset")
	}
	f.actor = actor
	return stale
}

// resync fetches the liked flags of the current actor for every stale card.
// Cards it cannot fetch stay stale and are fetched again on their next toggle.
func (f *Feed) resync(ctx context.Context) {
	creds, ok := f.sess.Credentials()
	actor := creds.Identity.ActorID
	if !ok || actor == "" {
		return
	}

	f.mu.RLock()
	var ids []string
	if actor == f.actor {
		for _, id := range f.order {
			if cd := f.cards[id]; cd.stale && cd.actor == actor {
				ids = append(ids, id)
			}
		}
	}
	f.mu.RUnlock()

	ctx = WithToken(ctx, creds.Token)
	var g errgroup.Group
	g.SetLimit(resyncParallelism)
	for _, id := range ids {
		g.Go(func() error {
			a, err := f.api.GetArticle(ctx, id)
			if err != nil {
				return err
			}
			f.install(a, actor)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		f.log.WithField("actor", actor).Warnf("failed to resync liked flags: %v", err)
	}
}

// install hands the flag of a, fetched for actor, to its stale card. A card
// that is fresh already keeps its state so a toggle that ran meanwhile is not
// overwritten. It reports whether the card is fresh for actor afterwards.
func (f *Feed) install(a Article, actor string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[a.ID]
	if !ok || f.actor != actor {
		return false
	}
	if c.fresh(actor) {
		return true
	}
	c.like.Close()
	c.like = optimistic.NewValue(optimistic.ToggleState{On: a.Liked, Count: a.Likes})
	c.actor, c.stale = actor, false
	return true
}

// Load replaces the cards with the first page of category, empty for all
func (f *Feed) Load(ctx context.Context, limit int, category string) ([]Article, error) {
	ctx, actor := f.pin(ctx)
	list, next, err := f.api.GetArticlesPage(ctx, limit, category, "")
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	for _, c := range f.cards {
		c.close()
	}
	f.cards = make(map[string]*card, len(list))
	f.order = f.order[:0]
	f.category, f.cursor = category, next
	stale := f.add(list, actor)
	f.mu.Unlock()

	if stale {
		f.resync(ctx)
	}
	return f.Cards(), nil
}

// More appends the next page. It returns false once the feed is exhausted.
func (f *Feed) More(ctx context.Context, limit int) (bool, error) {
	f.mu.RLock()
	category, cursor := f.category, f.cursor
	f.mu.RUnlock()
	if cursor == "" {
		return false, nil
	}

	ctx, actor := f.pin(ctx)
	list, next, err := f.api.GetArticlesPage(ctx, limit, category, cursor)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	f.cursor = next
	stale := f.add(list, actor)
	f.mu.Unlock()

	if stale {
		f.resync(ctx)
	}
	return next != "", nil
}

// pin attaches the current token to ctx and returns the actor it belongs to
func (f *Feed) pin(ctx context.Context) (context.Context, string) {
	creds, ok := f.sess.Credentials()
	if !ok {
		return ctx, ""
	}
	return WithToken(ctx, creds.Token), creds.Identity.ActorID
}

// add must be called with f.mu held. Articles fetched for another actor than
// the current one lose their flag; add reports whether any card is stale.
func (f *Feed) add(list []Article, fetchedFor string) bool {
	stale := false
	for _, a := range list {
		if old, ok := f.cards[a.ID]; ok {
			old.close()
		} else {
			f.order = append(f.order, a.ID)
		}
		c := newCard(a, fetchedFor)
		if fetchedFor != f.actor {
			c.reset(f.actor)
		}
		f.cards[a.ID] = c
		stale = stale || c.stale
	}
	return stale
}

// Refresh reloads one article from the service and keeps it as a card
func (f *Feed) Refresh(ctx context.Context, id string) (Article, error) {
	ctx, actor := f.pin(ctx)
	a, err := f.api.GetArticle(ctx, id)
	if err != nil {
		return Article{}, err
	}
	f.mu.Lock()
	stale := f.add([]Article{a}, actor)
	f.mu.Unlock()

	if stale {
		f.resync(ctx)
	}
	if v, ok := f.Card(id); ok {
		a = v
	}
	return a, nil
}

func (f *Feed) Cards() []Article {
	f.mu.RLock()
	defer f.mu.RUnlock()
	res := make([]Article, 0, len(f.order))
	for _, id := range f.order {
		res = append(res, f.cards[id].view())
	}
	return res
}

func (f *Feed) Card(id string) (Article, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.cards[id]
	if !ok {
		return Article{}, false
	}
	return c.view(), true
}

// ToggleLike flips the like of the signed in actor on a loaded article.
// The returned state is what the card shows afterwards. A card whose flag
// was not fetched for the actor yet is fetched first.
func (f *Feed) ToggleLike(ctx context.Context, articleID string) (optimistic.ToggleState, error) {
	ctx, actor := f.pin(ctx)
	if actor == "" {
		return optimistic.ToggleState{}, domain.ErrUnauthenticated
	}

	cell, err := f.likeCell(ctx, articleID, actor)
	if err != nil {
		return optimistic.ToggleState{}, err
	}

	return f.ctrl.Toggle(ctx, cell, optimistic.Target{
		Kind:     kindLike,
		EntityID: articleID,
		ActorID:  actor,
	}, f.api.LikeSetter())
}

func (f *Feed) likeCell(ctx context.Context, articleID, actor string) (*optimistic.Value[optimistic.ToggleState], error) {
	f.mu.RLock()
	c, ok := f.cards[articleID]
	fresh := ok && f.actor == actor && c.fresh(actor)
	var cell *optimistic.Value[optimistic.ToggleState]
	if fresh {
		cell = c.like
	}
	f.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	if fresh {
		return cell, nil
	}

	a, err := f.api.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if !f.install(a, actor) {
		return nil, ErrStale
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok = f.cards[articleID]
	if !ok || !c.fresh(actor) {
		return nil, ErrStale
	}
	return c.like, nil
}

// bookmarkCell projects the shared bookmark set onto one article so a
// rollback only ever touches that article's membership. Load remembers where
// the id sat so restoring it keeps the set's order.
type bookmarkCell struct {
	set *optimistic.Value[[]string]
	id  string
	pos int
}

func (b *bookmarkCell) Load() optimistic.ToggleState {
	s := b.set.Load()
	b.pos = slices.Index(s, b.id)
	return optimistic.ToggleState{On: b.pos >= 0, Count: int64(len(s))}
}

func (b *bookmarkCell) Store(st optimistic.ToggleState) {
	b.set.Update(func(s []string) []string {
		has := slices.Contains(s, b.id)
		switch {
		case st.On && !has:
			if b.pos >= 0 && b.pos <= len(s) {
				return slices.Insert(slices.Clone(s), b.pos, b.id)
			}
			return append(slices.Clone(s), b.id)
		case !st.On && has:
			return slices.DeleteFunc(slices.Clone(s), func(id string) bool { return id == b.id })
		}
		return s
	})
}

// ToggleBookmark flips articleID in the actor's bookmark set. Count in the
// result is the size of the set.
func (f *Feed) ToggleBookmark(ctx context.Context, articleID string) (optimistic.ToggleState, error) {
	ctx, actor := f.pin(ctx)
	if actor == "" {
		return optimistic.ToggleState{}, domain.ErrUnauthenticated
	}

	f.mu.RLock()
	current := f.actor
	cell := &bookmarkCell{set: f.bookmarks, id: articleID, pos: -1}
	f.mu.RUnlock()
	if current != actor {
		return optimistic.ToggleState{}, ErrStale
	}

	return f.ctrl.Toggle(ctx, cell, optimistic.Target{
		Kind:     kindBookmark,
		EntityID: articleID,
		ActorID:  actor,
	}, f.api.BookmarkSetter())
}

func (f *Feed) Bookmarks() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.bookmarks.Load())
}

func (f *Feed) IsBookmarked(articleID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Contains(f.bookmarks.Load(), articleID)
}

// LoadComments replaces the local comments of articleID, newest first
func (f *Feed) LoadComments(ctx context.Context, articleID string, limit int) ([]Comment, error) {
	list, err := f.api.GetComments(ctx, articleID, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Comment{}
	}

	f.mu.Lock()
	if old, ok := f.threads[articleID]; ok {
		old.Close()
	}
	f.threads[articleID] = optimistic.NewValue(list)
	f.mu.Unlock()

	return slices.Clone(list), nil
}

func (f *Feed) Comments(articleID string) []Comment {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.threads[articleID]
	if !ok {
		return []Comment{}
	}
	return slices.Clone(t.Load())
}

type threadState struct {
	Comments []Comment
	Count    int64
}

// threadCell keeps a comment list and the comment count of its card in step
type threadCell struct {
	comments *optimistic.Value[[]Comment]
	article  *optimistic.Value[Article]
}

func (t threadCell) Load() threadState {
	s := threadState{Comments: t.comments.Load()}
	if t.article != nil {
		s.Count = t.article.Load().CommentCount
	} else {
		s.Count = int64(len(s.Comments))
	}
	return s
}

func (t threadCell) Store(s threadState) {
	t.comments.Store(s.Comments)
	if t.article != nil {
		t.article.Update(func(a Article) Article {
			a.CommentCount = s.Count
			return a
		})
	}
}

func (f *Feed) thread(articleID string) threadCell {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[articleID]
	if !ok {
		t = optimistic.NewValue([]Comment{})
		f.threads[articleID] = t
	}
	cell := threadCell{comments: t}
	if c, ok := f.cards[articleID]; ok {
		cell.article = c.article
	}
	return cell
}

// PostComment shows a pending comment at the top right away and swaps it
// for the stored one when the service answers. Blank text never reaches the
// service.
func (f *Feed) PostComment(ctx context.Context, articleID, text string, anonymous bool) (Comment, error) {
	creds, loggedIn := f.sess.Credentials()
	identity := creds.Identity
	if !loggedIn || identity.ActorID == "" {
		return Comment{}, domain.ErrUnauthenticated
	}
	ctx = WithToken(ctx, creds.Token)
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, domain.ErrValidation
	}

	pending := Comment{
		ID:          pendingPrefix + ulid.Make().String(),
		ArticleID:   articleID,
		IsAnonymous: anonymous,
		Text:        text,
		CreatedAt:   time.Now(),
		Pending:     true,
	}
	if !anonymous {
		pending.AuthorID = identity.ActorID
		pending.AuthorName = identity.DisplayName
	}

	var saved Comment
	_, err := optimistic.DoSettle[threadState](ctx, f.ctrl, kindComment+":"+articleID, f.thread(articleID),
		func(s threadState) threadState {
			return threadState{
				Comments: append([]Comment{pending}, s.Comments...),
				Count:    s.Count + 1,
			}
		},
		func(ctx context.Context, _, _ threadState) (func(threadState) threadState, error) {
			c, err := f.api.AddComment(ctx, articleID, text, anonymous)
			if err != nil {
				return nil, err
			}
			saved = c
			return func(s threadState) threadState {
				s.Comments = slices.Clone(s.Comments)
				for i := range s.Comments {
					if s.Comments[i].ID == pending.ID {
						s.Comments[i] = c
					}
				}
				return s
			}, nil
		})
	if err != nil {
		return Comment{}, err
	}
	return saved, nil
}

// DeleteComment removes the comment locally first and puts it back if the
// service refuses.
func (f *Feed) DeleteComment(ctx context.Context, articleID, commentID string) error {
	ctx, actor := f.pin(ctx)
	if actor == "" {
		return domain.ErrUnauthenticated
	}
	if strings.HasPrefix(commentID, pendingPrefix) {
		// not stored yet
		return domain.ErrNotFound
	}

	_, err := optimistic.Do[threadState](ctx, f.ctrl, kindComment+":"+articleID, f.thread(articleID),
		func(s threadState) threadState {
			idx := slices.IndexFunc(s.Comments, func(c Comment) bool { return c.ID == commentID })
			if idx < 0 {
				return s
			}
			s.Comments = slices.Delete(slices.Clone(s.Comments), idx, idx+1)
			if s.Count > 0 {
				s.Count--
			}
			return s
		},
		func(ctx context.Context, _, _ threadState) error {
			return f.api.DeleteComment(ctx, commentID)
		})
	return err
}

// Close stops following the session and discards every cell
func (f *Feed) Close() {
	f.cancel()
	f.stop()
	<-f.done

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		c.close()
	}
	for _, t := range f.threads {
		t.Close()
	}
	f.bookmarks.Close()
}
