// Package client is the data access side of the news app: an HTTP client
// over the REST API and the Feed store that drives optimistic mutations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Guyuepp/newsfeed/internal/optimistic"
	"github.com/Guyuepp/newsfeed/internal/session"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	endpoint string
	http     *http.Client

	mu          sync.RWMutex
	token       string
	tokenSource func() string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource makes every request carry the token returned by fn,
// typically (*session.Session).Token
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.tokenSource = fn }
}

func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) SetTokenSource(fn func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenSource = fn
}

// SetToken pins a token, used when no token source is set
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Logout forgets the pinned token
func (c *Client) Logout() {
	c.SetToken("")
}

type tokenKey struct{}

// WithToken pins the token of every call made with ctx, so a request keeps
// acting for the actor it was started for.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokenSource != nil {
		return c.tokenSource()
	}
	return c.token
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	token  string
}

// do sends the call and decodes a 2xx body into out. The response headers are returned.
func (c *Client) do(ctx context.Context, cl call, out any) (http.Header, error) {
	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	u := c.endpoint + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return nil, err
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token := cl.token
	if token == "" {
		token, _ = ctx.Value(tokenKey{}).(string)
	}
	if token == "" {
		token = c.currentToken()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrRemote, cl.method, cl.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) != nil || e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return resp.Header, &APIError{Status: resp.StatusCode, Message: e.Message}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("%w: decode response: %v", ErrRemote, err)
		}
	}
	return resp.Header, nil
}

func pageQuery(limit int, cursor string) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("num", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return q
}

// GetArticles returns the newest articles, optionally of one category
func (c *Client) GetArticles(ctx context.Context, limit int, category string) ([]Article, error) {
	res, _, err := c.GetArticlesPage(ctx, limit, category, "")
	return res, err
}

// GetArticlesPage returns one page and the cursor of the next, empty at the end
func (c *Client) GetArticlesPage(ctx context.Context, limit int, category, cursor string) ([]Article, string, error) {
	q := pageQuery(limit, cursor)
	if category != "" {
		q.Set("category", category)
	}
	var res []Article
	h, err := c.do(ctx, call{method: http.MethodGet, path: "/articles", query: q}, &res)
	if err != nil {
		return nil, "", err
	}
	return res, h.Get("X-Cursor"), nil
}

func (c *Client) GetArticle(ctx context.Context, id string) (Article, error) {
	var res Article
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/articles/" + url.PathEscape(id)}, &res)
	return res, err
}

// GetRanks returns the "daily" or "history" ranking
func (c *Client) GetRanks(ctx context.Context, kind string, limit int) ([]Article, error) {
	q := url.Values{"type": {kind}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res []Article
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/articles/ranks", query: q}, &res)
	return res, err
}

func (c *Client) AddArticle(ctx context.Context, in ArticleInput) (Article, error) {
	var res Article
	_, err := c.do(ctx, call{method: http.MethodPost, path: "/articles", body: in}, &res)
	return res, err
}

func (c *Client) UpdateArticle(ctx context.Context, id string, in ArticleInput) (Article, error) {
	var res Article
	_, err := c.do(ctx, call{method: http.MethodPut, path: "/articles/" + url.PathEscape(id), body: in}, &res)
	return res, err
}

func (c *Client) DeleteArticle(ctx context.Context, id string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: "/articles/" + url.PathEscape(id)}, nil)
	return err
}

func (c *Client) Like(ctx context.Context, articleID string) (LikeResult, error) {
	return c.like(ctx, http.MethodPost, articleID)
}

func (c *Client) Unlike(ctx context.Context, articleID string) (LikeResult, error) {
	return c.like(ctx, http.MethodDelete, articleID)
}

func (c *Client) like(ctx context.Context, method, articleID string) (LikeResult, error) {
	var res LikeResult
	_, err := c.do(ctx, call{method: method, path: "/articles/" + url.PathEscape(articleID) + "/like"}, &res)
	return res, err
}

func (c *Client) AddBookmark(ctx context.Context, articleID string) (BookmarkResult, error) {
	return c.bookmark(ctx, http.MethodPost, articleID)
}

func (c *Client) RemoveBookmark(ctx context.Context, articleID string) (BookmarkResult, error) {
	return c.bookmark(ctx, http.MethodDelete, articleID)
}

func (c *Client) bookmark(ctx context.Context, method, articleID string) (BookmarkResult, error) {
	var res BookmarkResult
	_, err := c.do(ctx, call{method: method, path: "/me/bookmarks/" + url.PathEscape(articleID)}, &res)
	return res, err
}

// likeSetter and bookmarkSetter act for the holder of the token pinned with
// WithToken, or of the client's token. The controller has already checked
// that an actor is signed in.
type likeSetter struct{ c *Client }

func (s likeSetter) SetMembership(ctx context.Context, entityID, _ string, add bool) error {
	var err error
	if add {
		_, err = s.c.Like(ctx, entityID)
	} else {
		_, err = s.c.Unlike(ctx, entityID)
	}
	return err
}

type bookmarkSetter struct{ c *Client }

func (s bookmarkSetter) SetMembership(ctx context.Context, entityID, _ string, add bool) error {
	var err error
	if add {
		_, err = s.c.AddBookmark(ctx, entityID)
	} else {
		_, err = s.c.RemoveBookmark(ctx, entityID)
	}
	return err
}

func (c *Client) LikeSetter() optimistic.MembershipSetter {
	return likeSetter{c: c}
}

func (c *Client) BookmarkSetter() optimistic.MembershipSetter {
	return bookmarkSetter{c: c}
}

func (c *Client) GetComments(ctx context.Context, articleID string, limit int) ([]Comment, error) {
	var res []Comment
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/articles/" + url.PathEscape(articleID) + "/comments",
		query:  pageQuery(limit, ""),
	}, &res)
	return res, err
}

func (c *Client) GetUserComments(ctx context.Context, userID string, limit int) ([]Comment, error) {
	var res []Comment
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/users/" + url.PathEscape(userID) + "/comments",
		query:  pageQuery(limit, ""),
	}, &res)
	return res, err
}

func (c *Client) AddComment(ctx context.Context, articleID, text string, anonymous bool) (Comment, error) {
	var res Comment
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/articles/" + url.PathEscape(articleID) + "/comments",
		body:   map[string]any{"text": text, "is_anonymous": anonymous},
	}, &res)
	return res, err
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	_, err := c.do(ctx, call{method: http.MethodDelete, path: "/comments/" + url.PathEscape(id)}, nil)
	return err
}

func (c *Client) Register(ctx context.Context, email, password, displayName string) (AuthResult, error) {
	var res AuthResult
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/register",
		body:   map[string]string{"email": email, "password": password, "display_name": displayName},
	}, &res)
	return res, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var res AuthResult
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/login",
		body:   map[string]string{"email": email, "password": password},
	}, &res)
	return res, err
}

func (c *Client) LoginWithProvider(ctx context.Context, provider, idToken string) (AuthResult, error) {
	var res AuthResult
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/login/" + url.PathEscape(provider),
		body:   map[string]string{"id_token": idToken},
	}, &res)
	return res, err
}

// Me returns the profile of the current token holder
func (c *Client) Me(ctx context.Context) (Profile, error) {
	return c.me(ctx, "")
}

func (c *Client) me(ctx context.Context, token string) (Profile, error) {
	var res Profile
	_, err := c.do(ctx, call{method: http.MethodGet, path: "/me", token: token}, &res)
	return res, err
}

// Authenticator lets a session sign in through this client
func (c *Client) Authenticator() session.Authenticator {
	return authenticator{c: c}
}

type authenticator struct{ c *Client }

func toIdentity(p Profile) session.Identity {
	return session.Identity{
		ActorID:     p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		PhotoURL:    p.PhotoURL,
		Provider:    p.Provider,
		Bookmarks:   p.Bookmarks,
	}
}

func toCredentials(r AuthResult, err error) (session.Credentials, error) {
	if err != nil {
		return session.Credentials{}, err
	}
	return session.Credentials{Token: r.Token, Identity: toIdentity(r.User)}, nil
}

func (a authenticator) SignIn(ctx context.Context, email, password string) (session.Credentials, error) {
	return toCredentials(a.c.Login(ctx, email, password))
}

func (a authenticator) Register(ctx context.Context, email, password, displayName string) (session.Credentials, error) {
	return toCredentials(a.c.Register(ctx, email, password, displayName))
}

func (a authenticator) SignInWithProvider(ctx context.Context, provider, idToken string) (session.Credentials, error) {
	return toCredentials(a.c.LoginWithProvider(ctx, provider, idToken))
}

func (a authenticator) Restore(ctx context.Context, token string) (session.Identity, error) {
	p, err := a.c.me(ctx, token)
	if err != nil {
		return session.Identity{}, err
	}
	return toIdentity(p), nil
}
