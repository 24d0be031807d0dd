// Package session holds who is signed in on the client side. A Session is
// created explicitly, handed to whatever needs it and closed on shutdown.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/newsfeed/domain"
)

var ErrClosed = errors.New("session closed")

// Identity is the profile of the signed-in actor
type Identity struct {
	ActorID     string
	Email       string
	DisplayName string
	Role        string
	PhotoURL    string
	Provider    string
	Bookmarks   []string
}

func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}

// Credentials is what a successful sign in yields
type Credentials struct {
	Token    string
	Identity Identity
}

// Authenticator talks to the auth backend
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Credentials, error)
	Register(ctx context.Context, email, password, displayName string) (Credentials, error)
	SignInWithProvider(ctx context.Context, provider, idToken string) (Credentials, error)
	// Restore resolves a previously issued token to its identity
	Restore(ctx context.Context, token string) (Identity, error)
}

// Change is delivered to subscribers on every sign in and sign out
type Change struct {
	LoggedIn bool
	Identity Identity
}

type Session struct {
	auth Authenticator

	mu       sync.RWMutex
	token    string
	identity Identity
	loggedIn bool
	closed   bool
	subs     map[int]chan Change
	nextSub  int
}

func New(auth Authenticator) *Session {
	return &Session{
		auth: auth,
		subs: make(map[int]chan Change),
	}
}

func (s *Session) SignIn(ctx context.Context, email, password string) (Identity, error) {
	return s.signIn(func() (Credentials, error) {
		return s.auth.SignIn(ctx, email, password)
	})
}

func (s *Session) Register(ctx context.Context, email, password, displayName string) (Identity, error) {
	return s.signIn(func() (Credentials, error) {
		return s.auth.Register(ctx, email, password, displayName)
	})
}

func (s *Session) SignInWithProvider(ctx context.Context, provider, idToken string) (Identity, error) {
	return s.signIn(func() (Credentials, error) {
		return s.auth.SignInWithProvider(ctx, provider, idToken)
	})
}

// Restore signs in again with a stored token. A rejected token leaves the session signed out.
func (s *Session) Restore(ctx context.Context, token string) (Identity, error) {
	return s.signIn(func() (Credentials, error) {
		id, err := s.auth.Restore(ctx, token)
		if err != nil {
			return Credentials{}, err
		}
		return Credentials{Token: token, Identity: id}, nil
	})
}

func (s *Session) signIn(call func() (Credentials, error)) (Identity, error) {
	if s.isClosed() {
		return Identity{}, ErrClosed
	}

	creds, err := call()
	if err != nil {
		return Identity{}, err
	}
	if creds.Identity.ActorID == "" {
		return Identity{}, domain.ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Identity{}, ErrClosed
	}
	s.token = creds.Token
	s.identity = creds.Identity
	s.loggedIn = true
	s.publish()
	logrus.WithField("actor", creds.Identity.ActorID).Debug("signed in")
	return creds.Identity, nil
}

// SignOut forgets the identity locally
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loggedIn || s.closed {
		return
	}
	s.token = ""
	s.identity = Identity{}
	s.loggedIn = false
	s.publish()
	logrus.Debug("signed out")
}

// Close signs out and ends every subscription
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.token = ""
	s.identity = Identity{}
	s.loggedIn = false
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

func (s *Session) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// CurrentActorID is empty when nobody is signed in
func (s *Session) CurrentActorID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.ActorID
}

func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

func (s *Session) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := s.identity
	id.Bookmarks = slices.Clone(id.Bookmarks)
	return id, s.loggedIn
}

func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn && s.identity.IsAdmin()
}

// Credentials reads the token and the identity it belongs to in one step
func (s *Session) Credentials() (Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id := s.identity
	id.Bookmarks = slices.Clone(id.Bookmarks)
	return Credentials{Token: s.token, Identity: id}, s.loggedIn
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subscribe delivers the current state, then every change. A slow reader
// only ever misses intermediate states, never the latest one.
func (s *Session) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Change, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.change()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				close(c)
				delete(s.subs, id)
			}
		})
	}
}

func (s *Session) change() Change {
	id := s.identity
	id.Bookmarks = slices.Clone(id.Bookmarks)
	return Change{LoggedIn: s.loggedIn, Identity: id}
}

// publish must be called with s.mu held
func (s *Session) publish() {
	c := s.change()
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- c
		}
	}
}
