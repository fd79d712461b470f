package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated session issued by the server.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Session *Session `json:"session"`
}

// Auth signs users in and out and tells subscribers when the session
// changes.
type Auth struct {
	t *transport

	mu        sync.Mutex
	session   *Session
	listeners map[int]func(*Session)
	nextID    int
	now       func() time.Time
}

// NewAuth creates an Auth without a session.
func NewAuth(cfg Config) *Auth {
	return &Auth{
		t:         newTransport(cfg),
		listeners: make(map[int]func(*Session)),
		now:       time.Now,
	}
}

// Current returns the cached session, or nil when signed out or expired.
func (a *Auth) Current() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil || a.session.Expired(a.now()) {
		return nil
	}
	s := *a.session
	return &s
}

// OnAuthStateChange registers fn to run with the new session (nil when
// signed out) every time it changes. The returned func unsubscribes.
func (a *Auth) OnAuthStateChange(fn func(*Session)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *Auth) set(s *Session) {
	a.mu.Lock()
	a.session = s
	listeners := make([]func(*Session), 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.mu.Unlock()

	for _, l := range listeners {
		if s == nil {
			l(nil)
			continue
		}
		cp := *s
		l(&cp)
	}
}

// Restore installs a previously saved session without contacting the
// server. Expired sessions are dropped.
func (a *Auth) Restore(s *Session) {
	if s == nil || s.AccessToken == "" || s.Expired(a.now()) {
		a.set(nil)
		return
	}
	cp := *s
	a.set(&cp)
}

// GetSession checks the cached session with the server. It returns nil
// and no error when there is no valid session.
func (a *Auth) GetSession(ctx context.Context) (*Session, error) {
	current := a.Current()
	if current == nil {
		return nil, nil
	}

	var resp sessionResponse
	err := a.t.do(ctx, http.MethodGet, "/api/auth/session", current.AccessToken, nil, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		a.set(nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.Session, nil
}

// SignIn signs in with email and password.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return a.authenticate(ctx, "/api/auth/signin", email, password)
}

// SignUp creates an account and signs it in.
func (a *Auth) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return a.authenticate(ctx, "/api/auth/signup", email, password)
}

func (a *Auth) authenticate(ctx context.Context, path, email, password string) (*Session, error) {
	var resp sessionResponse
	body := credentials{Email: strings.TrimSpace(email), Password: password}
	if err := a.t.do(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return nil, err
	}
	if resp.Session == nil {
		return nil, errors.New("server returned no session")
	}
	if resp.Session.Expired(a.now()) {
		return nil, fmt.Errorf("%w: server issued a session that expired at %s, check the system clock",
			ErrSessionExpired, resp.Session.ExpiresAt.Format(time.RFC3339))
	}
	session := *resp.Session
	a.set(resp.Session)
	return &session, nil
}

// SignOut revokes the session on the server and forgets it locally. The
// local session is dropped even when the server call fails.
func (a *Auth) SignOut(ctx context.Context) error {
	current := a.Current()
	if current == nil {
		a.set(nil)
		return nil
	}
	err := a.t.do(ctx, http.MethodPost, "/api/auth/signout", current.AccessToken, nil, nil)
	a.set(nil)
	return err
}
