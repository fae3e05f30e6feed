// Package session owns the signed-in identity of the running client. It is
// the only holder of the credential; everything else asks for it right
// before each store call.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskdeck/internal/auth"
	"taskdeck/internal/remote"
	"taskdeck/internal/task"
)

const defaultRefreshSkew = 30 * time.Second

type User struct {
	ID    string
	Email string
}

// State is delivered to subscribers whenever the session changes.
type State struct {
	SignedIn bool
	User     User
}

type Option func(*Manager)

func WithFile(f *File) Option {
	return func(m *Manager) { m.file = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRefreshSkew sets how close to expiry an access token may get before
// Credential refreshes it.
func WithRefreshSkew(d time.Duration) Option {
	return func(m *Manager) { m.skew = d }
}

type Manager struct {
	authn  remote.Authenticator
	file   *File
	logger *slog.Logger
	skew   time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	access  string
	refresh string
	user    *User
	subs    map[int]func(State)
	nextSub int

	refreshMu sync.Mutex
}

func NewManager(authn remote.Authenticator, opts ...Option) *Manager {
	m := &Manager{
		authn:  authn,
		logger: slog.Default(),
		skew:   defaultRefreshSkew,
		now:    time.Now,
		subs:   map[int]func(State){},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login signs in and announces the new state.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	pair, err := m.authn.Login(ctx, email, password)
	if err != nil {
		return err
	}
	id, err := m.authn.CurrentUser(ctx, pair.AccessToken)
	if err != nil {
		return err
	}
	m.set(pair, User{ID: id.ID, Email: id.Email})
	m.logger.Info("signed in", "user_id", id.ID)
	return nil
}

// Restore signs back in from the session file, if there is one. A file the
// store rejects leaves the manager signed out and is removed. Any other
// failure is returned and the file is kept for the next attempt.
func (m *Manager) Restore(ctx context.Context) error {
	if m.file == nil {
		return nil
	}
	saved, err := m.file.Load()
	if err != nil || saved == nil {
		return err
	}
	m.mu.Lock()
	m.access, m.refresh = saved.AccessToken, saved.RefreshToken
	m.mu.Unlock()

	var id auth.Identity
	cred, err := m.Credential(ctx)
	if err == nil {
		id, err = m.authn.CurrentUser(ctx, cred)
	}
	if err != nil {
		if errors.Is(err, task.ErrAuth) {
			m.Logout()
			return nil
		}
		m.forget()
		return fmt.Errorf("restore session: %w", err)
	}
	m.mu.Lock()
	m.user = &User{ID: id.ID, Email: id.Email}
	m.mu.Unlock()
	m.notify()
	return nil
}

// forget drops the in-memory tokens of a session that was never restored.
// The file stays.
func (m *Manager) forget() {
	m.mu.Lock()
	if m.user == nil {
		m.access, m.refresh = "", ""
	}
	m.mu.Unlock()
}

func (m *Manager) Logout() {
	m.mu.Lock()
	wasSignedIn := m.user != nil
	m.access, m.refresh, m.user = "", "", nil
	if m.file != nil {
		if err := m.file.Remove(); err != nil {
			m.logger.Warn("remove session file", "error", err)
		}
	}
	m.mu.Unlock()
	if wasSignedIn {
		m.logger.Info("signed out")
	}
	m.notify()
}

// Credential returns a usable access token, refreshing it first when it is
// about to expire. It fails with task.ErrAuth when nobody is signed in.
func (m *Manager) Credential(ctx context.Context) (string, error) {
	m.mu.RLock()
	access := m.access
	m.mu.RUnlock()
	if access == "" {
		return "", fmt.Errorf("%w: not signed in", task.ErrAuth)
	}
	if !m.expiring(access) {
		return access, nil
	}
	return m.refreshAccess(ctx)
}

func (m *Manager) CurrentUser() (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return User{}, false
	}
	return *m.user, true
}

// Subscribe registers fn for session changes and returns a function that
// removes it.
func (m *Manager) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) refreshAccess(ctx context.Context) (string, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.mu.RLock()
	access, refresh := m.access, m.refresh
	m.mu.RUnlock()
	if access != "" && !m.expiring(access) {
		return access, nil
	}
	if refresh == "" {
		return "", fmt.Errorf("%w: session expired", task.ErrAuth)
	}

	pair, err := m.authn.Refresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, task.ErrAuth) && m.holds(refresh) {
			m.logger.Info("session expired", "error", err)
			m.Logout()
		}
		return "", err
	}

	// A sign-out or sign-in during the call replaces the refresh token.
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refresh != refresh {
		return "", fmt.Errorf("%w: signed out during token refresh", task.ErrAuth)
	}
	m.access, m.refresh = pair.AccessToken, pair.RefreshToken
	m.save(pair, m.user)
	return pair.AccessToken, nil
}

func (m *Manager) holds(refresh string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh == refresh
}

// expiring reads the token's expiry without verifying it; verification is
// the store's job. Tokens without a readable expiry never expire here.
func (m *Manager) expiring(token string) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !m.now().Add(m.skew).Before(claims.ExpiresAt.Time)
}

func (m *Manager) set(pair auth.TokenPair, u User) {
	m.mu.Lock()
	m.access, m.refresh = pair.AccessToken, pair.RefreshToken
	m.user = &u
	m.save(pair, &u)
	m.mu.Unlock()
	m.notify()
}

// save writes the session file. Callers hold mu so the file never outlives
// a Logout.
func (m *Manager) save(pair auth.TokenPair, u *User) {
	if m.file == nil {
		return
	}
	saved := Saved{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	if u != nil {
		saved.UserID, saved.Email = u.ID, u.Email
	}
	if err := m.file.Save(saved); err != nil {
		m.logger.Warn("save session file", "error", err)
	}
}

func (m *Manager) notify() {
	m.mu.RLock()
	st := State{}
	if m.user != nil {
		st = State{SignedIn: true, User: *m.user}
	}
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()
	for _, fn := range fns {
		fn(st)
	}
}
