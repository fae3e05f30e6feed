package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/auth"
	"taskdeck/internal/task"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func signed(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return tok
}

type fakeAuth struct {
	t          *testing.T
	accessTTL  time.Duration
	refreshes  int
	refreshErr error
	issued     int
	// entered and gate, when set, hold Refresh until the test lets it go.
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeAuth) pair() auth.TokenPair {
	f.issued++
	return auth.TokenPair{
		AccessToken:  signed(f.t, fmt.Sprintf("access-%d", f.issued), epoch.Add(f.accessTTL)),
		RefreshToken: fmt.Sprintf("refresh-%d", f.issued),
	}
}

func (f *fakeAuth) Login(_ context.Context, email, password string) (auth.TokenPair, error) {
	if password != "password123" {
		return auth.TokenPair{}, fmt.Errorf("%w: invalid email or password", task.ErrAuth)
	}
	return f.pair(), nil
}

func (f *fakeAuth) Refresh(_ context.Context, refreshToken string) (auth.TokenPair, error) {
	f.refreshes++
	if f.gate != nil {
		close(f.entered)
		<-f.gate
	}
	if f.refreshErr != nil {
		return auth.TokenPair{}, f.refreshErr
	}
	return f.pair(), nil
}

func (f *fakeAuth) CurrentUser(_ context.Context, credential string) (auth.Identity, error) {
	if credential == "" {
		return auth.Identity{}, fmt.Errorf("%w: missing credential", task.ErrAuth)
	}
	return auth.Identity{ID: "u1", Email: "a@example.com"}, nil
}

func newManager(t *testing.T, fa *fakeAuth, opts ...Option) *Manager {
	t.Helper()
	opts = append(opts, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	m := NewManager(fa, opts...)
	m.now = func() time.Time { return epoch }
	return m
}

func TestCredentialWhenSignedOut(t *testing.T) {
	m := newManager(t, &fakeAuth{t: t, accessTTL: time.Hour})

	_, err := m.Credential(context.Background())
	assert.ErrorIs(t, err, task.ErrAuth)
	_, ok := m.CurrentUser()
	assert.False(t, ok)
}

func TestLoginNotifiesSubscribers(t *testing.T) {
	m := newManager(t, &fakeAuth{t: t, accessTTL: time.Hour})

	var states []State
	unsubscribe := m.Subscribe(func(s State) { states = append(states, s) })

	require.NoError(t, m.Login(context.Background(), "a@example.com", "password123"))
	user, ok := m.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)

	cred, err := m.Credential(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, cred)

	m.Logout()
	unsubscribe()
	m.Logout()

	require.Len(t, states, 2)
	assert.True(t, states[0].SignedIn)
	assert.Equal(t, "a@example.com", states[0].User.Email)
	assert.False(t, states[1].SignedIn)
}

func TestLoginFailureKeepsSignedOut(t *testing.T) {
	m := newManager(t, &fakeAuth{t: t, accessTTL: time.Hour})

	err := m.Login(context.Background(), "a@example.com", "wrong")
	assert.ErrorIs(t, err, task.ErrAuth)
	_, ok := m.CurrentUser()
	assert.False(t, ok)
}

func TestCredentialRefreshesNearExpiry(t *testing.T) {
	fa := &fakeAuth{t: t, accessTTL: 10 * time.Second}
	m := newManager(t, fa, WithRefreshSkew(30*time.Second))
	require.NoError(t, m.Login(context.Background(), "a@example.com", "password123"))

	first, err := m.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fa.refreshes)

	fa.accessTTL = time.Hour
	second, err := m.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fa.refreshes)
	assert.NotEqual(t, first, second)

	third, err := m.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, third)
	assert.Equal(t, 2, fa.refreshes)
}

func TestFailedRefreshSignsOut(t *testing.T) {
	fa := &fakeAuth{t: t, accessTTL: time.Second}
	m := newManager(t, fa)
	require.NoError(t, m.Login(context.Background(), "a@example.com", "password123"))

	var last State
	m.Subscribe(func(s State) { last = s })

	fa.refreshErr = fmt.Errorf("%w: token has expired", task.ErrAuth)
	_, err := m.Credential(context.Background())
	require.ErrorIs(t, err, task.ErrAuth)
	assert.False(t, last.SignedIn)
	_, ok := m.CurrentUser()
	assert.False(t, ok)
}

func TestLogoutDuringRefreshStaysSignedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	fa := &fakeAuth{t: t, accessTTL: time.Second}
	m := newManager(t, fa, WithFile(NewFile(path)))
	require.NoError(t, m.Login(context.Background(), "a@example.com", "password123"))

	fa.entered, fa.gate = make(chan struct{}), make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := m.Credential(context.Background())
		done <- err
	}()
	<-fa.entered
	m.Logout()
	close(fa.gate)

	require.ErrorIs(t, <-done, task.ErrAuth)
	_, err := m.Credential(context.Background())
	assert.ErrorIs(t, err, task.ErrAuth)
	_, ok := m.CurrentUser()
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRefreshRejectedAfterNewLoginKeepsNewSession(t *testing.T) {
	fa := &fakeAuth{t: t, accessTTL: time.Second}
	m := newManager(t, fa)
	require.NoError(t, m.Login(context.Background(), "a@example.com", "password123"))

	fa.entered, fa.gate = make(chan struct{}), make(chan struct{})
	fa.refreshErr = fmt.Errorf("%w: token revoked", task.ErrAuth)
	done := make(chan error, 1)
	go func() {
		_, err := m.Credential(context.Background())
		done <- err
	}()
	<-fa.entered
	m.Logout()
	require.NoError(t, m.Login(context.Background(), "a@example.com", "password123"))
	close(fa.gate)

	require.ErrorIs(t, <-done, task.ErrAuth)
	_, ok := m.CurrentUser()
	assert.True(t, ok)
}

func TestOpaqueTokensAreNotRefreshed(t *testing.T) {
	m := newManager(t, &fakeAuth{t: t})
	m.access = "opaque"

	cred, err := m.Credential(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opaque", cred)
}

func TestSessionFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	fa := &fakeAuth{t: t, accessTTL: time.Hour}

	m := newManager(t, fa, WithFile(NewFile(path)))
	require.NoError(t, m.Login(context.Background(), "a@example.com", "password123"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	restored := newManager(t, fa, WithFile(NewFile(path)))
	var notified bool
	restored.Subscribe(func(s State) { notified = s.SignedIn })
	require.NoError(t, restored.Restore(context.Background()))

	user, ok := restored.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "a@example.com", user.Email)
	assert.True(t, notified)

	restored.Logout()
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRestoreWithoutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	m := newManager(t, &fakeAuth{t: t}, WithFile(NewFile(path)))

	require.NoError(t, m.Restore(context.Background()))
	_, ok := m.CurrentUser()
	assert.False(t, ok)
}

func TestRestoreKeepsFileOnTransientFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	f := NewFile(path)
	require.NoError(t, f.Save(Saved{
		AccessToken:  signed(t, "old", epoch.Add(-time.Hour)),
		RefreshToken: "still-good",
	}))

	fa := &fakeAuth{t: t, accessTTL: time.Hour, refreshErr: context.DeadlineExceeded}
	m := newManager(t, fa, WithFile(f))

	err := m.Restore(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok := m.CurrentUser()
	assert.False(t, ok)
	_, err = m.Credential(context.Background())
	assert.ErrorIs(t, err, task.ErrAuth)

	saved, err := f.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "still-good", saved.RefreshToken)

	fa.refreshErr = nil
	require.NoError(t, m.Restore(context.Background()))
	_, ok = m.CurrentUser()
	assert.True(t, ok)
}

func TestRestoreExpiredSessionSignsOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	f := NewFile(path)
	require.NoError(t, f.Save(Saved{
		AccessToken:  signed(t, "old", epoch.Add(-time.Hour)),
		RefreshToken: "stale",
	}))

	fa := &fakeAuth{t: t, refreshErr: fmt.Errorf("%w: token has expired", task.ErrAuth)}
	m := newManager(t, fa, WithFile(f))

	require.NoError(t, m.Restore(context.Background()))
	_, ok := m.CurrentUser()
	assert.False(t, ok)
	saved, err := f.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)
}
