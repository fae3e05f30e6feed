package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskdeck/internal/storage"
	"taskdeck/internal/task"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		Secret:     "test-secret",
		Issuer:     "taskdeck-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(st, NewTokens(testTokenConfig()), NewHasher(bcrypt.MinCost), nil)
}

func TestTokensIssueAndVerify(t *testing.T) {
	m := NewTokens(testTokenConfig())
	pair, err := m.Issue(Identity{ID: "user-1", Email: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := m.Verify(pair.AccessToken, kindAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)

	_, err = m.Verify(pair.RefreshToken, kindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token must not pass as access token")
	_, err = m.Verify(pair.AccessToken, kindRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensRejectTampering(t *testing.T) {
	m := NewTokens(testTokenConfig())
	pair, err := m.Issue(Identity{ID: "user-1"})
	require.NoError(t, err)

	other := testTokenConfig()
	other.Secret = "another-secret"
	_, err = NewTokens(other).Verify(pair.AccessToken, kindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("not-a-jwt", kindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokensExpire(t *testing.T) {
	m := NewTokens(testTokenConfig())
	issued := time.Now()
	m.now = func() time.Time { return issued }
	pair, err := m.Issue(Identity{ID: "user-1"})
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(time.Hour) }
	_, err = m.Verify(pair.AccessToken, kindAccess)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "not-an-email", "password123")
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = s.Register(ctx, "a@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
	_, err = s.Register(ctx, "a@example.com", string(make([]byte, 73)))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = s.Register(ctx, "A@Example.com", "password123")
	require.NoError(t, err)
	_, err = s.Register(ctx, "a@example.com", "password456")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginResolveRefresh(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	id, err := s.Register(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	_, err = s.Login(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	pair, err := s.Login(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	got, err := s.Resolve(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	refreshed, err := s.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	user, err := s.User(ctx, id.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", user.Email)
}

func TestResolveWrapsAuthError(t *testing.T) {
	s := newTestService(t)
	_, err := s.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, task.ErrAuth)
	_, err = s.Resolve(context.Background(), "garbage")
	assert.ErrorIs(t, err, task.ErrAuth)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
