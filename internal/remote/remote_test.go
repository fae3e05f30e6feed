package remote

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskdeck/internal/api"
	"taskdeck/internal/auth"
	"taskdeck/internal/backend"
	"taskdeck/internal/storage"
	"taskdeck/internal/task"
)

type backendEnv struct {
	auth  *auth.Service
	tasks *backend.Service
}

func newBackendEnv(t *testing.T) backendEnv {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), "remote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return backendEnv{
		auth: auth.NewService(st, auth.NewTokens(auth.TokenConfig{
			Secret:     "test-secret",
			Issuer:     "taskdeck-test",
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
		}), auth.NewHasher(bcrypt.MinCost), logger),
		tasks: backend.NewService(st, logger),
	}
}

// stores returns both adapters over independent backends so every contract
// test runs against each transport.
func stores(t *testing.T) map[string]func(t *testing.T) (Store, Authenticator, backendEnv) {
	return map[string]func(t *testing.T) (Store, Authenticator, backendEnv){
		"local": func(t *testing.T) (Store, Authenticator, backendEnv) {
			env := newBackendEnv(t)
			l := NewLocal(env.auth, env.tasks)
			return l, l, env
		},
		"http": func(t *testing.T) (Store, Authenticator, backendEnv) {
			env := newBackendEnv(t)
			srv := httptest.NewServer(api.NewServer(env.auth, env.tasks, slog.New(slog.NewTextHandler(io.Discard, nil))).Handler())
			t.Cleanup(srv.Close)
			c := NewClient(srv.URL, srv.Client())
			return c, c, env
		},
	}
}

func signIn(t *testing.T, env backendEnv, a Authenticator, email string) string {
	t.Helper()
	_, err := env.auth.Register(context.Background(), email, "password123")
	require.NoError(t, err)
	pair, err := a.Login(context.Background(), email, "password123")
	require.NoError(t, err)
	return pair.AccessToken
}

func TestStoreContract(t *testing.T) {
	for name, build := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store, authn, env := build(t)
			ctx := context.Background()
			cred := signIn(t, env, authn, "a@example.com")

			created, err := store.Create(ctx, cred, task.CreateInput{Title: "Pay rent", Priority: task.PriorityHigh})
			require.NoError(t, err)
			assert.NotZero(t, created.ID)
			assert.Nil(t, created.Category)
			assert.Nil(t, created.DueDate)
			assert.False(t, created.Completed)
			assert.Equal(t, task.PriorityHigh, created.Priority)

			_, err = store.Create(ctx, cred, task.CreateInput{Title: "Pay rent", Priority: "urgent"})
			assert.ErrorIs(t, err, task.ErrValidation)

			second, err := store.Create(ctx, cred, task.CreateInput{Title: "Second"})
			require.NoError(t, err)
			assert.Equal(t, task.PriorityMedium, second.Priority)

			tasks, err := store.List(ctx, cred)
			require.NoError(t, err)
			require.Len(t, tasks, 2)
			assert.Equal(t, second.ID, tasks[0].ID, "newest first")

			require.NoError(t, store.Update(ctx, cred, created.ID, task.Patch{Completed: task.Ptr(true)}))
			assert.ErrorIs(t, store.Update(ctx, cred, 999999, task.Patch{Completed: task.Ptr(true)}), task.ErrNotFound)

			require.NoError(t, store.Delete(ctx, cred, created.ID))
			assert.ErrorIs(t, store.Delete(ctx, cred, created.ID), task.ErrNotFound)

			user, err := authn.CurrentUser(ctx, cred)
			require.NoError(t, err)
			assert.Equal(t, "a@example.com", user.Email)
		})
	}
}

func TestStoreRejectsBadCredentials(t *testing.T) {
	for name, build := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store, authn, _ := build(t)
			ctx := context.Background()

			_, err := store.List(ctx, "")
			assert.ErrorIs(t, err, task.ErrAuth)
			_, err = store.List(ctx, "garbage")
			assert.ErrorIs(t, err, task.ErrAuth)
			_, err = store.Create(ctx, "garbage", task.CreateInput{Title: "x"})
			assert.ErrorIs(t, err, task.ErrAuth)

			_, err = authn.Login(ctx, "nobody@example.com", "password123")
			assert.ErrorIs(t, err, task.ErrAuth)
		})
	}
}

func TestStoreIsOwnerScoped(t *testing.T) {
	for name, build := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store, authn, env := build(t)
			ctx := context.Background()
			alice := signIn(t, env, authn, "alice@example.com")
			bob := signIn(t, env, authn, "bob@example.com")

			created, err := store.Create(ctx, alice, task.CreateInput{Title: "alice's"})
			require.NoError(t, err)

			bobs, err := store.List(ctx, bob)
			require.NoError(t, err)
			assert.Empty(t, bobs)
			assert.ErrorIs(t, store.Delete(ctx, bob, created.ID), task.ErrNotFound)
		})
	}
}

func TestClientMapsServerFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":"database is locked"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).List(context.Background(), "token")
	require.ErrorIs(t, err, task.ErrStore)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestClientTransportFailureIsStoreError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(url, nil).Delete(context.Background(), "token", 1)
	assert.ErrorIs(t, err, task.ErrStore)
}
