package collection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/task"
)

type staticCreds string

func (c staticCreds) Credential(context.Context) (string, error) {
	if c == "" {
		return "", fmt.Errorf("%w: not signed in", task.ErrAuth)
	}
	return string(c), nil
}

// swappableCreds changes hands between sign-ins.
type swappableCreds struct {
	mu  sync.Mutex
	cur string
}

func (c *swappableCreds) Credential(context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur, nil
}

func (c *swappableCreds) set(v string) {
	c.mu.Lock()
	c.cur = v
	c.mu.Unlock()
}

type listStore struct {
	tasks []task.Task
	err   error
	calls atomic.Int32
	gate  chan struct{}
	creds []string
	mu    sync.Mutex
}

func (s *listStore) List(_ context.Context, cred string) ([]task.Task, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.creds = append(s.creds, cred)
	s.mu.Unlock()
	if s.gate != nil {
		<-s.gate
	}
	return s.tasks, s.err
}

func (s *listStore) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.creds)
}

func (s *listStore) Create(context.Context, string, task.CreateInput) (task.Task, error) {
	return task.Task{}, errors.New("unused")
}

func (s *listStore) Update(context.Context, string, int64, task.Patch) error {
	return errors.New("unused")
}

func (s *listStore) Delete(context.Context, string, int64) error {
	return errors.New("unused")
}

func seeded(t *testing.T, tasks ...task.Task) *Store {
	t.Helper()
	s := New(&listStore{tasks: tasks}, staticCreds("token"))
	require.NoError(t, s.Refresh(context.Background()))
	return s
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	remote := &listStore{tasks: []task.Task{
		{ID: 2, Title: "b", Category: task.Ptr(" "), DueDate: task.Ptr("")},
		{ID: 1, Title: "a"},
	}}
	s := New(remote, staticCreds("token"))
	s.ApplyCreate(task.Task{ID: 99, Title: "stale"})

	require.NoError(t, s.Refresh(context.Background()))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(2), snap[0].ID)
	assert.Nil(t, snap[0].Category)
	assert.Nil(t, snap[0].DueDate)
	assert.Equal(t, []string{"token"}, remote.creds)
}

func TestRefreshWithoutSessionLeavesSnapshot(t *testing.T) {
	remote := &listStore{}
	s := New(remote, staticCreds(""))
	s.ApplyCreate(task.Task{ID: 1, Title: "kept"})

	err := s.Refresh(context.Background())
	require.ErrorIs(t, err, task.ErrAuth)
	assert.Zero(t, remote.calls.Load())
	assert.Equal(t, 1, s.Len())
}

func TestRefreshFailureLeavesSnapshot(t *testing.T) {
	remote := &listStore{tasks: []task.Task{{ID: 1, Title: "a"}}}
	s := New(remote, staticCreds("token"))
	require.NoError(t, s.Refresh(context.Background()))

	remote.err = fmt.Errorf("%w: boom", task.ErrStore)
	require.ErrorIs(t, s.Refresh(context.Background()), task.ErrStore)
	assert.Equal(t, 1, s.Len())
}

func TestConcurrentRefreshesShareOneCall(t *testing.T) {
	remote := &listStore{tasks: []task.Task{{ID: 1}}, gate: make(chan struct{})}
	s := New(remote, staticCreds("token"))

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Refresh(context.Background()))
		}()
	}
	require.Eventually(t, func() bool { return remote.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(remote.gate)
	wg.Wait()

	assert.Equal(t, int32(1), remote.calls.Load())
}

func TestRefreshAfterResetDoesNotRepopulate(t *testing.T) {
	remote := &listStore{tasks: []task.Task{{ID: 1, Title: "A's secret"}}, gate: make(chan struct{})}
	creds := &swappableCreds{cur: "token-A"}
	s := New(remote, creds)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() { errA <- s.Refresh(ctxA) }()
	require.Eventually(t, func() bool { return remote.calls.Load() == 1 }, time.Second, time.Millisecond)

	cancelA()
	s.Reset()
	creds.set("token-B")

	errB := make(chan error, 1)
	go func() { errB <- s.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return remote.calls.Load() == 2 }, time.Second, time.Millisecond)
	close(remote.gate)

	require.ErrorIs(t, <-errA, ErrDiscarded)
	require.NoError(t, <-errB)
	assert.Equal(t, []string{"token-A", "token-B"}, remote.seen())
	assert.Equal(t, 1, s.Len())
}

func TestResetDuringRefreshDiscardsResult(t *testing.T) {
	remote := &listStore{tasks: []task.Task{{ID: 1}}, gate: make(chan struct{})}
	s := New(remote, staticCreds("token"))

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return remote.calls.Load() == 1 }, time.Second, time.Millisecond)

	s.Reset()
	close(remote.gate)

	require.ErrorIs(t, <-done, ErrDiscarded)
	assert.Empty(t, s.Snapshot())
}

func TestCancelledCallerDoesNotFailSharedRefresh(t *testing.T) {
	remote := &listStore{tasks: []task.Task{{ID: 1}}, gate: make(chan struct{})}
	s := New(remote, staticCreds("token"))

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() { errA <- s.Refresh(ctxA) }()
	require.Eventually(t, func() bool { return remote.calls.Load() == 1 }, time.Second, time.Millisecond)

	errB := make(chan error, 1)
	go func() { errB <- s.Refresh(context.Background()) }()
	time.Sleep(50 * time.Millisecond)
	cancelA()
	close(remote.gate)

	require.ErrorIs(t, <-errA, context.Canceled)
	require.NoError(t, <-errB)
	assert.Equal(t, int32(1), remote.calls.Load())
	assert.Equal(t, 1, s.Len())
}

func TestCancelledRefreshLeavesSnapshot(t *testing.T) {
	remote := &listStore{tasks: []task.Task{{ID: 1}, {ID: 2}}, gate: make(chan struct{})}
	s := New(remote, staticCreds("token"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Refresh(ctx) }()
	require.Eventually(t, func() bool { return remote.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	close(remote.gate)

	require.ErrorIs(t, <-done, ErrDiscarded)
	assert.Zero(t, s.Len())
}

func TestApplyCreateInsertsAtFront(t *testing.T) {
	s := seeded(t, task.Task{ID: 1, Title: "old"})
	s.ApplyCreate(task.Task{ID: 2, Title: "new"})

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(2), snap[0].ID)
	assert.Equal(t, int64(1), snap[1].ID)
}

func TestApplyUpdate(t *testing.T) {
	s := seeded(t, task.Task{ID: 1, Title: "a", Priority: task.PriorityLow, Category: task.Ptr("home")})

	s.ApplyUpdate(1, task.Patch{Title: task.Ptr("b"), Category: task.Null()})

	got, ok := s.Find(1)
	require.True(t, ok)
	assert.Equal(t, "b", got.Title)
	assert.Nil(t, got.Category)
	assert.Equal(t, task.PriorityLow, got.Priority)
}

func TestApplyOnMissingIDIsNoop(t *testing.T) {
	s := seeded(t, task.Task{ID: 1, Title: "a"}, task.Task{ID: 2, Title: "b"})
	before := s.Snapshot()

	s.ApplyUpdate(42, task.Patch{Title: task.Ptr("x")})
	s.ApplyDelete(42)
	s.ApplyToggle(42)

	assert.Equal(t, before, s.Snapshot())
}

func TestApplyDelete(t *testing.T) {
	s := seeded(t, task.Task{ID: 3}, task.Task{ID: 2}, task.Task{ID: 1})
	s.ApplyDelete(2)

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(3), snap[0].ID)
	assert.Equal(t, int64(1), snap[1].ID)
}

func TestApplyToggleTwiceRestores(t *testing.T) {
	orig := task.Task{ID: 1, Title: "a", Priority: task.PriorityHigh, DueDate: task.Ptr("2024-05-01")}
	s := seeded(t, orig)

	s.ApplyToggle(1)
	got, _ := s.Find(1)
	assert.True(t, got.Completed)

	s.ApplyToggle(1)
	got, _ = s.Find(1)
	assert.Equal(t, orig, got)
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	s := seeded(t, task.Task{ID: 1, Title: "a", Category: task.Ptr("work")})

	snap := s.Snapshot()
	snap[0].Title = "changed"
	*snap[0].Category = "changed"

	got, _ := s.Find(1)
	assert.Equal(t, "a", got.Title)
	assert.Equal(t, "work", *got.Category)
}

func TestCategoriesFirstSeenOrder(t *testing.T) {
	s := seeded(t,
		task.Task{ID: 4, Category: task.Ptr("work")},
		task.Task{ID: 3},
		task.Task{ID: 2, Category: task.Ptr("home")},
		task.Task{ID: 1, Category: task.Ptr("work")},
	)
	assert.Equal(t, []string{"work", "home"}, s.Categories())
}

func TestReset(t *testing.T) {
	s := seeded(t, task.Task{ID: 1})
	s.Reset()
	assert.Empty(t, s.Snapshot())
	assert.Zero(t, s.Len())
}
