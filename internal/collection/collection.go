// Package collection holds the client's in-memory copy of the signed-in
// user's tasks and patches it after each acknowledged mutation.
package collection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"taskdeck/internal/remote"
	"taskdeck/internal/task"
)

// Credentials hands out the current credential. It is asked before every
// store call.
type Credentials interface {
	Credential(ctx context.Context) (string, error)
}

// ErrDiscarded marks a refresh whose caller went away, or whose collection
// was reset, before the list arrived. The snapshot was left untouched.
var ErrDiscarded = errors.New("refresh discarded")

type Store struct {
	remote remote.Store
	creds  Credentials

	group singleflight.Group

	mu    sync.RWMutex
	tasks []task.Task
	// epoch is bumped by Reset. A fetch only lands in the epoch it started in.
	epoch uint64
}

// fetch is one shared round trip. The first live caller commits it.
type fetch struct {
	epoch uint64
	tasks []task.Task
	once  sync.Once
	err   error
}

func New(r remote.Store, creds Credentials) *Store {
	return &Store{remote: r, creds: creds}
}

// Refresh replaces the snapshot with the store's current list. Concurrent
// callers share one round trip, which runs detached from any one caller's
// context. A caller whose ctx is done by the time the list arrives gets
// ErrDiscarded, and so does every caller if Reset ran in between.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	v, err, _ := s.group.Do("refresh-"+strconv.FormatUint(epoch, 10), func() (any, error) {
		detached := context.WithoutCancel(ctx)
		cred, err := s.creds.Credential(detached)
		if err != nil {
			return nil, err
		}
		fetched, err := s.remote.List(detached, cred)
		if err != nil {
			return nil, fmt.Errorf("refresh tasks: %w", err)
		}
		next := make([]task.Task, len(fetched))
		for i, t := range fetched {
			next[i] = t.Normalize()
		}
		return &fetch{epoch: epoch, tasks: next}, nil
	})
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%w: %w", ErrDiscarded, cerr)
	}
	if err != nil {
		return err
	}
	f := v.(*fetch)
	f.once.Do(func() { f.err = s.commit(f) })
	return f.err
}

func (s *Store) commit(f *fetch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != f.epoch {
		return fmt.Errorf("%w: collection was reset", ErrDiscarded)
	}
	s.tasks = f.tasks
	return nil
}

// ApplyCreate puts a newly created task at the front, where the store's
// newest-first order would place it.
func (s *Store) ApplyCreate(t task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = slices.Insert(s.tasks, 0, t.Normalize())
}

func (s *Store) ApplyUpdate(id int64, p task.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.tasks[i] = s.tasks[i].Apply(p).Normalize()
	}
}

func (s *Store) ApplyDelete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.tasks = slices.Delete(s.tasks, i, i+1)
	}
}

func (s *Store) ApplyToggle(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.tasks[i].Completed = !s.tasks[i].Completed
	}
}

// Snapshot returns a copy of the tasks in their current order.
func (s *Store) Snapshot() []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]task.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (s *Store) Find(id int64) (task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return task.Task{}, false
}

// Categories lists the distinct categories in first-seen order.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, t := range s.tasks {
		c := t.CategoryName()
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Reset empties the collection and orphans any refresh in flight.
func (s *Store) Reset() {
	s.mu.Lock()
	s.tasks = nil
	s.epoch++
	s.mu.Unlock()
}

func (s *Store) index(id int64) int {
	return slices.IndexFunc(s.tasks, func(t task.Task) bool { return t.ID == id })
}
