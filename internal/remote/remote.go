// Package remote is the boundary between the client-side task pipeline and
// the store that persists tasks. Every operation is scoped to the identity
// behind the credential it is given; callers never filter by owner.
package remote

import (
	"context"

	"taskdeck/internal/auth"
	"taskdeck/internal/task"
)

// Store is the remote task store as seen by the client.
//
// Errors wrap task.ErrAuth for a missing, malformed or expired credential,
// task.ErrValidation for input the store rejects, task.ErrNotFound for a
// target the identity does not own, and task.ErrStore otherwise.
type Store interface {
	// List returns the identity's tasks, newest first.
	List(ctx context.Context, credential string) ([]task.Task, error)
	// Create persists in and returns the stored task with its id and
	// creation time.
	Create(ctx context.Context, credential string, in task.CreateInput) (task.Task, error)
	Update(ctx context.Context, credential string, id int64, p task.Patch) error
	Delete(ctx context.Context, credential string, id int64) error
}

// Authenticator signs users in and out of a store. session.Manager drives
// it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	CurrentUser(ctx context.Context, credential string) (auth.Identity, error)
}

var (
	_ Store         = (*Client)(nil)
	_ Authenticator = (*Client)(nil)
	_ Store         = (*Local)(nil)
	_ Authenticator = (*Local)(nil)
)
