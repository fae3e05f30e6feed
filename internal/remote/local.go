package remote

import (
	"context"
	"errors"
	"fmt"

	"taskdeck/internal/auth"
	"taskdeck/internal/task"
)

// TaskService is the owner-scoped store behind Local, normally a
// *backend.Service.
type TaskService interface {
	List(ctx context.Context, owner string) ([]task.Task, error)
	Create(ctx context.Context, owner string, in task.CreateInput) (task.Task, error)
	Update(ctx context.Context, owner string, id int64, p task.Patch) error
	Delete(ctx context.Context, owner string, id int64) error
}

// Local serves the store in-process. The credential is resolved on every
// call, exactly as the HTTP API does.
type Local struct {
	auth  *auth.Service
	tasks TaskService
}

func NewLocal(a *auth.Service, tasks TaskService) *Local {
	return &Local{auth: a, tasks: tasks}
}

func (l *Local) List(ctx context.Context, credential string) ([]task.Task, error) {
	id, err := l.auth.Resolve(ctx, credential)
	if err != nil {
		return nil, err
	}
	return l.tasks.List(ctx, id.ID)
}

func (l *Local) Create(ctx context.Context, credential string, in task.CreateInput) (task.Task, error) {
	id, err := l.auth.Resolve(ctx, credential)
	if err != nil {
		return task.Task{}, err
	}
	return l.tasks.Create(ctx, id.ID, in)
}

func (l *Local) Update(ctx context.Context, credential string, taskID int64, p task.Patch) error {
	id, err := l.auth.Resolve(ctx, credential)
	if err != nil {
		return err
	}
	return l.tasks.Update(ctx, id.ID, taskID, p)
}

func (l *Local) Delete(ctx context.Context, credential string, taskID int64) error {
	id, err := l.auth.Resolve(ctx, credential)
	if err != nil {
		return err
	}
	return l.tasks.Delete(ctx, id.ID, taskID)
}

func (l *Local) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	pair, err := l.auth.Login(ctx, email, password)
	return pair, authErr(err)
}

func (l *Local) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	pair, err := l.auth.Refresh(ctx, refreshToken)
	return pair, authErr(err)
}

func (l *Local) CurrentUser(ctx context.Context, credential string) (auth.Identity, error) {
	id, err := l.auth.Resolve(ctx, credential)
	if err != nil {
		return auth.Identity{}, err
	}
	return l.auth.User(ctx, id.ID)
}

func authErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return fmt.Errorf("%w: %w", task.ErrAuth, err)
	default:
		return fmt.Errorf("%w: %w", task.ErrStore, err)
	}
}
