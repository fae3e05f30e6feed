// Package backend holds the store-side task rules: validation, defaulting
// and owner scoping. Both the HTTP API and the in-process adapter go through
// it, so the rules are identical for every transport.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskdeck/internal/storage"
	"taskdeck/internal/task"
)

type Repository interface {
	ListTasks(ctx context.Context, owner string) ([]task.Task, error)
	InsertTask(ctx context.Context, owner string, t task.Task) (task.Task, error)
	UpdateTask(ctx context.Context, owner string, id int64, p task.Patch) error
	DeleteTask(ctx context.Context, owner string, id int64) error
}

type Service struct {
	repo   Repository
	now    func() time.Time
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, now: time.Now, logger: logger}
}

func (s *Service) List(ctx context.Context, owner string) ([]task.Task, error) {
	tasks, err := s.repo.ListTasks(ctx, owner)
	if err != nil {
		return nil, s.storeErr("list", err)
	}
	return tasks, nil
}

// Create validates in, fills defaults and persists the task under owner.
func (s *Service) Create(ctx context.Context, owner string, in task.CreateInput) (task.Task, error) {
	if err := in.Validate(); err != nil {
		return task.Task{}, err
	}
	due, err := normalizeDue(in.DueDate)
	if err != nil {
		return task.Task{}, err
	}
	t := task.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    in.Priority,
		Category:    in.Category,
		DueDate:     due,
		CreatedAt:   s.now().UTC(),
	}
	if t.Priority == "" {
		t.Priority = task.PriorityMedium
	}
	t = t.Normalize()

	created, err := s.repo.InsertTask(ctx, owner, t)
	if err != nil {
		return task.Task{}, s.storeErr("create", err)
	}
	s.logger.Debug("task created", "owner", owner, "task_id", created.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, owner string, id int64, p task.Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.Normalize()
	if p.DueDate.Set {
		due, err := normalizeDue(p.DueDate.Value)
		if err != nil {
			return err
		}
		p.DueDate.Value = due
	}
	if err := s.repo.UpdateTask(ctx, owner, id, p); err != nil {
		return s.storeErr("update", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, owner string, id int64) error {
	if err := s.repo.DeleteTask(ctx, owner, id); err != nil {
		return s.storeErr("delete", err)
	}
	return nil
}

func (s *Service) storeErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, task.ErrNotFound)
	}
	s.logger.Error("task store failure", "op", op, "error", err)
	return fmt.Errorf("%s: %w: %w", op, task.ErrStore, err)
}

// normalizeDue stores due dates as plain dates. Blank means no due date.
func normalizeDue(due *string) (*string, error) {
	if due == nil || strings.TrimSpace(*due) == "" {
		return nil, nil
	}
	d, ok := task.ParseDate(*due)
	if !ok {
		return nil, fmt.Errorf("%w: due date %q is not a date", task.ErrValidation, *due)
	}
	return task.Ptr(d.Format(task.DateLayout)), nil
}
