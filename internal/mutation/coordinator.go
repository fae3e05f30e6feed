package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"taskdeck/internal/collection"
	"taskdeck/internal/remote"
	"taskdeck/internal/task"
)

// Coordinator runs commands against the store and patches the collection
// after each acknowledgment. It never changes the collection on failure.
type Coordinator struct {
	store  remote.Store
	tasks  *collection.Store
	creds  collection.Credentials
	logger *slog.Logger
}

func New(store remote.Store, tasks *collection.Store, creds collection.Credentials, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: store, tasks: tasks, creds: creds, logger: logger}
}

// Execute runs cmd. The store call itself is not cancelled with ctx; if ctx
// is done by the time the store answers, the answer is dropped and the
// result carries ErrDiscarded.
func (c *Coordinator) Execute(ctx context.Context, cmd Command) Result {
	if cmd == nil {
		return Result{Err: fmt.Errorf("%w: no command", task.ErrValidation), Message: "Nothing to do"}
	}
	var r Result
	switch cmd := cmd.(type) {
	case AddTask:
		r = c.add(ctx, cmd)
	case EditTask:
		r = c.edit(ctx, cmd)
	case DeleteTask:
		r = c.delete(ctx, cmd)
	case ToggleTask:
		r = c.toggle(ctx, cmd)
	default:
		r = failed(cmd, fmt.Errorf("%w: unknown command %T", task.ErrValidation, cmd))
	}
	c.log(r)
	return r
}

func (c *Coordinator) Add(ctx context.Context, in task.CreateInput) Result {
	return c.Execute(ctx, AddTask{Input: in})
}

func (c *Coordinator) Edit(ctx context.Context, id int64, p task.Patch) Result {
	return c.Execute(ctx, EditTask{ID: id, Patch: p})
}

func (c *Coordinator) Delete(ctx context.Context, id int64) Result {
	return c.Execute(ctx, DeleteTask{ID: id})
}

func (c *Coordinator) Toggle(ctx context.Context, id int64) Result {
	return c.Execute(ctx, ToggleTask{ID: id})
}

func (c *Coordinator) add(ctx context.Context, cmd AddTask) Result {
	if err := cmd.Input.Validate(); err != nil {
		return failed(cmd, err)
	}
	cred, err := c.creds.Credential(ctx)
	if err != nil {
		return failed(cmd, err)
	}
	created, err := c.store.Create(context.WithoutCancel(ctx), cred, cmd.Input)
	if err != nil {
		return failed(cmd, err)
	}
	if err := discarded(ctx); err != nil {
		return failed(cmd, err)
	}
	c.tasks.ApplyCreate(created)
	return succeeded(cmd, created.Normalize(), "Task added successfully!")
}

func (c *Coordinator) edit(ctx context.Context, cmd EditTask) Result {
	p := cmd.Patch.Normalize()
	if err := p.Validate(); err != nil {
		return failed(cmd, err)
	}
	cred, err := c.creds.Credential(ctx)
	if err != nil {
		return failed(cmd, err)
	}
	if err := c.store.Update(context.WithoutCancel(ctx), cred, cmd.ID, p); err != nil {
		return failed(cmd, err)
	}
	if err := discarded(ctx); err != nil {
		return failed(cmd, err)
	}
	c.tasks.ApplyUpdate(cmd.ID, p)
	updated, _ := c.tasks.Find(cmd.ID)
	return succeeded(cmd, updated, "Task updated successfully!")
}

// delete treats a task already gone from the store as deleted.
func (c *Coordinator) delete(ctx context.Context, cmd DeleteTask) Result {
	cred, err := c.creds.Credential(ctx)
	if err != nil {
		return failed(cmd, err)
	}
	err = c.store.Delete(context.WithoutCancel(ctx), cred, cmd.ID)
	if err != nil && !errors.Is(err, task.ErrNotFound) {
		return failed(cmd, err)
	}
	if err != nil {
		c.logger.Info("task already deleted remotely", "task_id", cmd.ID)
	}
	if err := discarded(ctx); err != nil {
		return failed(cmd, err)
	}
	gone, _ := c.tasks.Find(cmd.ID)
	c.tasks.ApplyDelete(cmd.ID)
	return succeeded(cmd, gone, "Task deleted successfully!")
}

func (c *Coordinator) toggle(ctx context.Context, cmd ToggleTask) Result {
	current, ok := c.tasks.Find(cmd.ID)
	if !ok {
		return failed(cmd, fmt.Errorf("%w: id %d", task.ErrNotFound, cmd.ID))
	}
	cred, err := c.creds.Credential(ctx)
	if err != nil {
		return failed(cmd, err)
	}
	p := task.Patch{Completed: task.Ptr(!current.Completed)}
	if err := c.store.Update(context.WithoutCancel(ctx), cred, cmd.ID, p); err != nil {
		return failed(cmd, err)
	}
	if err := discarded(ctx); err != nil {
		return failed(cmd, err)
	}
	c.tasks.ApplyToggle(cmd.ID)
	current.Completed = !current.Completed
	msg := "Task marked as pending"
	if current.Completed {
		msg = "Task marked as completed"
	}
	return succeeded(cmd, current, msg)
}

func (c *Coordinator) log(r Result) {
	attrs := []any{"op", r.Command.Name()}
	if r.Task.ID != 0 {
		attrs = append(attrs, "task_id", r.Task.ID)
	}
	switch {
	case r.Err == nil:
		c.logger.Info("mutation applied", attrs...)
	case errors.Is(r.Err, ErrDiscarded), errors.Is(r.Err, task.ErrValidation):
		c.logger.Info("mutation not applied", append(attrs, "error", r.Err)...)
	default:
		c.logger.Warn("mutation failed", append(attrs, "kind", task.Kind(r.Err), "error", r.Err)...)
	}
}

func discarded(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDiscarded, err)
	}
	return nil
}
