// Package mutation turns user intents into store calls and, once the store
// acknowledges them, into patches of the local collection.
package mutation

import (
	"errors"
	"fmt"

	"taskdeck/internal/task"
)

// ErrDiscarded marks a result whose caller went away before the store
// answered. The local collection was left untouched.
var ErrDiscarded = errors.New("mutation discarded")

// Command is one of AddTask, EditTask, DeleteTask or ToggleTask.
type Command interface {
	Name() string
	command()
}

type AddTask struct {
	Input task.CreateInput
}

type EditTask struct {
	ID    int64
	Patch task.Patch
}

type DeleteTask struct {
	ID int64
}

type ToggleTask struct {
	ID int64
}

func (AddTask) Name() string    { return "add" }
func (EditTask) Name() string   { return "edit" }
func (DeleteTask) Name() string { return "delete" }
func (ToggleTask) Name() string { return "toggle" }

func (AddTask) command()    {}
func (EditTask) command()   {}
func (DeleteTask) command() {}
func (ToggleTask) command() {}

// Result is the outcome of a command. Message is always set and suits a
// status line.
type Result struct {
	Command Command
	Task    task.Task
	Err     error
	Message string
}

func (r Result) OK() bool {
	return r.Err == nil
}

func succeeded(cmd Command, t task.Task, msg string) Result {
	return Result{Command: cmd, Task: t, Message: msg}
}

func failed(cmd Command, err error) Result {
	return Result{Command: cmd, Err: err, Message: failureMessage(cmd, err)}
}

func failureMessage(cmd Command, err error) string {
	switch {
	case errors.Is(err, ErrDiscarded):
		return "Discarded: the view was closed"
	case errors.Is(err, task.ErrAuth):
		return "Please sign in again"
	case errors.Is(err, task.ErrNotFound):
		return "Task no longer exists"
	}
	verb := map[string]string{
		"add":    "add",
		"edit":   "update",
		"delete": "delete",
		"toggle": "update",
	}[cmd.Name()]
	return fmt.Sprintf("Failed to %s task: %v", verb, err)
}
