package mutation

import (
	"strings"

	"taskdeck/internal/task"
)

type Mode int

const (
	Closed Mode = iota
	Adding
	Editing
)

func (m Mode) String() string {
	switch m {
	case Adding:
		return "add"
	case Editing:
		return "edit"
	}
	return "closed"
}

// Modal tracks the add/edit dialog. It is a value; every transition
// returns the next state.
type Modal struct {
	mode   Mode
	target task.Task
}

func (m Modal) Mode() Mode { return m.mode }

func (m Modal) IsOpen() bool { return m.mode != Closed }

// Target is the task being edited.
func (m Modal) Target() (task.Task, bool) {
	if m.mode != Editing {
		return task.Task{}, false
	}
	return m.target, true
}

func (m Modal) OpenAdd() Modal {
	return Modal{mode: Adding}
}

func (m Modal) OpenEdit(t task.Task) Modal {
	return Modal{mode: Editing, target: t.Clone()}
}

func (m Modal) Cancel() Modal {
	return Modal{}
}

// Settle closes the modal when r is the successful outcome of the command
// it was opened for. On failure it stays open so the input can be fixed.
func (m Modal) Settle(r Result) Modal {
	if !r.OK() {
		return m
	}
	switch cmd := r.Command.(type) {
	case AddTask:
		if m.mode == Adding {
			return Modal{}
		}
	case EditTask:
		if m.mode == Editing && cmd.ID == m.target.ID {
			return Modal{}
		}
	}
	return m
}

// Form returns the values the dialog starts with: blank for add, the
// target's fields for edit.
func (m Modal) Form() Form {
	if m.mode != Editing {
		return Form{Priority: string(task.PriorityMedium)}
	}
	t := m.target
	return Form{
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Category:    t.CategoryName(),
		DueDate:     deref(t.DueDate),
	}
}

// Form holds the dialog's raw text fields.
type Form struct {
	Title       string
	Description string
	Priority    string
	Category    string
	DueDate     string
}

func (f Form) CreateInput() task.CreateInput {
	in := task.CreateInput{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Priority:    task.Priority(strings.ToLower(strings.TrimSpace(f.Priority))),
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		in.Category = &c
	}
	if d := strings.TrimSpace(f.DueDate); d != "" {
		in.DueDate = &d
	}
	return in
}

// Patch returns the fields of f that differ from orig.
func (f Form) Patch(orig task.Task) task.Patch {
	var p task.Patch
	if v := strings.TrimSpace(f.Title); v != orig.Title {
		p.Title = &v
	}
	if v := strings.TrimSpace(f.Description); v != orig.Description {
		p.Description = &v
	}
	if v := task.Priority(strings.ToLower(strings.TrimSpace(f.Priority))); v != orig.Priority {
		p.Priority = &v
	}
	if v := strings.TrimSpace(f.Category); v != orig.CategoryName() {
		p.Category = optional(v)
	}
	if v := strings.TrimSpace(f.DueDate); v != deref(orig.DueDate) {
		p.DueDate = optional(v)
	}
	return p
}

func optional(v string) task.Optional {
	if v == "" {
		return task.Null()
	}
	return task.Some(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
