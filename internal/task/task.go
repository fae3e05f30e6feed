package task

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage layout of a due date.
const DateLayout = "2006-01-02"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every valid priority, highest first.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities for sorting. Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: priority %q must be one of low, medium, high", ErrValidation, s)
	}
	return p, nil
}

type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Priority    Priority  `json:"priority"`
	Category    *string   `json:"category"`
	DueDate     *string   `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// CategoryName returns the category or "" when the task has none.
func (t Task) CategoryName() string {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}

// Due returns the parsed due date. ok is false when the task has no due
// date or it cannot be parsed.
func (t Task) Due() (time.Time, bool) {
	if t.DueDate == nil {
		return time.Time{}, false
	}
	return ParseDate(*t.DueDate)
}

// Normalize turns blank optional fields into nulls and due timestamps into
// plain dates. A task fetched from a store always passes through here
// before it enters a snapshot.
func (t Task) Normalize() Task {
	t.Category = nullIfBlank(t.Category)
	t.DueDate = canonicalDate(t.DueDate)
	return t
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	t.Category = cloneString(t.Category)
	t.DueDate = cloneString(t.DueDate)
	return t
}

// Apply returns t with every field set in p replaced.
func (t Task) Apply(p Patch) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category.Set {
		t.Category = p.Category.Clone()
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Clone()
	}
	return t
}

// CreateInput is what a caller supplies to create a task. The store assigns
// the id, the creation time and the completed flag.
type CreateInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority,omitempty"`
	Category    *string  `json:"category,omitempty"`
	DueDate     *string  `json:"due_date,omitempty"`
}

// Validate rejects an empty title and a priority outside the enum. Nothing
// else is checked on the client; the store has the final word.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return fmt.Errorf("%w: priority %q must be one of low, medium, high", ErrValidation, in.Priority)
	}
	return nil
}

// Patch is a partial update. Nil pointers and unset Optionals leave the
// corresponding field untouched.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Category    Optional  `json:"category,omitzero"`
	DueDate     Optional  `json:"due_date,omitzero"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && !p.Category.Set && !p.DueDate.Set
}

func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("%w: priority %q must be one of low, medium, high", ErrValidation, *p.Priority)
	}
	return nil
}

// Normalize puts p in the form the store persists: the title trimmed, a
// falsy due date or category cleared to null and a due timestamp cut to
// its date. A due date that does not parse is kept as is; the store
// rejects it.
func (p Patch) Normalize() Patch {
	if p.Title != nil {
		p.Title = Ptr(strings.TrimSpace(*p.Title))
	}
	if p.DueDate.Set {
		p.DueDate.Value = canonicalDate(p.DueDate.Value)
	}
	if p.Category.Set {
		p.Category.Value = nullIfBlank(p.Category.Value)
	}
	return p
}

// ParseDate accepts a plain date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// canonicalDate is nullIfBlank plus cutting a parseable date to DateLayout.
func canonicalDate(s *string) *string {
	s = nullIfBlank(s)
	if s == nil {
		return nil
	}
	if d, ok := ParseDate(*s); ok {
		return Ptr(d.Format(DateLayout))
	}
	return s
}

func nullIfBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
