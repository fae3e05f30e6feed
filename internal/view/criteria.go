package view

import (
	"fmt"
	"strings"

	"taskdeck/internal/task"
)

type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortPriority  SortField = "priority"
	SortDueDate   SortField = "due_date"
	SortTitle     SortField = "title"
)

var sortFields = []SortField{SortCreatedAt, SortPriority, SortDueDate, SortTitle}

// Next cycles through the sort fields in menu order.
func (f SortField) Next() SortField {
	for i, v := range sortFields {
		if v == f {
			return sortFields[(i+1)%len(sortFields)]
		}
	}
	return SortCreatedAt
}

func (f SortField) Label() string {
	switch f {
	case SortPriority:
		return "Priority"
	case SortDueDate:
		return "Due Date"
	case SortTitle:
		return "Title"
	default:
		return "Created Date"
	}
}

func ParseSortField(s string) (SortField, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return SortCreatedAt, nil
	}
	for _, v := range sortFields {
		if v == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

func (o SortOrder) Flip() SortOrder {
	if o == Asc {
		return Desc
	}
	return Asc
}

func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, nil
	case Desc, "":
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// Criteria is the user's current filter and sort selection. The zero value
// matches everything and keeps the store's order.
type Criteria struct {
	Search   string
	Priority task.Priority
	Category string
	Field    SortField
	Order    SortOrder
}

func DefaultCriteria() Criteria {
	return Criteria{Field: SortCreatedAt, Order: Desc}
}
