// Package view derives what the UI shows from a task snapshot: the filtered
// and sorted list, and aggregate statistics. Everything here is pure; inputs
// are never modified.
package view

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"taskdeck/internal/task"
)

// Apply filters tasks by c and then sorts the result.
func Apply(tasks []task.Task, c Criteria) []task.Task {
	return Sort(Filter(tasks, c), c.Field, c.Order)
}

// Filter returns, in input order, the tasks matching every active predicate
// of c. Sort fields of c are ignored.
func Filter(tasks []task.Task, c Criteria) []task.Task {
	search := strings.ToLower(c.Search)
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if c.Priority != "" && t.Priority != c.Priority {
			continue
		}
		if c.Category != "" && t.CategoryName() != c.Category {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Sort returns a stably sorted copy of tasks. SortCreatedAt, and any
// unknown field, keeps the input order.
func Sort(tasks []task.Task, field SortField, order SortOrder) []task.Task {
	out := make([]task.Task, len(tasks))
	copy(out, tasks)

	var cmp func(a, b task.Task) int
	switch field {
	case SortPriority:
		cmp = func(a, b task.Task) int {
			return a.Priority.Rank() - b.Priority.Rank()
		}
	case SortDueDate:
		cmp = func(a, b task.Task) int {
			return compareInt64(dueMillis(a), dueMillis(b))
		}
	case SortTitle:
		coll := collate.New(language.English)
		cmp = func(a, b task.Task) int {
			return coll.CompareString(a.Title, b.Title)
		}
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		if order == Asc {
			return cmp(out[i], out[j]) < 0
		}
		return cmp(out[j], out[i]) < 0
	})
	return out
}

// dueMillis treats a missing due date as the epoch, so undated tasks lead
// in ascending order and trail in descending order.
func dueMillis(t task.Task) int64 {
	d, ok := t.Due()
	if !ok {
		return 0
	}
	return d.UnixMilli()
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
