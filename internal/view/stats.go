package view

import (
	"math"

	"taskdeck/internal/task"
)

type Stats struct {
	Total          int
	Completed      int
	CompletionRate int
	// Distribution always carries all three priorities.
	Distribution map[task.Priority]int
}

func Summarize(tasks []task.Task) Stats {
	s := Stats{
		Total: len(tasks),
		Distribution: map[task.Priority]int{
			task.PriorityHigh:   0,
			task.PriorityMedium: 0,
			task.PriorityLow:    0,
		},
	}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
		if _, ok := s.Distribution[t.Priority]; ok {
			s.Distribution[t.Priority]++
		}
	}
	s.CompletionRate = percent(s.Completed, s.Total)
	return s
}

// Share is the rounded percentage of all tasks carrying priority p.
func (s Stats) Share(p task.Priority) int {
	return percent(s.Distribution[p], s.Total)
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
