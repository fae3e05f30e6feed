package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"taskdeck/internal/collection"
	"taskdeck/internal/task"
	"taskdeck/internal/view"
)

func tasksCmd() *cobra.Command {
	var (
		local    bool
		asJSON   bool
		search   string
		priority string
		category string
		sortBy   string
		order    string
	)
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Print your tasks and statistics",
		Long: `Print the signed-in user's tasks through the same filters and sort the TUI uses.

Examples:
  taskdeck tasks --priority high
  taskdeck tasks --search rent --sort due_date --order asc
  taskdeck tasks --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			criteria := cfg.Criteria()
			criteria.Search = search
			criteria.Category = category
			if priority != "" {
				if criteria.Priority, err = task.ParsePriority(priority); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("sort") {
				if criteria.Field, err = view.ParseSortField(sortBy); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("order") {
				if criteria.Order, err = view.ParseSortOrder(order); err != nil {
					return err
				}
			}

			logger, closeLog, err := clientLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()
			c, err := openClient(cfg, logger, local)
			if err != nil {
				return err
			}
			defer c.close()

			if err := requireSession(cmd.Context(), c); err != nil {
				return err
			}
			tasks := collection.New(c.store, c.session)
			if err := tasks.Refresh(cmd.Context()); err != nil {
				return err
			}
			snapshot := tasks.Snapshot()
			listed := view.Apply(snapshot, criteria)
			stats := view.Summarize(snapshot)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), listed, stats)
			}
			return writeTable(cmd.OutOrStdout(), listed, stats)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "use the local database in-process instead of the API")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only tasks whose title or description contains this")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "only tasks with this priority (low, medium, high)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only tasks in this category")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by created_at, priority, due_date or title")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc")
	return cmd
}

type statsJSON struct {
	Total          int                   `json:"total"`
	Completed      int                   `json:"completed"`
	CompletionRate int                   `json:"completion_rate"`
	Distribution   map[task.Priority]int `json:"priority_distribution"`
}

func writeJSON(w io.Writer, tasks []task.Task, stats view.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Tasks []task.Task `json:"tasks"`
		Stats statsJSON   `json:"stats"`
	}{
		Tasks: tasks,
		Stats: statsJSON{
			Total:          stats.Total,
			Completed:      stats.Completed,
			CompletionRate: stats.CompletionRate,
			Distribution:   stats.Distribution,
		},
	})
}

func writeTable(w io.Writer, tasks []task.Task, stats view.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tTITLE\tCATEGORY\tDUE")
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = *t.DueDate
		}
		category := t.CategoryName()
		if category == "" {
			category = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, done, t.Priority, t.Title, category, due)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d tasks, %d completed (%d%%) • high %d%% • medium %d%% • low %d%%\n",
		stats.Total, stats.Completed, stats.CompletionRate,
		stats.Share(task.PriorityHigh), stats.Share(task.PriorityMedium), stats.Share(task.PriorityLow))
	return err
}
