package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"taskdeck/internal/config"
	"taskdeck/internal/task"
	"taskdeck/internal/view"
)

const barWidth = 20

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	faintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	doneStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	categoryStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	labelStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	focusedLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	panelStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	}
)

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("taskdeck"))
	if u, ok := m.session.CurrentUser(); ok && m.mode != modeLogin {
		b.WriteString(" " + faintStyle.Render(u.Email))
	}
	b.WriteString("\n\n")

	if m.mode == modeLogin {
		b.WriteString(m.renderLogin())
	} else {
		b.WriteString(m.renderFilterBar())
		b.WriteString("\n\n")
		b.WriteString(m.renderTaskList())
		b.WriteString("\n")
		if m.mode == modeForm {
			b.WriteString(m.renderForm())
		} else {
			b.WriteString(renderStats(view.Summarize(m.tasks.Snapshot())))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(faintStyle.Render(m.renderHelp()))
	return b.String()
}

func (m Model) renderLogin() string {
	var b strings.Builder
	b.WriteString("Sign in\n\n")
	labels := [2]string{"Email", "Password"}
	inputs := [2]string{m.login.email.View(), m.login.password.View()}
	for i := range labels {
		label := fmt.Sprintf("%-9s", labels[i])
		if i == m.login.focus {
			label = focusedLabelStyle.Render(label)
		} else {
			label = labelStyle.Render(label)
		}
		b.WriteString(label + " " + inputs[i] + "\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderFilterBar() string {
	search := m.criteria.Search
	if m.mode == modeSearch {
		search = m.search.View()
	} else if search == "" {
		search = "-"
	}
	priority := string(m.criteria.Priority)
	if priority == "" {
		priority = "all"
	}
	category := m.criteria.Category
	if category == "" {
		category = "all"
	}
	return fmt.Sprintf("Search: %s  Priority: %s  Category: %s  Sort: %s %s",
		search, priority, category, m.criteria.Field.Label(), orderArrow(m.criteria.Order))
}

func (m Model) renderTaskList() string {
	vis := m.visible()
	if len(vis) == 0 {
		if m.tasks.Len() == 0 {
			return faintStyle.Render(fmt.Sprintf("No tasks yet. Press '%s' to add one.", m.keys.Add))
		}
		return faintStyle.Render("No tasks match the current filters.")
	}
	cur := clampCursor(m.cursor, len(vis))
	var b strings.Builder
	for i, t := range vis {
		b.WriteString(renderRow(t, i == cur && m.mode != modeForm))
		b.WriteString("\n")
	}
	return b.String()
}

func renderRow(t task.Task, selected bool) string {
	cursor := " "
	if selected {
		cursor = cursorStyle.Render(">")
	}
	checkbox := "[ ]"
	title := t.Title
	if t.Completed {
		checkbox = "[x]"
		title = doneStyle.Render(title)
	}
	parts := []string{cursor, checkbox, priorityBadge(t.Priority), title}
	if c := t.CategoryName(); c != "" {
		parts = append(parts, categoryStyle.Render("#"+c))
	}
	if t.DueDate != nil {
		parts = append(parts, faintStyle.Render("due "+*t.DueDate))
	}
	return strings.Join(parts, " ")
}

func priorityBadge(p task.Priority) string {
	label := fmt.Sprintf("%-6s", p)
	if s, ok := priorityStyles[p]; ok {
		return s.Render(label)
	}
	return label
}

func (m Model) renderForm() string {
	heading := "New task"
	if t, ok := m.modal.Target(); ok {
		heading = fmt.Sprintf("Edit task #%d", t.ID)
	}
	body := heading + "\n\n" + strings.TrimRight(m.form.view(), "\n")
	return panelStyle.Render(body)
}

func renderStats(s view.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total %d • Completed %d • %d%% done\n", s.Total, s.Completed, s.CompletionRate)
	for _, p := range task.Priorities {
		share := s.Share(p)
		bar := priorityStyles[p].Render(renderBar(share, barWidth))
		fmt.Fprintf(&b, "%-6s %s %3d%% (%d)\n", p, bar, share, s.Distribution[p])
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// renderBar draws pct (0..100) as a bar of width cells.
func renderBar(pct, width int) string {
	pct = max(0, min(pct, 100))
	filled := pct * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m Model) renderHelp() string {
	switch {
	case m.mode == modeLogin:
		return "tab switch field • enter sign in • ctrl+c quit"
	case m.mode == modeForm:
		return "tab/shift+tab move • enter save • ctrl+s save from description • esc cancel"
	case m.mode == modeSearch:
		return "enter keep • esc clear"
	case m.confirmDel:
		return "y confirm • n cancel"
	}
	return renderHelp(m.keys)
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s edit • %s toggle • %s delete • %s search • %s priority • %s category • %s clear • %s sort • %s order • %s reload • %s sign out • %s quit",
		k.Up, k.Down, k.Add, k.Edit, keyName(k.Toggle), k.Delete, k.Search, k.FilterPriority,
		k.FilterCategory, k.ClearFilters, k.SortField, k.SortOrder, k.Refresh, k.Logout, k.Quit)
}

func keyName(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func orderArrow(o view.SortOrder) string {
	if o == view.Asc {
		return "↑"
	}
	return "↓"
}
