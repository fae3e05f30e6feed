package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/mutation"
)

const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldCategory
	fieldDue
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Title",
	"Description",
	"Priority",
	"Category",
	"Due date",
}

// taskForm is the add/edit dialog body. Which task it edits lives in
// mutation.Modal.
type taskForm struct {
	title      textinput.Model
	desc       textarea.Model
	priority   textinput.Model
	category   textinput.Model
	due        textinput.Model
	focus      int
	submitting bool
}

func newTaskForm() taskForm {
	f := taskForm{
		title:    newInput("What needs doing?", 256),
		priority: newInput("low, medium or high", 16),
		category: newInput("optional", 64),
		due:      newInput("YYYY-MM-DD, optional", 32),
	}
	f.desc = textarea.New()
	f.desc.Placeholder = "Details…"
	f.desc.CharLimit = 0
	f.desc.ShowLineNumbers = false
	f.desc.SetWidth(60)
	f.desc.SetHeight(4)
	return f
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 40
	ti.Prompt = ""
	return ti
}

func (f taskForm) load(v mutation.Form) (taskForm, tea.Cmd) {
	f.title.SetValue(v.Title)
	f.desc.SetValue(v.Description)
	f.priority.SetValue(v.Priority)
	f.category.SetValue(v.Category)
	f.due.SetValue(v.DueDate)
	f.submitting = false
	return f.focusOn(fieldTitle)
}

func (f taskForm) values() mutation.Form {
	return mutation.Form{
		Title:       f.title.Value(),
		Description: f.desc.Value(),
		Priority:    f.priority.Value(),
		Category:    f.category.Value(),
		DueDate:     f.due.Value(),
	}
}

func (f taskForm) focusOn(i int) (taskForm, tea.Cmd) {
	f = f.blur()
	f.focus = wrapIndex(i, fieldCount)
	var cmd tea.Cmd
	switch f.focus {
	case fieldTitle:
		cmd = f.title.Focus()
	case fieldDescription:
		cmd = f.desc.Focus()
	case fieldPriority:
		cmd = f.priority.Focus()
	case fieldCategory:
		cmd = f.category.Focus()
	case fieldDue:
		cmd = f.due.Focus()
	}
	return f, cmd
}

func (f taskForm) blur() taskForm {
	f.title.Blur()
	f.desc.Blur()
	f.priority.Blur()
	f.category.Blur()
	f.due.Blur()
	return f
}

func (f taskForm) update(msg tea.Msg) (taskForm, tea.Cmd) {
	var cmd tea.Cmd
	switch f.focus {
	case fieldTitle:
		f.title, cmd = f.title.Update(msg)
	case fieldDescription:
		f.desc, cmd = f.desc.Update(msg)
	case fieldPriority:
		f.priority, cmd = f.priority.Update(msg)
	case fieldCategory:
		f.category, cmd = f.category.Update(msg)
	case fieldDue:
		f.due, cmd = f.due.Update(msg)
	}
	return f, cmd
}

func (f taskForm) setWidth(w int) taskForm {
	w = max(w-24, 20)
	f.title.Width = w
	f.priority.Width = w
	f.category.Width = w
	f.due.Width = w
	f.desc.SetWidth(w)
	return f
}

func (f taskForm) view() string {
	rows := [fieldCount]string{
		f.title.View(),
		f.desc.View(),
		f.priority.View(),
		f.category.View(),
		f.due.View(),
	}
	var b strings.Builder
	for i, row := range rows {
		label := fmt.Sprintf("%-12s", fieldLabels[i])
		if i == f.focus {
			label = focusedLabelStyle.Render(label)
		} else {
			label = labelStyle.Render(label)
		}
		b.WriteString(label + " " + row + "\n")
	}
	return b.String()
}

// loginForm is the sign-in screen.
type loginForm struct {
	email    textinput.Model
	password textinput.Model
	focus    int
}

func newLoginForm() loginForm {
	f := loginForm{
		email:    newInput("you@example.com", 254),
		password: newInput("password", 72),
	}
	f.password.EchoMode = textinput.EchoPassword
	f.password.EchoCharacter = '•'
	f.email.Focus()
	return f
}

func (f loginForm) focusOn(i int) (loginForm, tea.Cmd) {
	f.focus = wrapIndex(i, 2)
	if f.focus == 0 {
		f.password.Blur()
		return f, f.email.Focus()
	}
	f.email.Blur()
	return f, f.password.Focus()
}

func (f loginForm) update(msg tea.Msg) (loginForm, tea.Cmd) {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}

// reset clears the password and returns focus to the email field.
func (f loginForm) reset() loginForm {
	f.password.SetValue("")
	f, _ = f.focusOn(0)
	return f
}
