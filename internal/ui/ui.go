package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/collection"
	"taskdeck/internal/config"
	"taskdeck/internal/mutation"
	"taskdeck/internal/session"
	"taskdeck/internal/task"
	"taskdeck/internal/view"
)

type mode int

const (
	modeLogin mode = iota
	modeList
	modeSearch
	modeForm
)

type Options struct {
	Session     *session.Manager
	Tasks       *collection.Store
	Coordinator *mutation.Coordinator
	Keys        config.Keymap
	Criteria    view.Criteria
	Logger      *slog.Logger
}

type Model struct {
	session *session.Manager
	tasks   *collection.Store
	coord   *mutation.Coordinator
	keys    config.Keymap
	logger  *slog.Logger

	mode       mode
	criteria   view.Criteria
	cursor     int
	status     string
	busy       bool
	confirmDel bool
	pendingDel *task.Task
	width      int

	login  loginForm
	search textinput.Model
	modal  mutation.Modal
	form   taskForm

	// base outlives sign-outs; ctx is cancelled at each one and gen bumped.
	base   context.Context
	ctx    context.Context
	cancel context.CancelFunc
	gen    int
}

func Run(ctx context.Context, opts Options) error {
	m := New(ctx, opts)
	program := tea.NewProgram(m, tea.WithAltScreen())
	unsubscribe := opts.Session.Subscribe(func(s session.State) {
		program.Send(sessionMsg{state: s})
	})
	defer unsubscribe()

	final, err := program.Run()
	if fm, ok := final.(Model); ok {
		fm.cancel()
	}
	return err
}

func New(ctx context.Context, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	search := textinput.New()
	search.Placeholder = "search title or description"
	search.Prompt = "/ "
	search.CharLimit = 128

	m := Model{
		session:  opts.Session,
		tasks:    opts.Tasks,
		coord:    opts.Coordinator,
		keys:     opts.Keys,
		logger:   logger,
		criteria: opts.Criteria,
		login:    newLoginForm(),
		search:   search,
		form:     newTaskForm(),
		base:     ctx,
	}
	m.ctx, m.cancel = context.WithCancel(ctx)

	if u, ok := m.session.CurrentUser(); ok {
		m.mode = modeList
		m.status = "Signed in as " + u.Email
	} else {
		m.mode = modeLogin
		m.status = "Sign in to see your tasks"
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.mode == modeList {
		return m.refreshCmd()
	}
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.form = m.form.setWidth(msg.Width)
		m.search.Width = max(msg.Width-10, 10)
		return m, nil
	case sessionMsg:
		return m.sessionChanged(msg.state)
	case loggedOutMsg:
		if m.mode != modeLogin {
			return m.signedOut("Signed out"), nil
		}
		return m, nil
	case loginMsg:
		m.busy = false
		if msg.err != nil {
			m.status = loginFailure(msg.err)
			m.logger.Info("sign-in failed", "error", msg.err)
			return m, nil
		}
		return m.signedIn()
	case refreshedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m.refreshed(msg.err)
	case mutationMsg:
		if msg.gen != m.gen {
			m.logger.Debug("dropping stale result", "op", msg.result.Command.Name())
			return m, nil
		}
		return m.settle(msg.result), nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch {
		case m.mode == modeLogin:
			return m.updateLogin(msg)
		case m.mode == modeForm:
			return m.updateForm(msg)
		case m.mode == modeSearch:
			return m.updateSearch(msg)
		case m.confirmDel:
			return m.updateDeleteConfirm(msg.String())
		}
		return m.updateList(msg.String())
	}
	return m.forward(msg)
}

// forward hands everything else (cursor blinks) to the focused input.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case modeLogin:
		m.login, cmd = m.login.update(msg)
	case modeForm:
		m.form, cmd = m.form.update(msg)
	case modeSearch:
		m.search, cmd = m.search.Update(msg)
	}
	return m, cmd
}

func (m Model) sessionChanged(s session.State) (tea.Model, tea.Cmd) {
	switch {
	case !s.SignedIn && m.mode != modeLogin:
		return m.signedOut("Your session ended, please sign in again"), nil
	case s.SignedIn && m.mode == modeLogin && !m.busy:
		return m.signedIn()
	}
	return m, nil
}

func (m Model) signedIn() (tea.Model, tea.Cmd) {
	m.mode = modeList
	m.login = m.login.reset()
	m.login.email.Blur()
	if u, ok := m.session.CurrentUser(); ok {
		m.status = "Signed in as " + u.Email
	}
	return m, m.refreshCmd()
}

// signedOut tears the list view down. Work started before this point
// resolves against a cancelled context and an old generation.
func (m Model) signedOut(status string) Model {
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(m.base)
	m.gen++
	m.tasks.Reset()
	m.mode = modeLogin
	m.modal = m.modal.Cancel()
	m.form = m.form.blur()
	m.confirmDel = false
	m.pendingDel = nil
	m.cursor = 0
	m.busy = false
	m.login = m.login.reset()
	m.status = status
	return m
}

func (m Model) refreshed(err error) (tea.Model, tea.Cmd) {
	if err != nil {
		if errors.Is(err, collection.ErrDiscarded) {
			return m, nil
		}
		if errors.Is(err, task.ErrAuth) {
			m.logger.Info("refresh rejected", "error", err)
			return m.signedOut("Your session ended, please sign in again"), nil
		}
		m.logger.Warn("refresh failed", "kind", task.Kind(err), "error", err)
		m.status = fmt.Sprintf("Failed to load tasks: %v", err)
		return m, nil
	}
	m.cursor = clampCursor(m.cursor, len(m.visible()))
	m.status = fmt.Sprintf("Loaded %d tasks", m.tasks.Len())
	return m, nil
}

func (m Model) settle(r mutation.Result) Model {
	m.status = r.Message
	if m.modal.IsOpen() {
		m.form.submitting = false
		m.modal = m.modal.Settle(r)
		if !m.modal.IsOpen() {
			m.mode = modeList
			m.form = m.form.blur()
		}
	}
	vis := m.visible()
	if r.OK() && r.Task.ID != 0 {
		if i := slices.IndexFunc(vis, func(t task.Task) bool { return t.ID == r.Task.ID }); i >= 0 {
			m.cursor = i
		}
	}
	m.cursor = clampCursor(m.cursor, len(vis))
	return m
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		var cmd tea.Cmd
		m.login, cmd = m.login.focusOn(m.login.focus + 1)
		return m, cmd
	case m.keys.Confirm, "enter":
		if m.login.focus == 0 {
			var cmd tea.Cmd
			m.login, cmd = m.login.focusOn(1)
			return m, cmd
		}
		if m.busy {
			return m, nil
		}
		email := strings.TrimSpace(m.login.email.Value())
		password := m.login.password.Value()
		if email == "" || password == "" {
			m.status = "Email and password are required"
			return m, nil
		}
		m.busy = true
		m.status = "Signing in…"
		return m, m.loginCmd(email, password)
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.update(msg)
	return m, cmd
}

func (m Model) updateList(key string) (tea.Model, tea.Cmd) {
	vis := m.visible()
	switch key {
	case m.keys.Quit:
		return m, tea.Quit
	case m.keys.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(vis))
	case m.keys.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(vis))
	case m.keys.Add:
		return m.openForm(m.modal.OpenAdd(), "New task: tab to move, enter to save, esc to cancel")
	case m.keys.Edit:
		t, ok := m.selected(vis)
		if !ok {
			m.status = "No tasks to edit"
			return m, nil
		}
		return m.openForm(m.modal.OpenEdit(t), "Editing task: tab to move, enter to save, esc to cancel")
	case m.keys.Toggle:
		t, ok := m.selected(vis)
		if !ok {
			return m, nil
		}
		return m, m.execCmd(mutation.ToggleTask{ID: t.ID})
	case m.keys.Delete:
		t, ok := m.selected(vis)
		if !ok {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete %q? y/n", t.Title)
	case m.keys.Search:
		m.mode = modeSearch
		m.search.SetValue(m.criteria.Search)
		m.status = "Type to filter, enter to keep, esc to clear"
		return m, m.search.Focus()
	case m.keys.FilterPriority:
		m.criteria.Priority = nextPriority(m.criteria.Priority)
		m.cursor = 0
	case m.keys.FilterCategory:
		m.criteria.Category = nextCategory(m.tasks.Categories(), m.criteria.Category)
		m.cursor = 0
	case m.keys.ClearFilters:
		m.criteria.Search, m.criteria.Priority, m.criteria.Category = "", "", ""
		m.search.SetValue("")
		m.cursor = 0
		m.status = "Filters cleared"
	case m.keys.SortField:
		m.criteria.Field = m.criteria.Field.Next()
		m.status = "Sorted by " + m.criteria.Field.Label()
	case m.keys.SortOrder:
		m.criteria.Order = m.criteria.Order.Flip()
		m.status = "Sorted by " + m.criteria.Field.Label() + " " + orderArrow(m.criteria.Order)
	case m.keys.Refresh:
		m.status = "Refreshing…"
		return m, m.refreshCmd()
	case m.keys.Logout:
		m.status = "Signing out…"
		return m, m.logoutCmd()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case m.keys.Cancel, "esc":
		m.search.SetValue("")
		m.criteria.Search = ""
		m.search.Blur()
		m.mode = modeList
		m.status = "Search cleared"
		return m, nil
	case m.keys.Confirm, "enter":
		m.search.Blur()
		m.mode = modeList
		m.status = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.criteria.Search = m.search.Value()
	m.cursor = clampCursor(m.cursor, len(m.visible()))
	return m, cmd
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		target := m.pendingDel
		m.confirmDel = false
		m.pendingDel = nil
		if target == nil {
			m.status = "Nothing to delete"
			return m, nil
		}
		m.status = "Deleting…"
		return m, m.execCmd(mutation.DeleteTask{ID: target.ID})
	}
	return m, nil
}

func (m Model) openForm(modal mutation.Modal, status string) (tea.Model, tea.Cmd) {
	m.modal = modal
	m.mode = modeForm
	m.status = status
	var cmd tea.Cmd
	m.form, cmd = m.form.load(modal.Form())
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch key := msg.String(); key {
	case m.keys.Cancel, "esc":
		m.modal = m.modal.Cancel()
		m.form = m.form.blur()
		m.mode = modeList
		m.status = "Cancelled"
		return m, nil
	case m.keys.NextField, "tab":
		m.form, cmd = m.form.focusOn(m.form.focus + 1)
		return m, cmd
	case "shift+tab":
		m.form, cmd = m.form.focusOn(m.form.focus - 1)
		return m, cmd
	case "ctrl+s":
		return m.submitForm()
	case m.keys.Confirm, "enter":
		if m.form.focus != fieldDescription {
			return m.submitForm()
		}
	}
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	if m.form.submitting {
		return m, nil
	}
	values := m.form.values()
	var cmd mutation.Command
	switch m.modal.Mode() {
	case mutation.Adding:
		cmd = mutation.AddTask{Input: values.CreateInput()}
	case mutation.Editing:
		target, _ := m.modal.Target()
		p := values.Patch(target)
		if p.Empty() {
			m.modal = m.modal.Cancel()
			m.form = m.form.blur()
			m.mode = modeList
			m.status = "No changes"
			return m, nil
		}
		cmd = mutation.EditTask{ID: target.ID, Patch: p}
	default:
		return m, nil
	}
	m.form.submitting = true
	m.status = "Saving…"
	return m, m.execCmd(cmd)
}

// visible is the snapshot run through the current filters and sort.
func (m Model) visible() []task.Task {
	return view.Apply(m.tasks.Snapshot(), m.criteria)
}

func (m Model) selected(vis []task.Task) (task.Task, bool) {
	if len(vis) == 0 {
		return task.Task{}, false
	}
	return vis[clampCursor(m.cursor, len(vis))], true
}

func loginFailure(err error) string {
	if errors.Is(err, task.ErrAuth) {
		return "Invalid email or password"
	}
	return fmt.Sprintf("Sign-in failed: %v", err)
}

func nextPriority(p task.Priority) task.Priority {
	if p == "" {
		return task.Priorities[0]
	}
	i := slices.Index(task.Priorities, p)
	if i < 0 || i == len(task.Priorities)-1 {
		return ""
	}
	return task.Priorities[i+1]
}

func nextCategory(categories []string, current string) string {
	if current == "" {
		if len(categories) == 0 {
			return ""
		}
		return categories[0]
	}
	i := slices.Index(categories, current)
	if i < 0 || i == len(categories)-1 {
		return ""
	}
	return categories[i+1]
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}
