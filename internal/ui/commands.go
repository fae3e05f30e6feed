package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/mutation"
	"taskdeck/internal/session"
)

// Results of background work carry the view generation they were started
// in; Update drops any that arrive after the view was torn down.

type sessionMsg struct {
	state session.State
}

type loginMsg struct {
	err error
}

type loggedOutMsg struct{}

type refreshedMsg struct {
	gen int
	err error
}

type mutationMsg struct {
	gen    int
	result mutation.Result
}

func (m Model) loginCmd(email, password string) tea.Cmd {
	sess, ctx := m.session, m.base
	return func() tea.Msg {
		return loginMsg{err: sess.Login(ctx, email, password)}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		sess.Logout()
		return loggedOutMsg{}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	tasks, ctx, gen := m.tasks, m.ctx, m.gen
	return func() tea.Msg {
		return refreshedMsg{gen: gen, err: tasks.Refresh(ctx)}
	}
}

func (m Model) execCmd(cmd mutation.Command) tea.Cmd {
	coord, ctx, gen := m.coord, m.ctx, m.gen
	return func() tea.Msg {
		return mutationMsg{gen: gen, result: coord.Execute(ctx, cmd)}
	}
}
