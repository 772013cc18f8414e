package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/routinely/internal/store"
	"github.com/julianstephens/routinely/internal/tui/components/routinelist"
)

type mutationDoneMsg struct {
	mutation *store.Mutation
}

type fetchedMsg struct {
	err error
}

// await reports back once a dispatched mutation settles
func await(m *store.Mutation) tea.Cmd {
	return func() tea.Msg {
		_ = m.Wait(context.Background())
		return mutationDoneMsg{mutation: m}
	}
}

func (m Model) dispatch(mutation *store.Mutation, err error) (Model, tea.Cmd) {
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = ""
	m.refresh()
	return m, await(mutation)
}

func (m Model) filtering() bool {
	switch m.state {
	case StateToday:
		return m.today.Filtering()
	case StateRoutines:
		return m.routines.Filtering()
	}
	return false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h, v := docStyle.GetFrameSize()
		height := msg.Height - v - 4
		m.today.SetSize(msg.Width-h, height)
		m.routines.SetSize(msg.Width-h, height)
		m.history.SetSize(msg.Width-h, height)
		return m, nil

	case mutationDoneMsg:
		// failures surface as store notices
		if msg.mutation.Err() == nil {
			m.status = ""
		}
		m.refresh()
		return m, nil

	case fetchedMsg:
		// a failed fetch renders as a full page from the store's load error
		m.status = ""
		if msg.err == nil {
			m.status = "Refreshed"
		}
		m.refresh()
		return m, nil

	case routinelist.ToggleMsg:
		mutation, err := m.store.ToggleCompletion(ctx, msg.ID, m.store.Today())
		return m.dispatch(mutation, err)

	case routinelist.PauseMsg:
		mutation, err := m.store.SetStatus(ctx, msg.ID, msg.Status)
		return m.dispatch(mutation, err)

	case routinelist.DeleteMsg:
		m.previousState = m.state
		m.state = StateConfirmDelete
		m.deleteID, m.deleteTitle = msg.ID, msg.Title
		return m, nil

	case tea.KeyMsg:
		if m.state == StateConfirmDelete {
			switch {
			case key.Matches(msg, m.keys.Confirm):
				m.state = m.previousState
				mutation, err := m.store.Delete(ctx, m.deleteID)
				return m.dispatch(mutation, err)
			case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
				m.state = m.previousState
			}
			return m, nil
		}
		if m.filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + SessionState(len(tabTitles))) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			s, filter := m.store, m.filter
			return m, func() tea.Msg {
				return fetchedMsg{err: s.Fetch(context.Background(), filter)}
			}
		case key.Matches(msg, m.keys.Dismiss):
			if notices := m.store.Notices(); len(notices) > 0 {
				m.store.Dismiss(notices[0].ID)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateToday:
		m.today, cmd = m.today.Update(msg)
	case StateRoutines:
		m.routines, cmd = m.routines.Update(msg)
	case StateHistory:
		m.history, cmd = m.history.Update(msg)
	}
	return m, cmd
}
