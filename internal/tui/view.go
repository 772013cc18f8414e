package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/routinely/internal/store"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch {
	case m.state == StateConfirmDelete:
		content = m.viewConfirmDelete()
	case m.store.LoadState() == store.Failed:
		content = m.viewLoadError()
	case m.state == StateToday:
		content = docStyle.Render(m.today.View())
	case m.state == StateRoutines:
		content = docStyle.Render(m.routines.View())
	case m.state == StateHistory:
		content = docStyle.Render(m.history.View())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		m.viewStatusBar(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	active := m.state
	if active == StateConfirmDelete {
		active = m.previousState
	}
	var tabs []string
	for i, title := range tabTitles {
		if active == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatusBar() string {
	var parts []string
	if notices := m.store.Notices(); len(notices) > 0 {
		msg := notices[0].Message
		if len(notices) > 1 {
			msg += fmt.Sprintf(" (+%d more)", len(notices)-1)
		}
		parts = append(parts, noticeStyle.Render(msg))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if m.validationWarning != "" {
		parts = append(parts, noticeStyle.Render(m.validationWarning))
	}
	parts = append(parts, fmt.Sprintf("%d/%d done today", m.today.DoneCount(), m.today.Len()))
	return statusBarStyle.Render(" " + strings.Join(parts, "  •  "))
}

func (m Model) viewConfirmDelete() string {
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete %q and its reminders?", m.deleteTitle)),
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}

// viewLoadError replaces every tab while the last fetch has failed
func (m Model) viewLoadError() string {
	msg := "unknown error"
	if err := m.store.LoadErr(); err != nil {
		msg = err.Error()
	}
	return lipgloss.Place(m.width, m.height-4,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render("Could not load routines"),
			"",
			msg,
			"",
			"Press r to retry",
		),
	)
}
