package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/routinely/internal/storage"
	"github.com/julianstephens/routinely/internal/store"
	"github.com/julianstephens/routinely/internal/tui/components/history"
	"github.com/julianstephens/routinely/internal/tui/components/routinelist"
	"github.com/julianstephens/routinely/internal/validation"
)

type SessionState int

const (
	StateToday SessionState = iota
	StateRoutines
	StateHistory
	StateConfirmDelete
)

var tabTitles = []string{"Today", "Routines", "History"}

type Model struct {
	store         *store.Store
	filter        storage.Filter
	state         SessionState
	previousState SessionState
	keys          KeyMap
	help          help.Model
	today         routinelist.Model
	routines      routinelist.Model
	history       history.Model
	quitting      bool
	width         int
	height        int

	// revision is the store revision the views were last built from
	revision          uint64
	status            string
	deleteID          string
	deleteTitle       string
	validationWarning string
}

func NewModel(s *store.Store, filter storage.Filter, historyDays int) Model {
	m := Model{
		store:    s,
		filter:   filter,
		state:    StateToday,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		today:    routinelist.New("Today", "Nothing due today.", false, 0, 0),
		routines: routinelist.New("Routines", "No routines yet. Add one with 'routinely add'.", true, 0, 0),
		history:  history.New(historyDays, 0, 0),
	}
	m.refresh()
	return m
}

func (m Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Tab, m.keys.Refresh, m.keys.Quit, m.keys.Help}
}

func (m Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}

func (m Model) Init() tea.Cmd {
	return nil
}

// refresh rebuilds every view from the store when its revision moved
func (m *Model) refresh() {
	rev := m.store.Revision()
	if rev == m.revision && m.revision != 0 {
		return
	}
	m.revision = rev

	today := m.store.Today()
	loc := m.store.Location()
	m.today.SetRoutines(m.store.Agenda(), today, loc, m.store.IsPending)
	m.routines.SetRoutines(m.store.Search(store.Query{SortBy: store.SortByStartTime}), today, loc, m.store.IsPending)
	m.history.SetRoutines(m.store.Tracked(), today)
	m.updateValidationStatus()
}

// updateValidationStatus checks today's schedule for conflicts
func (m *Model) updateValidationStatus() {
	today := m.store.Today()
	result := validation.New(m.store.Evaluator()).ValidateRoutines(m.store.All(), &today)
	if result.HasConflicts() {
		m.validationWarning = fmt.Sprintf("⚠ %d validation warning(s)", len(result.Conflicts))
	} else {
		m.validationWarning = ""
	}
}
