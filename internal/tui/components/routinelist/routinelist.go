package routinelist

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/ledger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/recurrence"
	"github.com/julianstephens/routinely/internal/timeofday"
	"github.com/julianstephens/routinely/internal/utils"
)

type ToggleMsg struct {
	ID string
}

type PauseMsg struct {
	ID     string
	Status constants.Status
}

type DeleteMsg struct {
	ID    string
	Title string
}

type Item struct {
	Routine models.Routine
	Done    bool
	Pending bool
	loc     *time.Location
}

func (i Item) Title() string {
	mark := "[ ] "
	if i.Done {
		mark = "[x] "
	}
	title := mark + i.Routine.Title
	if i.Pending {
		title += " …"
	}
	return title
}

func (i Item) Description() string {
	parts := []string{
		utils.FormatClock(i.Routine.StartTime, i.loc) + "-" + utils.FormatClock(i.Routine.EndTime, i.loc),
		timeofday.Classify(i.Routine, i.loc).Label(),
		recurrence.Describe(i.Routine),
		string(i.Routine.Status),
	}
	if i.Routine.Category != "" {
		parts = append(parts, i.Routine.Category)
	}
	return strings.Join(parts, " | ")
}

func (i Item) FilterValue() string {
	return i.Routine.Title + " " + strings.Join(i.Routine.Tags, " ")
}

type KeyMap struct {
	Toggle key.Binding
	Pause  key.Binding
	Delete key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys("x", " "),
			key.WithHelp("x/space", "toggle done"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause/resume"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

// Model is a filterable routine list. Editing keys are only offered when
// the list was created with manage set.
type Model struct {
	list   list.Model
	keys   KeyMap
	manage bool
	empty  string
}

func New(title, empty string, manage bool, width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = title
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	keys := DefaultKeyMap()
	bindings := func() []key.Binding {
		if manage {
			return []key.Binding{keys.Toggle, keys.Pause, keys.Delete}
		}
		return []key.Binding{keys.Toggle}
	}
	l.AdditionalShortHelpKeys = bindings
	l.AdditionalFullHelpKeys = bindings

	return Model{list: l, keys: keys, manage: manage, empty: empty}
}

// SetRoutines replaces the items, keeping the cursor in range
func (m *Model) SetRoutines(routines []models.Routine, today models.Date, loc *time.Location, pending func(id string) bool) {
	items := make([]list.Item, len(routines))
	for i, r := range routines {
		items[i] = Item{
			Routine: r,
			Done:    ledger.CompletionFor(r, today),
			Pending: pending != nil && pending(r.ID),
			loc:     loc,
		}
	}
	m.list.SetItems(items)
}

// Filtering reports whether the filter input has focus
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Len() int {
	return len(m.list.Items())
}

func (m Model) DoneCount() int {
	n := 0
	for _, item := range m.list.Items() {
		if i, ok := item.(Item); ok && i.Done {
			n++
		}
	}
	return n
}

func (m Model) Selected() (models.Routine, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i.Routine, ok
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		i, ok := m.list.SelectedItem().(Item)
		switch {
		case key.Matches(msg, m.keys.Toggle) && ok:
			return m, func() tea.Msg { return ToggleMsg{ID: i.Routine.ID} }
		case key.Matches(msg, m.keys.Pause) && ok && m.manage:
			next := constants.StatusPaused
			if i.Routine.Status == constants.StatusPaused {
				next = constants.StatusActive
			}
			return m, func() tea.Msg { return PauseMsg{ID: i.Routine.ID, Status: next} }
		case key.Matches(msg, m.keys.Delete) && ok && m.manage:
			return m, func() tea.Msg { return DeleteMsg{ID: i.Routine.ID, Title: i.Routine.Title} }
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return fmt.Sprintf("\n  %s", m.empty)
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
