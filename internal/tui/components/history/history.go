package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/routinely/internal/ledger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/streak"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	missStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

// Model shows the last days of completions and the streaks of each routine
type Model struct {
	viewport viewport.Model
	days     int
}

func New(days, width, height int) Model {
	return Model{viewport: viewport.New(width, height), days: days}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
}

func (m *Model) SetRoutines(routines []models.Routine, today models.Date) {
	m.viewport.SetContent(Render(routines, today, m.days))
}

// Render draws one row per routine, oldest day on the left
func Render(routines []models.Routine, today models.Date, days int) string {
	if len(routines) == 0 {
		return "No routines to show."
	}

	width := 0
	for _, r := range routines {
		width = max(width, lipgloss.Width(r.Title))
	}
	label := titleStyle.Width(width + 2)

	var b strings.Builder
	header := make([]string, days)
	for i := range header {
		header[i] = today.AddDays(i - days + 1).Weekday().String()[:2]
	}
	b.WriteString(lipgloss.NewStyle().Width(width+2).Render("") + strings.Join(header, " ") + "\n")

	for _, r := range routines {
		cells := make([]string, 0, days)
		for _, entry := range ledger.HistoryFor(r, today, days) {
			if entry.Completed {
				cells = append(cells, doneStyle.Render("■ "))
			} else {
				cells = append(cells, missStyle.Render("· "))
			}
		}
		b.WriteString(label.Render(r.Title) + strings.Join(cells, " "))
		b.WriteString(statStyle.Render(fmt.Sprintf("  streak %d, best %d, %.0f%%",
			streak.Current(r, today), streak.Longest(r), ledger.CompletionRate(r, today, days)*100)))
		b.WriteString("\n")
	}
	return b.String()
}
