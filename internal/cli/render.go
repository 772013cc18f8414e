package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/ledger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/recurrence"
	"github.com/julianstephens/routinely/internal/utils"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	statusStyles = map[constants.Status]lipgloss.Style{
		constants.StatusActive:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		constants.StatusPaused:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		constants.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		constants.StatusInactive:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
)

func statusLabel(s constants.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(string(s))
}

func window(r models.Routine, loc *time.Location) string {
	return utils.FormatClock(r.StartTime, loc) + "-" + utils.FormatClock(r.EndTime, loc)
}

// routineLine is the one-line summary used by list and today
func routineLine(r models.Routine, loc *time.Location, today models.Date) string {
	mark := "[ ]"
	if ledger.CompletionFor(r, today) {
		mark = doneStyle.Render("[x]")
	}
	line := fmt.Sprintf("%s %s  %s  %s  %s", mark, window(r, loc), r.Title,
		mutedStyle.Render("("+recurrence.Describe(r)+")"), statusLabel(r.Status))
	var extras []string
	if r.Category != "" {
		extras = append(extras, "category: "+r.Category)
	}
	if len(r.Tags) > 0 {
		extras = append(extras, "tags: "+strings.Join(r.Tags, ","))
	}
	if len(extras) > 0 {
		line += "  " + mutedStyle.Render(strings.Join(extras, " | "))
	}
	return line + "  " + mutedStyle.Render(r.ID)
}
