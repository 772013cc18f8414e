package recurrence

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/utils"
)

// Predicate decides whether a custom-frequency routine is scheduled on a date.
type Predicate func(routine models.Routine, date models.Date) bool

// Evaluator decides on which calendar dates a routine is scheduled.
// Location is the single timezone used to turn a routine's StartTime into
// its biweekly anchor date; dates passed in are already calendar dates.
type Evaluator struct {
	Location     *time.Location
	BiweeklyMode constants.BiweeklyMode
	// Custom gates custom-frequency routines. When nil, custom routines are
	// eligible every day.
	Custom Predicate
}

// New creates an Evaluator using anchored biweekly gating.
func New(loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{
		Location:     loc,
		BiweeklyMode: constants.BiweeklyAnchored,
	}
}

// IsScheduledOn reports whether routine falls on date according to its
// frequency. Status is not consulted; see IsDue.
func (e *Evaluator) IsScheduledOn(routine models.Routine, date models.Date) bool {
	switch routine.Frequency {
	case constants.FrequencyDaily:
		return true
	case constants.FrequencyWeekly:
		return onWeekday(routine, date)
	case constants.FrequencyBiweekly:
		if !onWeekday(routine, date) {
			return false
		}
		if e.BiweeklyMode == constants.BiweeklyAsWeekly {
			return true
		}
		anchor := utils.DateIn(routine.StartTime, e.location())
		return weekParity(date) == weekParity(anchor)
	case constants.FrequencyMonthly:
		// No clamping: a routine on the 31st skips shorter months
		return date.Day == routine.MonthlyDate
	case constants.FrequencyCustom:
		if e.Custom != nil {
			return e.Custom(routine, date)
		}
		return true
	default:
		return false
	}
}

// IsDue reports whether routine is active and scheduled on date.
func (e *Evaluator) IsDue(routine models.Routine, date models.Date) bool {
	return routine.Status == constants.StatusActive && e.IsScheduledOn(routine, date)
}

// NextOccurrence returns the first date on or after from, within horizon
// days, on which routine is scheduled.
func (e *Evaluator) NextOccurrence(routine models.Routine, from models.Date, horizon int) (models.Date, bool) {
	for i := 0; i < horizon; i++ {
		d := from.AddDays(i)
		if e.IsScheduledOn(routine, d) {
			return d, true
		}
	}
	return models.Date{}, false
}

func (e *Evaluator) location() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}

func onWeekday(routine models.Routine, date models.Date) bool {
	return slices.Contains(routine.DaysOfWeek, date.Weekday())
}

// weekParity is the parity of d's ISO week number. Two weeks apart can share
// parity across a 53-week ISO year; the rule follows the week number anyway.
func weekParity(d models.Date) int {
	_, week := d.ISOWeek()
	return week % 2
}

// Describe returns a human-readable rendering of routine's recurrence rule.
func Describe(routine models.Routine) string {
	switch routine.Frequency {
	case constants.FrequencyDaily:
		return "daily"
	case constants.FrequencyWeekly, constants.FrequencyBiweekly:
		label := "weekly"
		if routine.Frequency == constants.FrequencyBiweekly {
			label = "every other week"
		}
		if len(routine.DaysOfWeek) == 0 {
			return label
		}
		days := slices.Clone(routine.DaysOfWeek)
		slices.Sort(days)
		names := make([]string, len(days))
		for i, wd := range days {
			names[i] = wd.String()[:3]
		}
		return fmt.Sprintf("%s on %s", label, strings.Join(names, ","))
	case constants.FrequencyMonthly:
		return fmt.Sprintf("monthly on day %d", routine.MonthlyDate)
	case constants.FrequencyCustom:
		return "custom"
	default:
		return "unknown"
	}
}
