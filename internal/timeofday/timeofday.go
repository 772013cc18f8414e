package timeofday

import (
	"time"

	"github.com/julianstephens/routinely/internal/models"
)

// Period is a display bucket derived from a routine's start hour.
type Period string

const (
	Morning   Period = "morning"
	Afternoon Period = "afternoon"
	Evening   Period = "evening"
	Other     Period = "other"
)

// Periods lists every bucket.
var Periods = []Period{Morning, Afternoon, Evening, Other}

// Grouped is the display order of the default grouped view, which leaves out
// Other.
var Grouped = []Period{Morning, Afternoon, Evening}

func (p Period) String() string { return string(p) }

// Label is the capitalized display name.
func (p Period) Label() string {
	switch p {
	case Morning:
		return "Morning"
	case Afternoon:
		return "Afternoon"
	case Evening:
		return "Evening"
	default:
		return "Other"
	}
}

// ForHour maps an hour of day (0-23) to its period.
func ForHour(hour int) Period {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 22:
		return Evening
	default:
		return Other
	}
}

// Classify buckets routine by the hour of its StartTime observed in loc.
func Classify(routine models.Routine, loc *time.Location) Period {
	if loc == nil {
		loc = time.Local
	}
	return ForHour(routine.StartTime.In(loc).Hour())
}

// Group buckets routines by period, preserving input order within a bucket.
func Group(routines []models.Routine, loc *time.Location) map[Period][]models.Routine {
	groups := make(map[Period][]models.Routine, len(Periods))
	for _, r := range routines {
		p := Classify(r, loc)
		groups[p] = append(groups[p], r)
	}
	return groups
}
