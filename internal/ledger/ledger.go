// Package ledger records per-day completion of routines. A routine's ledger
// is its CompletionStatus slice, holding at most one entry per calendar date.
package ledger

import (
	"slices"

	"github.com/julianstephens/routinely/internal/models"
)

// RecordCompletion upserts the entry for date: an existing entry has its flag
// overwritten, otherwise a new entry is appended.
func RecordCompletion(routine *models.Routine, date models.Date, completed bool) {
	for i := range routine.CompletionStatus {
		if routine.CompletionStatus[i].Date == date {
			routine.CompletionStatus[i].Completed = completed
			return
		}
	}
	routine.CompletionStatus = append(routine.CompletionStatus, models.CompletionEntry{
		Date:      date,
		Completed: completed,
	})
}

// CompletionFor returns the recorded flag for date. A date with no entry is
// not completed.
func CompletionFor(routine models.Routine, date models.Date) bool {
	for _, entry := range routine.CompletionStatus {
		if entry.Date == date {
			return entry.Completed
		}
	}
	return false
}

// HistoryFor returns one entry per day for the days dates ending at today,
// oldest first. Dates with no ledger entry are reported as not completed.
func HistoryFor(routine models.Routine, today models.Date, days int) []models.CompletionEntry {
	if days <= 0 {
		return []models.CompletionEntry{}
	}

	recorded := make(map[models.Date]bool, len(routine.CompletionStatus))
	for _, entry := range routine.CompletionStatus {
		recorded[entry.Date] = entry.Completed
	}

	history := make([]models.CompletionEntry, days)
	start := today.AddDays(-(days - 1))
	for i := range history {
		d := start.AddDays(i)
		history[i] = models.CompletionEntry{Date: d, Completed: recorded[d]}
	}
	return history
}

// CompletionRate is the fraction of the last days dates (ending at today)
// marked completed.
func CompletionRate(routine models.Routine, today models.Date, days int) float64 {
	if days <= 0 {
		return 0
	}
	done := 0
	for _, entry := range HistoryFor(routine, today, days) {
		if entry.Completed {
			done++
		}
	}
	return float64(done) / float64(days)
}

// Normalize collapses duplicate dates, keeping the last written entry, and
// sorts the ledger by date. Providers are not required to return ledgers in
// order.
func Normalize(routine *models.Routine) {
	if len(routine.CompletionStatus) == 0 {
		return
	}

	latest := make(map[models.Date]bool, len(routine.CompletionStatus))
	for _, entry := range routine.CompletionStatus {
		latest[entry.Date] = entry.Completed
	}

	normalized := make([]models.CompletionEntry, 0, len(latest))
	for d, completed := range latest {
		normalized = append(normalized, models.CompletionEntry{Date: d, Completed: completed})
	}
	slices.SortFunc(normalized, func(a, b models.CompletionEntry) int {
		return a.Date.Compare(b.Date)
	})
	routine.CompletionStatus = normalized
}
