// Package streak derives consecutive-day completion counts from a routine's
// completion ledger.
//
// Streaks count calendar days, not scheduled days: a weekly routine that was
// not due yesterday still loses its streak if yesterday is unmarked.
package streak

import (
	"slices"

	"github.com/julianstephens/routinely/internal/models"
)

// Current returns the number of consecutive completed days ending at
// reference. The ledger is walked newest first; the entry at position i must
// be exactly reference-i and completed, otherwise the walk stops.
func Current(routine models.Routine, reference models.Date) int {
	entries := descending(routine.CompletionStatus, reference)

	count := 0
	for i, entry := range entries {
		if entry.Date != reference.AddDays(-i) || !entry.Completed {
			break
		}
		count++
	}
	return count
}

// Longest returns the longest run of consecutive completed days anywhere in
// the ledger.
func Longest(routine models.Routine) int {
	var days []models.Date
	for _, entry := range routine.CompletionStatus {
		if entry.Completed {
			days = append(days, entry.Date)
		}
	}
	if len(days) == 0 {
		return 0
	}
	slices.SortFunc(days, func(a, b models.Date) int { return a.Compare(b) })
	days = slices.Compact(days)

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].DaysSince(days[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// descending returns the ledger entries on or before reference, newest first.
func descending(ledger []models.CompletionEntry, reference models.Date) []models.CompletionEntry {
	entries := make([]models.CompletionEntry, 0, len(ledger))
	for _, entry := range ledger {
		if !entry.Date.After(reference) {
			entries = append(entries, entry)
		}
	}
	slices.SortStableFunc(entries, func(a, b models.CompletionEntry) int {
		return b.Date.Compare(a.Date)
	})
	return entries
}
