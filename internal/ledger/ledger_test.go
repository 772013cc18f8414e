package ledger

import (
	"testing"

	"github.com/julianstephens/routinely/internal/models"
)

func TestRecordCompletion_IdempotentUpsert(t *testing.T) {
	r := models.Routine{ID: "r1"}
	d := models.MustParseDate("2024-01-01")

	RecordCompletion(&r, d, true)
	RecordCompletion(&r, d, true)

	if len(r.CompletionStatus) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(r.CompletionStatus))
	}
	if !r.CompletionStatus[0].Completed {
		t.Error("expected entry to be completed")
	}
}

func TestRecordCompletion_OverwritesFlag(t *testing.T) {
	r := models.Routine{ID: "r1"}
	d := models.MustParseDate("2024-01-01")

	RecordCompletion(&r, d, true)
	RecordCompletion(&r, models.MustParseDate("2024-01-02"), true)
	RecordCompletion(&r, d, false)

	if len(r.CompletionStatus) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(r.CompletionStatus))
	}
	if CompletionFor(r, d) {
		t.Error("expected 2024-01-01 to be overwritten to not completed")
	}
	if !CompletionFor(r, models.MustParseDate("2024-01-02")) {
		t.Error("expected 2024-01-02 to stay completed")
	}
}

func TestCompletionFor_AbsenceIsNotCompleted(t *testing.T) {
	r := models.Routine{
		ID: "r1",
		CompletionStatus: []models.CompletionEntry{
			{Date: models.MustParseDate("2024-01-01"), Completed: true},
		},
	}

	for _, date := range []string{"2023-12-31", "2024-01-02", "2030-06-15"} {
		if CompletionFor(r, models.MustParseDate(date)) {
			t.Errorf("CompletionFor(%s) = true for a date with no entry", date)
		}
	}
}

func TestHistoryFor_Length(t *testing.T) {
	today := models.MustParseDate("2024-01-10")
	tests := []struct {
		name   string
		ledger []models.CompletionEntry
	}{
		{name: "empty ledger"},
		{
			name: "sparse ledger",
			ledger: []models.CompletionEntry{
				{Date: models.MustParseDate("2024-01-08"), Completed: true},
			},
		},
		{
			name: "entries outside the window",
			ledger: []models.CompletionEntry{
				{Date: models.MustParseDate("2023-01-01"), Completed: true},
				{Date: models.MustParseDate("2024-02-01"), Completed: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := models.Routine{CompletionStatus: tt.ledger}
			history := HistoryFor(r, today, 7)
			if len(history) != 7 {
				t.Fatalf("HistoryFor() returned %d entries, want 7", len(history))
			}
			if history[0].Date != models.MustParseDate("2024-01-04") {
				t.Errorf("first entry = %s, want 2024-01-04", history[0].Date)
			}
			if history[6].Date != today {
				t.Errorf("last entry = %s, want %s", history[6].Date, today)
			}
		})
	}
}

func TestHistoryFor_FillsGaps(t *testing.T) {
	today := models.MustParseDate("2024-01-03")
	r := models.Routine{
		CompletionStatus: []models.CompletionEntry{
			{Date: models.MustParseDate("2024-01-03"), Completed: true},
			{Date: models.MustParseDate("2024-01-01"), Completed: true},
		},
	}

	history := HistoryFor(r, today, 3)
	want := []bool{true, false, true}
	for i, entry := range history {
		if entry.Completed != want[i] {
			t.Errorf("history[%d] (%s) completed = %v, want %v", i, entry.Date, entry.Completed, want[i])
		}
	}
}

func TestHistoryFor_NonPositiveDays(t *testing.T) {
	r := models.Routine{}
	if got := HistoryFor(r, models.MustParseDate("2024-01-01"), 0); len(got) != 0 {
		t.Errorf("HistoryFor(0) returned %d entries", len(got))
	}
	if got := HistoryFor(r, models.MustParseDate("2024-01-01"), -3); len(got) != 0 {
		t.Errorf("HistoryFor(-3) returned %d entries", len(got))
	}
}

func TestCompletionRate(t *testing.T) {
	today := models.MustParseDate("2024-01-04")
	r := models.Routine{}
	RecordCompletion(&r, models.MustParseDate("2024-01-01"), true)
	RecordCompletion(&r, models.MustParseDate("2024-01-03"), true)
	RecordCompletion(&r, models.MustParseDate("2024-01-04"), false)

	if got := CompletionRate(r, today, 4); got != 0.5 {
		t.Errorf("CompletionRate() = %v, want 0.5", got)
	}
	if got := CompletionRate(r, today, 0); got != 0 {
		t.Errorf("CompletionRate(0) = %v, want 0", got)
	}
}

func TestNormalize(t *testing.T) {
	r := models.Routine{
		CompletionStatus: []models.CompletionEntry{
			{Date: models.MustParseDate("2024-01-03"), Completed: true},
			{Date: models.MustParseDate("2024-01-01"), Completed: true},
			{Date: models.MustParseDate("2024-01-03"), Completed: false},
		},
	}

	Normalize(&r)

	if len(r.CompletionStatus) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 entries, got %d", len(r.CompletionStatus))
	}
	if r.CompletionStatus[0].Date != models.MustParseDate("2024-01-01") {
		t.Errorf("ledger not sorted: first = %s", r.CompletionStatus[0].Date)
	}
	if r.CompletionStatus[1].Completed {
		t.Error("Normalize should keep the last written entry for a date")
	}
}
