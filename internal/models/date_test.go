package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d != (Date{Year: 2024, Month: time.February, Day: 29}) {
		t.Errorf("ParseDate() = %+v", d)
	}

	if _, err := ParseDate("2023-02-29"); err == nil {
		t.Error("ParseDate() expected error for non-existent date")
	}
	if _, err := ParseDate("02/29/2024"); err == nil {
		t.Error("ParseDate() expected error for wrong format")
	}
}

func TestDateArithmetic(t *testing.T) {
	d := MustParseDate("2024-03-01")

	if got := d.AddDays(-1); got != MustParseDate("2024-02-29") {
		t.Errorf("AddDays(-1) = %s, want 2024-02-29", got)
	}
	if got := d.AddDays(31); got != MustParseDate("2024-04-01") {
		t.Errorf("AddDays(31) = %s, want 2024-04-01", got)
	}
	if got := MustParseDate("2024-01-03").DaysSince(MustParseDate("2023-12-31")); got != 3 {
		t.Errorf("DaysSince() = %d, want 3", got)
	}
	if got := MustParseDate("2024-01-02").Weekday(); got != time.Tuesday {
		t.Errorf("Weekday() = %v, want Tuesday", got)
	}
	if !MustParseDate("2024-01-01").Before(MustParseDate("2024-01-02")) {
		t.Error("Before() = false, want true")
	}
	if MustParseDate("2024-02-01").Compare(MustParseDate("2024-01-31")) != 1 {
		t.Error("Compare() across months should be 1")
	}
}

func TestDateJSON(t *testing.T) {
	entry := CompletionEntry{Date: MustParseDate("2024-01-03"), Completed: true}
	b, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `{"date":"2024-01-03","completed":true}` {
		t.Errorf("Marshal() = %s", b)
	}

	// Timestamps written by the dashboard keep their written calendar date.
	var fromTimestamp CompletionEntry
	if err := json.Unmarshal([]byte(`{"date":"2024-01-03T23:30:00-05:00","completed":false}`), &fromTimestamp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if fromTimestamp.Date != MustParseDate("2024-01-03") {
		t.Errorf("Unmarshal() date = %s, want 2024-01-03", fromTimestamp.Date)
	}
}

func TestRoutineCloneDoesNotAlias(t *testing.T) {
	r := Routine{
		ID:               "r1",
		DaysOfWeek:       []time.Weekday{time.Monday},
		Tags:             []string{"health"},
		CompletionStatus: []CompletionEntry{{Date: MustParseDate("2024-01-01"), Completed: true}},
	}
	c := r.Clone()
	c.DaysOfWeek[0] = time.Friday
	c.Tags[0] = "work"
	c.CompletionStatus[0].Completed = false

	if r.DaysOfWeek[0] != time.Monday || r.Tags[0] != "health" || !r.CompletionStatus[0].Completed {
		t.Error("Clone() shares backing arrays with the original")
	}
}

func TestRoutineDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 22, 30, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 15, 0, 0, time.UTC)
	r := Routine{StartTime: start, EndTime: end}
	if got := r.Duration(); got != 105*time.Minute {
		t.Errorf("Duration() = %v, want 1h45m", got)
	}
}

func TestRoutinePatchApply(t *testing.T) {
	r := Routine{Title: "Run", Tags: []string{"health"}}
	title := "Evening run"
	tags := []string{"fitness"}
	RoutinePatch{Title: &title, Tags: &tags}.Apply(&r)

	if r.Title != "Evening run" {
		t.Errorf("Title = %q", r.Title)
	}
	tags[0] = "mutated"
	if r.Tags[0] != "fitness" {
		t.Error("Apply() aliased the patch's tag slice")
	}
	if !(RoutinePatch{}).IsEmpty() {
		t.Error("empty patch should report IsEmpty")
	}
}
