package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/recurrence"
)

func validRoutine() models.Routine {
	return models.Routine{
		ID:              "r1",
		Title:           "Morning run",
		StartTime:       time.Date(2024, 1, 1, 6, 30, 0, 0, time.UTC),
		EndTime:         time.Date(2024, 1, 1, 7, 15, 0, 0, time.UTC),
		Frequency:       constants.FrequencyWeekly,
		DaysOfWeek:      []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		Status:          constants.StatusActive,
		ReminderMinutes: 10,
		Tags:            []string{"health"},
	}
}

func fieldsOf(t *testing.T, err error) *apperrors.ValidationError {
	t.Helper()
	var verr *apperrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	return verr
}

func TestValidateRoutine_Valid(t *testing.T) {
	if err := ValidateRoutine(validRoutine()); err != nil {
		t.Fatalf("ValidateRoutine() unexpected error: %v", err)
	}

	monthly := validRoutine()
	monthly.Frequency = constants.FrequencyMonthly
	monthly.DaysOfWeek = nil
	monthly.MonthlyDate = 31
	if err := ValidateRoutine(monthly); err != nil {
		t.Fatalf("ValidateRoutine(monthly) unexpected error: %v", err)
	}

	overnight := validRoutine()
	overnight.StartTime = time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	overnight.EndTime = time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)
	if err := ValidateRoutine(overnight); err != nil {
		t.Fatalf("ValidateRoutine(overnight) unexpected error: %v", err)
	}
}

func TestValidateRoutine_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.Routine)
		field  string
		substr string
	}{
		{
			name:   "missing title",
			mutate: func(r *models.Routine) { r.Title = "   " },
			field:  "title",
			substr: "required",
		},
		{
			name:   "title too long",
			mutate: func(r *models.Routine) { r.Title = strings.Repeat("x", 201) },
			field:  "title",
			substr: "at most 200",
		},
		{
			name:   "unknown frequency",
			mutate: func(r *models.Routine) { r.Frequency = "hourly" },
			field:  "frequency",
			substr: "unknown frequency",
		},
		{
			name:   "unknown status",
			mutate: func(r *models.Routine) { r.Status = "archived" },
			field:  "status",
			substr: "unknown status",
		},
		{
			name: "monthly date out of range",
			mutate: func(r *models.Routine) {
				r.Frequency = constants.FrequencyMonthly
				r.DaysOfWeek = nil
				r.MonthlyDate = 32
			},
			field:  "monthlyDate",
			substr: "at most 31",
		},
		{
			name: "monthly without date",
			mutate: func(r *models.Routine) {
				r.Frequency = constants.FrequencyMonthly
				r.DaysOfWeek = nil
			},
			field:  "monthlyDate",
			substr: "required",
		},
		{
			name:   "weekly without days",
			mutate: func(r *models.Routine) { r.DaysOfWeek = nil },
			field:  "daysOfWeek",
			substr: "at least one day",
		},
		{
			name:   "duplicate weekdays",
			mutate: func(r *models.Routine) { r.DaysOfWeek = []time.Weekday{time.Monday, time.Monday} },
			field:  "daysOfWeek",
			substr: "duplicates",
		},
		{
			name:   "weekday out of range",
			mutate: func(r *models.Routine) { r.DaysOfWeek = []time.Weekday{time.Monday, 7} },
			field:  "daysOfWeek[1]",
			substr: "at most 6",
		},
		{
			name: "daily with days of week",
			mutate: func(r *models.Routine) {
				r.Frequency = constants.FrequencyDaily
			},
			field:  "daysOfWeek",
			substr: "only applies",
		},
		{
			name:   "weekly with monthly date",
			mutate: func(r *models.Routine) { r.MonthlyDate = 3 },
			field:  "monthlyDate",
			substr: "only applies",
		},
		{
			name:   "negative reminder",
			mutate: func(r *models.Routine) { r.ReminderMinutes = -5 },
			field:  "reminderMinutes",
			substr: "at least 0",
		},
		{
			name:   "empty tag",
			mutate: func(r *models.Routine) { r.Tags = []string{"ok", ""} },
			field:  "tags[1]",
			substr: "required",
		},
		{
			name:   "missing start",
			mutate: func(r *models.Routine) { r.StartTime = time.Time{} },
			field:  "startTime",
			substr: "required",
		},
		{
			name:   "zero length window",
			mutate: func(r *models.Routine) { r.EndTime = r.StartTime },
			field:  "endTime",
			substr: "differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRoutine()
			tt.mutate(&r)

			err := ValidateRoutine(r)
			if err == nil {
				t.Fatal("ValidateRoutine() expected error, got nil")
			}
			if !apperrors.IsValidation(err) {
				t.Errorf("error should match ErrValidation: %v", err)
			}
			msg, ok := fieldsOf(t, err).Field(tt.field)
			if !ok {
				t.Fatalf("no error recorded for field %q: %v", tt.field, err)
			}
			if !strings.Contains(msg, tt.substr) {
				t.Errorf("field %q message = %q, want it to contain %q", tt.field, msg, tt.substr)
			}
		})
	}
}

func TestValidateRoutines_DuplicateTitles(t *testing.T) {
	a := validRoutine()
	b := validRoutine()
	b.ID = "r2"
	b.Title = "morning RUN"

	result := New(recurrence.New(time.UTC)).ValidateRoutines([]models.Routine{a, b}, nil)
	if !result.HasConflicts() {
		t.Fatal("expected duplicate title conflict")
	}
	if result.Conflicts[0].Type != ConflictDuplicateTitle {
		t.Errorf("conflict type = %s, want %s", result.Conflicts[0].Type, ConflictDuplicateTitle)
	}
	if len(result.Conflicts[0].RoutineIDs) != 2 {
		t.Errorf("expected both routine IDs, got %v", result.Conflicts[0].RoutineIDs)
	}
}

func TestValidateRoutines_Overlaps(t *testing.T) {
	run := validRoutine()
	call := validRoutine()
	call.ID = "r2"
	call.Title = "Standup"
	call.StartTime = time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)
	call.EndTime = time.Date(2024, 1, 1, 7, 30, 0, 0, time.UTC)
	paused := call
	paused.ID = "r3"
	paused.Title = "Paused thing"
	paused.Status = constants.StatusPaused

	v := New(recurrence.New(time.UTC))

	monday := models.MustParseDate("2024-01-08")
	result := v.ValidateRoutines([]models.Routine{run, call, paused}, &monday)
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 overlap conflict, got %d: %s", len(result.Conflicts), result.FormatReport())
	}
	c := result.Conflicts[0]
	if c.Type != ConflictOverlappingRoutines || c.Date != "2024-01-08" {
		t.Errorf("unexpected conflict %+v", c)
	}
	if !strings.Contains(c.Description, "07:00-07:15") {
		t.Errorf("description = %q, want overlap window 07:00-07:15", c.Description)
	}

	tuesday := models.MustParseDate("2024-01-09")
	if result := v.ValidateRoutines([]models.Routine{run, call}, &tuesday); result.HasConflicts() {
		t.Errorf("no routines are scheduled on Tuesday, got %s", result.FormatReport())
	}
}

func TestFormatReport(t *testing.T) {
	empty := ValidationResult{}
	if empty.FormatReport() != "No conflicts detected." {
		t.Errorf("FormatReport() = %q", empty.FormatReport())
	}

	r := ValidationResult{Conflicts: []Conflict{{Description: "first"}, {Description: "second"}}}
	want := "Conflicts detected:\n- first\n- second\n"
	if r.FormatReport() != want {
		t.Errorf("FormatReport() = %q, want %q", r.FormatReport(), want)
	}
}
