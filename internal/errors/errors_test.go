package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "simple error",
			err:      errors.New("something went wrong"),
			expected: "Error: something went wrong",
		},
		{
			name:     "not found",
			err:      &NotFoundError{ID: "r-1"},
			expected: `Error: routine "r-1" not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.err)
			if result != tt.expected {
				t.Errorf("Format(%v) = %q, want %q", tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatf(t *testing.T) {
	got := Formatf("failed to load %s", "routines")
	if got != "Error: failed to load routines" {
		t.Errorf("Formatf() = %q", got)
	}
}

func TestErrorMatching(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantNotFound    bool
		wantPersistence bool
		wantValidation  bool
	}{
		{
			name:         "not found wrapped",
			err:          fmt.Errorf("toggle: %w", &NotFoundError{ID: "x"}),
			wantNotFound: true,
		},
		{
			name:            "persistence",
			err:             &PersistenceError{Op: "PUT /routines/x", Status: 500, Message: "boom"},
			wantPersistence: true,
		},
		{
			name:            "network counts as persistence",
			err:             &NetworkError{Op: "GET /routines", Err: context.DeadlineExceeded},
			wantPersistence: true,
		},
		{
			name:           "validation",
			err:            &ValidationError{Fields: []FieldError{{Field: "title", Message: "required"}}},
			wantValidation: true,
		},
		{
			name: "reminder sync is none of them",
			err:  &ReminderSyncError{EntityID: "x", Err: errors.New("offline")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.wantNotFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.wantNotFound)
			}
			if got := IsPersistence(tt.err); got != tt.wantPersistence {
				t.Errorf("IsPersistence() = %v, want %v", got, tt.wantPersistence)
			}
			if got := IsValidation(tt.err); got != tt.wantValidation {
				t.Errorf("IsValidation() = %v, want %v", got, tt.wantValidation)
			}
		})
	}
}

func TestNetworkErrorUnwrapsDeadline(t *testing.T) {
	err := &NetworkError{Op: "POST /routines", Err: context.DeadlineExceeded}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("NetworkError should unwrap to context.DeadlineExceeded")
	}
}

func TestPersistenceErrorMessage(t *testing.T) {
	err := &PersistenceError{Op: "DELETE /routines/r1", Status: 404, Message: "no such routine"}
	want := "DELETE /routines/r1 failed (404): no such routine"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := &PersistenceError{Op: "insert routine", Err: errors.New("disk full")}
	if wrapped.Error() != "insert routine failed: disk full" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}

func TestValidationErrorFields(t *testing.T) {
	v := &ValidationError{}
	if v.ErrOrNil() != nil {
		t.Fatal("empty ValidationError should be nil")
	}
	v.Add("monthlyDate", "must be between 1 and 31, got %d", 40)
	v.Add("title", "is required")

	if msg, ok := v.Field("monthlyDate"); !ok || msg != "must be between 1 and 31, got 40" {
		t.Errorf("Field(monthlyDate) = %q, %v", msg, ok)
	}
	want := "invalid routine: monthlyDate: must be between 1 and 31, got 40; title: is required"
	if v.ErrOrNil().Error() != want {
		t.Errorf("Error() = %q, want %q", v.Error(), want)
	}
}
