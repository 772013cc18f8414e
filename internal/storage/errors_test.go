package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
)

func TestWrapErr(t *testing.T) {
	if WrapErr("op", nil) != nil {
		t.Fatal("WrapErr(nil) should be nil")
	}

	var netErr *apperrors.NetworkError
	if err := WrapErr("list routines", fmt.Errorf("query: %w", context.DeadlineExceeded)); !errors.As(err, &netErr) {
		t.Errorf("deadline should map to NetworkError, got %T", err)
	}

	var perr *apperrors.PersistenceError
	err := WrapErr("create routine", errors.New("disk full"))
	if !errors.As(err, &perr) || perr.Op != "create routine" {
		t.Errorf("plain error should map to PersistenceError, got %v", err)
	}
	if !apperrors.IsPersistence(err) {
		t.Error("wrapped error should match ErrPersistence")
	}

	nf := &apperrors.NotFoundError{ID: "r1"}
	if got := WrapErr("update routine", nf); got != nf {
		t.Errorf("NotFoundError should pass through, got %v", got)
	}
}

func TestFilterMatches(t *testing.T) {
	r := models.Routine{Status: constants.StatusPaused, UserID: "u1"}
	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"status match", Filter{Status: constants.StatusPaused}, true},
		{"status mismatch", Filter{Status: constants.StatusActive}, false},
		{"user match", Filter{UserID: "u1"}, true},
		{"user mismatch", Filter{UserID: "u2"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(r); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
