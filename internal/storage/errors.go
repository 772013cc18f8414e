package storage

import (
	"context"
	"errors"

	apperrors "github.com/julianstephens/routinely/internal/errors"
)

// WrapErr maps a backend error onto the persistence error taxonomy. Context
// expiry and cancellation become network errors so callers treat a slow
// local database the same way as an unreachable API.
func WrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		notFound *apperrors.NotFoundError
		persist  *apperrors.PersistenceError
		network  *apperrors.NetworkError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &persist), errors.As(err, &network):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &apperrors.NetworkError{Op: op, Err: err}
	default:
		return &apperrors.PersistenceError{Op: op, Err: err}
	}
}
