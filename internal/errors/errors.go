package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/routinely/internal/logger"
)

var (
	// ErrNotFound matches any *NotFoundError
	ErrNotFound = errors.New("routine not found")
	// ErrPersistence matches *PersistenceError and *NetworkError
	ErrPersistence = errors.New("persistence failed")
	// ErrValidation matches any *ValidationError
	ErrValidation = errors.New("invalid routine")
	// ErrNotConfirmed is returned for mutations against a routine whose creation
	// has not been confirmed by the persistence provider yet
	ErrNotConfirmed = errors.New("routine is not confirmed yet")
)

// FieldError describes one invalid field of a routine.
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// ValidationError is raised before any persistence call for malformed input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid routine"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "invalid routine: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Add appends a field error.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Field returns the message recorded for field, if any.
func (e *ValidationError) Field(field string) (string, bool) {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message, true
		}
	}
	return "", false
}

// ErrOrNil returns nil when no field errors were recorded.
func (e *ValidationError) ErrOrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NotFoundError is returned when an operation names a routine the store does not hold.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("routine %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// PersistenceError wraps a failed call to the persistence provider. Status is
// the upstream HTTP status when there is one.
type PersistenceError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s failed (%d): %s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, msg)
}

func (e *PersistenceError) Unwrap() error        { return e.Err }
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// NetworkError is a transport failure or timeout talking to the provider.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error        { return e.Err }
func (e *NetworkError) Is(target error) bool { return target == ErrPersistence }

// ReminderSyncError is a failed best-effort reminder operation. It is logged and
// never fails the routine operation that triggered it.
type ReminderSyncError struct {
	EntityID string
	Err      error
}

func (e *ReminderSyncError) Error() string {
	return fmt.Sprintf("reminder sync for routine %q failed: %v", e.EntityID, e.Err)
}

func (e *ReminderSyncError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPersistence reports whether err came from the persistence provider.
func IsPersistence(err error) bool { return errors.Is(err, ErrPersistence) }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
