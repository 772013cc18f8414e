package storage

import (
	"context"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
)

// Filter narrows a routine listing. Zero values match everything.
type Filter struct {
	Status constants.Status
	UserID string
}

// Matches reports whether r passes the filter.
func (f Filter) Matches(r models.Routine) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	return true
}

// Provider persists routines. Implementations return *errors.NotFoundError
// for unknown ids, *errors.PersistenceError for rejected calls and
// *errors.NetworkError when the backend cannot be reached.
type Provider interface {
	ListRoutines(ctx context.Context, filter Filter) ([]models.Routine, error)
	CreateRoutine(ctx context.Context, draft models.RoutineDraft) (models.Routine, error)
	UpdateRoutine(ctx context.Context, routine models.Routine) (models.Routine, error)
	DeleteRoutine(ctx context.Context, id string) error
}

// ReminderProvider removes reminders attached to an entity.
type ReminderProvider interface {
	DeleteRemindersFor(ctx context.Context, entityType, entityID string) error
}

// Backend is a local database that serves both roles and owns a connection.
type Backend interface {
	Provider
	ReminderProvider

	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Reminders
	AddReminder(ctx context.Context, reminder models.Reminder) (models.Reminder, error)
	ListReminders(ctx context.Context, entityType, entityID string) ([]models.Reminder, error)

	// Utils
	SchemaVersion(ctx context.Context) (current, latest int, err error)
	GetConfigPath() string
}
