package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

func (s *Store) AddReminder(ctx context.Context, reminder models.Reminder) (models.Reminder, error) {
	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, entity_type, entity_id, minutes, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		reminder.ID, reminder.EntityType, reminder.EntityID, reminder.Minutes, reminder.Message,
		s.clock.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return models.Reminder{}, storage.WrapErr("add reminder", err)
	}
	return reminder, nil
}

func (s *Store) ListReminders(ctx context.Context, entityType, entityID string) ([]models.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, minutes, message
		FROM reminders WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at, id`, entityType, entityID)
	if err != nil {
		return nil, storage.WrapErr("list reminders", err)
	}
	defer rows.Close()

	reminders := []models.Reminder{}
	for rows.Next() {
		var r models.Reminder
		if err := rows.Scan(&r.ID, &r.EntityType, &r.EntityID, &r.Minutes, &r.Message); err != nil {
			return nil, storage.WrapErr("list reminders", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, storage.WrapErr("list reminders", rows.Err())
}

// DeleteRemindersFor removes every reminder keyed to the entity. Having none
// is not an error.
func (s *Store) DeleteRemindersFor(ctx context.Context, entityType, entityID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM reminders WHERE entity_type = ? AND entity_id = ?", entityType, entityID)
	return storage.WrapErr("delete reminders", err)
}

var _ storage.Backend = (*Store)(nil)
