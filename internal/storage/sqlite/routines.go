package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/ledger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

const routineColumns = `id, user_id, title, description, start_time, end_time, frequency,
	days_of_week, monthly_date, status, reminder_minutes, category, tags, created_at, updated_at`

func (s *Store) ListRoutines(ctx context.Context, filter storage.Filter) ([]models.Routine, error) {
	query := "SELECT " + routineColumns + " FROM routines WHERE 1=1"
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.WrapErr("list routines", err)
	}
	defer rows.Close()

	var routines []models.Routine
	index := map[string]int{}
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, storage.WrapErr("list routines", err)
		}
		index[r.ID] = len(routines)
		routines = append(routines, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapErr("list routines", err)
	}
	rows.Close()

	if len(routines) == 0 {
		return []models.Routine{}, nil
	}

	entries, err := s.db.QueryContext(ctx, "SELECT routine_id, day, completed FROM routine_completions ORDER BY day")
	if err != nil {
		return nil, storage.WrapErr("list routines", err)
	}
	defer entries.Close()

	for entries.Next() {
		var id string
		var entry models.CompletionEntry
		if err := entries.Scan(&id, &entry.Date, &entry.Completed); err != nil {
			return nil, storage.WrapErr("list routines", err)
		}
		if i, ok := index[id]; ok {
			routines[i].CompletionStatus = append(routines[i].CompletionStatus, entry)
		}
	}
	if err := entries.Err(); err != nil {
		return nil, storage.WrapErr("list routines", err)
	}

	return routines, nil
}

// GetRoutine loads a single routine with its ledger.
func (s *Store) GetRoutine(ctx context.Context, id string) (models.Routine, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+routineColumns+" FROM routines WHERE id = ?", id)
	r, err := scanRoutine(row)
	if err == sql.ErrNoRows {
		return models.Routine{}, &apperrors.NotFoundError{ID: id}
	}
	if err != nil {
		return models.Routine{}, storage.WrapErr("get routine", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT day, completed FROM routine_completions WHERE routine_id = ? ORDER BY day", id)
	if err != nil {
		return models.Routine{}, storage.WrapErr("get routine", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entry models.CompletionEntry
		if err := rows.Scan(&entry.Date, &entry.Completed); err != nil {
			return models.Routine{}, storage.WrapErr("get routine", err)
		}
		r.CompletionStatus = append(r.CompletionStatus, entry)
	}
	return r, storage.WrapErr("get routine", rows.Err())
}

func (s *Store) CreateRoutine(ctx context.Context, draft models.RoutineDraft) (models.Routine, error) {
	now := s.clock.Now().UTC()
	r := draft.Routine(uuid.New().String())
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = constants.StatusActive
	}
	ledger.Normalize(&r)

	days, tags, err := encodeLists(r)
	if err != nil {
		return models.Routine{}, storage.WrapErr("create routine", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Routine{}, storage.WrapErr("create routine", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO routines (`+routineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Title, r.Description,
		r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339),
		string(r.Frequency), days, r.MonthlyDate, string(r.Status), r.ReminderMinutes,
		r.Category, tags, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return models.Routine{}, storage.WrapErr("create routine", err)
	}
	if err := writeCompletions(ctx, tx, r); err != nil {
		return models.Routine{}, storage.WrapErr("create routine", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Routine{}, storage.WrapErr("create routine", err)
	}
	return r, nil
}

func (s *Store) UpdateRoutine(ctx context.Context, routine models.Routine) (models.Routine, error) {
	r := routine.Clone()
	ledger.Normalize(&r)
	r.UpdatedAt = s.clock.Now().UTC()

	days, tags, err := encodeLists(r)
	if err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE routines SET user_id = ?, title = ?, description = ?, start_time = ?, end_time = ?,
			frequency = ?, days_of_week = ?, monthly_date = ?, status = ?, reminder_minutes = ?,
			category = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		r.UserID, r.Title, r.Description,
		r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339),
		string(r.Frequency), days, r.MonthlyDate, string(r.Status), r.ReminderMinutes,
		r.Category, tags, r.UpdatedAt.Format(time.RFC3339Nano), r.ID)
	if err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	} else if n == 0 {
		return models.Routine{}, &apperrors.NotFoundError{ID: r.ID}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM routine_completions WHERE routine_id = ?", r.ID); err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	}
	if err := writeCompletions(ctx, tx, r); err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	}

	var createdAt string
	if err := s.db.QueryRowContext(ctx, "SELECT created_at FROM routines WHERE id = ?", r.ID).Scan(&createdAt); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
	}
	return r, nil
}

func (s *Store) DeleteRoutine(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.WrapErr("delete routine", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM routine_completions WHERE routine_id = ?", id); err != nil {
		return storage.WrapErr("delete routine", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM routines WHERE id = ?", id)
	if err != nil {
		return storage.WrapErr("delete routine", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storage.WrapErr("delete routine", err)
	} else if n == 0 {
		return &apperrors.NotFoundError{ID: id}
	}
	return storage.WrapErr("delete routine", tx.Commit())
}

func writeCompletions(ctx context.Context, tx *sql.Tx, r models.Routine) error {
	if len(r.CompletionStatus) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO routine_completions (routine_id, day, completed) VALUES (?, ?, ?)
		ON CONFLICT(routine_id, day) DO UPDATE SET completed = excluded.completed`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, entry := range r.CompletionStatus {
		if _, err := stmt.ExecContext(ctx, r.ID, entry.Date, entry.Completed); err != nil {
			return fmt.Errorf("failed to write completion for %s: %w", entry.Date, err)
		}
	}
	return nil
}

func encodeLists(r models.Routine) (string, string, error) {
	days := r.DaysOfWeek
	if days == nil {
		days = []time.Weekday{}
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	daysJSON, err := json.Marshal(days)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode days of week: %w", err)
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(daysJSON), string(tagsJSON), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoutine(row scanner) (models.Routine, error) {
	var r models.Routine
	var startTime, endTime, frequency, days, status, tags, createdAt, updatedAt string

	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &startTime, &endTime, &frequency,
		&days, &r.MonthlyDate, &status, &r.ReminderMinutes, &r.Category, &tags, &createdAt, &updatedAt)
	if err != nil {
		return models.Routine{}, err
	}

	r.Frequency = constants.Frequency(frequency)
	r.Status = constants.Status(status)

	if r.StartTime, err = time.Parse(time.RFC3339, startTime); err != nil {
		return models.Routine{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if r.EndTime, err = time.Parse(time.RFC3339, endTime); err != nil {
		return models.Routine{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return models.Routine{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return models.Routine{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	if strings.TrimSpace(days) != "" {
		if err := json.Unmarshal([]byte(days), &r.DaysOfWeek); err != nil {
			return models.Routine{}, fmt.Errorf("failed to decode days_of_week: %w", err)
		}
	}
	if strings.TrimSpace(tags) != "" {
		if err := json.Unmarshal([]byte(tags), &r.Tags); err != nil {
			return models.Routine{}, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	if len(r.DaysOfWeek) == 0 {
		r.DaysOfWeek = nil
	}
	if len(r.Tags) == 0 {
		r.Tags = nil
	}
	return r, nil
}
