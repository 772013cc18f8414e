package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/ledger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

const routineColumns = `id, user_id, title, description, start_time, end_time, frequency,
	days_of_week, monthly_date, status, reminder_minutes, category, tags, created_at, updated_at`

func (s *Store) ListRoutines(ctx context.Context, filter storage.Filter) ([]models.Routine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+routineColumns+` FROM routines
		WHERE ($1::text = '' OR status = $1::text) AND ($2::text = '' OR user_id = $2::text)
		ORDER BY created_at, id`, string(filter.Status), filter.UserID)
	if err != nil {
		return nil, storage.WrapErr("list routines", err)
	}
	defer rows.Close()

	routines := []models.Routine{}
	index := map[string]int{}
	var ids []string
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, storage.WrapErr("list routines", err)
		}
		index[r.ID] = len(routines)
		ids = append(ids, r.ID)
		routines = append(routines, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapErr("list routines", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return routines, nil
	}

	entries, err := s.db.QueryContext(ctx, `
		SELECT routine_id, day, completed FROM routine_completions
		WHERE routine_id = ANY($1) ORDER BY day`, pq.Array(ids))
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
	return routines, storage.WrapErr("list routines", entries.Err())
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Routine{}, storage.WrapErr("create routine", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO routines (`+routineColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		r.ID, r.UserID, r.Title, r.Description, r.StartTime, r.EndTime,
		string(r.Frequency), pq.Array(weekdaysToInts(r.DaysOfWeek)), r.MonthlyDate, string(r.Status),
		r.ReminderMinutes, r.Category, pq.Array(nonNil(r.Tags)), now, now)
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		UPDATE routines SET user_id = $2, title = $3, description = $4, start_time = $5, end_time = $6,
			frequency = $7, days_of_week = $8, monthly_date = $9, status = $10, reminder_minutes = $11,
			category = $12, tags = $13, updated_at = $14
		WHERE id = $1
		RETURNING created_at`,
		r.ID, r.UserID, r.Title, r.Description, r.StartTime, r.EndTime,
		string(r.Frequency), pq.Array(weekdaysToInts(r.DaysOfWeek)), r.MonthlyDate, string(r.Status),
		r.ReminderMinutes, r.Category, pq.Array(nonNil(r.Tags)), r.UpdatedAt).Scan(&r.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Routine{}, &apperrors.NotFoundError{ID: r.ID}
	}
	if err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM routine_completions WHERE routine_id = $1", r.ID); err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	}
	if err := writeCompletions(ctx, tx, r); err != nil {
		return models.Routine{}, storage.WrapErr("update routine", err)
	}
	return r, storage.WrapErr("update routine", tx.Commit())
}

func (s *Store) DeleteRoutine(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM routines WHERE id = $1", id)
	if err != nil {
		return storage.WrapErr("delete routine", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.WrapErr("delete routine", err)
	}
	if n == 0 {
		return &apperrors.NotFoundError{ID: id}
	}
	return nil
}

func writeCompletions(ctx context.Context, tx *sql.Tx, r models.Routine) error {
	if len(r.CompletionStatus) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("routine_completions", "routine_id", "day", "completed"))
	if err != nil {
		return err
	}
	for _, entry := range r.CompletionStatus {
		if _, err := stmt.ExecContext(ctx, r.ID, entry.Date.String(), entry.Completed); err != nil {
			stmt.Close()
			return err
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return err
	}
	return stmt.Close()
}

func weekdaysToInts(days []time.Weekday) []int64 {
	out := make([]int64, len(days))
	for i, d := range days {
		out[i] = int64(d)
	}
	return out
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoutine(row scanner) (models.Routine, error) {
	var r models.Routine
	var frequency, status string
	var days pq.Int64Array
	var tags pq.StringArray

	err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &r.StartTime, &r.EndTime, &frequency,
		&days, &r.MonthlyDate, &status, &r.ReminderMinutes, &r.Category, &tags, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.Routine{}, err
	}
	r.Frequency = constants.Frequency(frequency)
	r.Status = constants.Status(status)
	for _, d := range days {
		r.DaysOfWeek = append(r.DaysOfWeek, time.Weekday(d))
	}
	if len(tags) > 0 {
		r.Tags = []string(tags)
	}
	return r, nil
}
