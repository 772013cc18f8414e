package store

import (
	"context"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/ledger"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/validation"
)

// Create adds the draft optimistically under a temporary id and persists it.
// Invalid drafts are rejected before anything is applied.
func (s *Store) Create(ctx context.Context, draft models.RoutineDraft) (*Mutation, error) {
	if draft.Status == "" {
		draft.Status = constants.StatusActive
	}
	seed := draft.Routine(tempIDPrefix + newID())
	ledger.Normalize(&seed)
	if err := validation.ValidateRoutine(seed); err != nil {
		return nil, err
	}

	s.mu.Lock()
	m := newMutation(newID(), KindCreate, seed.ID)
	s.seq++
	o := &op{seq: s.seq, mut: m, apply: func(*models.Routine) bool { return true }}
	s.entries[seed.ID] = &entry{seed: seed, pending: []*op{o}}
	s.order = append(s.order, seed.ID)
	s.bump()
	s.mu.Unlock()

	logger.Debug("Optimistic create applied", "temp_id", seed.ID, "title", seed.Title)

	body := seed.Draft()
	go func() {
		created, err := call(s, ctx, string(KindCreate), func(ctx context.Context) (models.Routine, error) {
			return s.provider.CreateRoutine(ctx, body)
		})
		s.reconcileCreate(seed, o, created, err)
	}()
	return m, nil
}

func (s *Store) reconcileCreate(seed models.Routine, o *op, created models.Routine, err error) {
	s.mu.Lock()
	e := s.entries[seed.ID]

	if err != nil {
		if e != nil {
			delete(s.entries, seed.ID)
			s.removeFromOrder(seed.ID)
			s.bump()
		}
		s.notifyLocked(o.mut, seed, err)
		s.mu.Unlock()
		s.finish(o.mut, models.Routine{}, err)
		return
	}

	created = created.Clone()
	ledger.Normalize(&created)
	if e != nil {
		delete(s.entries, seed.ID)
		if existing, ok := s.entries[created.ID]; ok {
			// a fetch already brought the confirmed routine in
			if existing.base == nil || supersedes(created, o.seq, *existing.base, existing.baseSeq) {
				existing.base = &created
				existing.baseSeq = o.seq
			}
			s.removeFromOrder(seed.ID)
		} else {
			s.entries[created.ID] = &entry{base: &created, baseSeq: o.seq}
			s.replaceInOrder(seed.ID, created.ID)
		}
		s.bump()
	}
	s.mu.Unlock()

	logger.Debug("Create confirmed", "temp_id", seed.ID, "id", created.ID)
	s.finish(o.mut, created, nil)
}

// Update applies patch to the routine. The patched routine must still be
// valid.
func (s *Store) Update(ctx context.Context, id string, patch models.RoutinePatch) (*Mutation, error) {
	return s.mutate(ctx, KindUpdate, id, func(view models.Routine) (func(*models.Routine) bool, error) {
		next := view.Clone()
		patch.Apply(&next)
		if err := validation.ValidateRoutine(next); err != nil {
			return nil, err
		}
		return func(r *models.Routine) bool {
			patch.Apply(r)
			return true
		}, nil
	})
}

// SetStatus moves the routine to status
func (s *Store) SetStatus(ctx context.Context, id string, status constants.Status) (*Mutation, error) {
	if !status.Valid() {
		verr := &apperrors.ValidationError{}
		verr.Add("status", "unknown status %q", status)
		return nil, verr
	}
	return s.mutate(ctx, KindSetStatus, id, func(models.Routine) (func(*models.Routine) bool, error) {
		return func(r *models.Routine) bool {
			r.Status = status
			return true
		}, nil
	})
}

// ToggleCompletion flips the routine's completion for date. Completing today
// marks the routine completed; un-completing today returns a completed
// routine to active.
func (s *Store) ToggleCompletion(ctx context.Context, id string, date models.Date) (*Mutation, error) {
	if date.IsZero() {
		return nil, invalidDate()
	}
	today := s.Today()
	return s.mutate(ctx, KindToggleCompletion, id, func(view models.Routine) (func(*models.Routine) bool, error) {
		completed := !ledger.CompletionFor(view, date)
		status, statusChanged := view.Status, false
		if date == today {
			switch {
			case completed && view.Status != constants.StatusCompleted:
				status, statusChanged = constants.StatusCompleted, true
			case !completed && view.Status == constants.StatusCompleted:
				status, statusChanged = constants.StatusActive, true
			}
		}
		return func(r *models.Routine) bool {
			ledger.RecordCompletion(r, date, completed)
			if statusChanged {
				r.Status = status
			}
			return true
		}, nil
	})
}

// RecordCompletion sets the completion flag for date without touching status
func (s *Store) RecordCompletion(ctx context.Context, id string, date models.Date, completed bool) (*Mutation, error) {
	if date.IsZero() {
		return nil, invalidDate()
	}
	return s.mutate(ctx, KindRecordCompletion, id, func(models.Routine) (func(*models.Routine) bool, error) {
		return func(r *models.Routine) bool {
			ledger.RecordCompletion(r, date, completed)
			return true
		}, nil
	})
}

// Delete hides the routine, deletes it, then removes its reminders on a best
// effort basis. Reminder failures never fail the delete.
func (s *Store) Delete(ctx context.Context, id string) (*Mutation, error) {
	s.mu.Lock()
	e, view, err := s.lookupLocked(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	m := newMutation(newID(), KindDelete, id)
	s.seq++
	o := &op{seq: s.seq, mut: m, apply: func(*models.Routine) bool { return false }}
	e.pending = append(e.pending, o)
	s.bump()
	s.mu.Unlock()

	logger.Debug("Optimistic delete applied", "id", id)

	go func() {
		_, err := call(s, ctx, string(KindDelete), func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.provider.DeleteRoutine(ctx, id)
		})

		s.mu.Lock()
		if err != nil && !apperrors.IsNotFound(err) {
			if e := s.entries[id]; e != nil && e.remove(o) {
				s.bump()
			}
			s.notifyLocked(m, view, err)
			s.mu.Unlock()
			s.finish(m, models.Routine{}, err)
			return
		}
		// already gone upstream counts as deleted
		if _, ok := s.entries[id]; ok {
			delete(s.entries, id)
			s.removeFromOrder(id)
			s.bump()
		}
		s.mu.Unlock()

		s.syncReminders(ctx, id)
		s.finish(m, models.Routine{}, nil)
	}()
	return m, nil
}

func (s *Store) syncReminders(ctx context.Context, id string) {
	if s.reminders == nil {
		return
	}
	_, err := call(s, context.WithoutCancel(ctx), "delete_reminders", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.reminders.DeleteRemindersFor(ctx, constants.EntityTypeRoutine, id)
	})
	if err != nil {
		syncErr := &apperrors.ReminderSyncError{EntityID: id, Err: err}
		logger.Warn("Reminder cleanup failed", "routine_id", id, "error", syncErr)
		s.metrics.CountReminderSyncFailure()
	}
}

// mutate runs the shared optimistic flow for changes that PUT the whole
// routine. build sees the current view and returns the op's reducer, or a
// validation error.
func (s *Store) mutate(ctx context.Context, kind MutationKind, id string, build func(view models.Routine) (func(*models.Routine) bool, error)) (*Mutation, error) {
	s.mu.Lock()
	e, view, err := s.lookupLocked(id)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	apply, err := build(view)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	m := newMutation(newID(), kind, id)
	s.seq++
	o := &op{seq: s.seq, mut: m, apply: apply}
	e.pending = append(e.pending, o)
	body, _ := e.view()
	s.bump()
	s.mu.Unlock()

	logger.Debug("Optimistic mutation applied", "kind", kind, "id", id, "seq", o.seq)

	go func() {
		updated, err := call(s, ctx, string(kind), func(ctx context.Context) (models.Routine, error) {
			return s.provider.UpdateRoutine(ctx, body)
		})
		s.reconcile(id, o, view, updated, err)
	}()
	return m, nil
}

// reconcile folds a provider response into the routine's entry. A confirmed
// routine replaces the base unless it is older than the base, and settles
// every op dispatched before it. A failure drops only the failed op.
func (s *Store) reconcile(id string, o *op, before models.Routine, updated models.Routine, err error) {
	s.mu.Lock()
	e := s.entries[id]

	if err != nil {
		if e != nil && e.remove(o) {
			s.bump()
		}
		s.notifyLocked(o.mut, before, err)
		s.mu.Unlock()
		s.finish(o.mut, models.Routine{}, err)
		return
	}

	updated = updated.Clone()
	ledger.Normalize(&updated)
	if e != nil && e.base != nil {
		idx := e.indexOf(o)
		if supersedes(updated, o.seq, *e.base, e.baseSeq) {
			e.base = &updated
			e.baseSeq = o.seq
			if idx >= 0 {
				e.pending = append([]*op(nil), e.pending[idx+1:]...)
			}
		} else if idx >= 0 {
			logger.Debug("Stale confirmation ignored", "id", id, "seq", o.seq, "base_seq", e.baseSeq)
			e.remove(o)
		}
		s.bump()
	}
	s.mu.Unlock()

	s.finish(o.mut, updated, nil)
}

// lookupLocked resolves id to its entry and current view. Callers hold s.mu.
func (s *Store) lookupLocked(id string) (*entry, models.Routine, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, models.Routine{}, &apperrors.NotFoundError{ID: id}
	}
	view, visible := e.view()
	if !visible {
		return nil, models.Routine{}, &apperrors.NotFoundError{ID: id}
	}
	if e.base == nil {
		return nil, models.Routine{}, apperrors.ErrNotConfirmed
	}
	return e, view, nil
}

func (s *Store) finish(m *Mutation, result models.Routine, err error) {
	if err != nil {
		logger.Warn("Mutation rolled back", "kind", m.Kind, "id", m.RoutineID(), "error", err)
		s.metrics.CountMutation(string(m.Kind), RolledBack.String())
		m.rollback(err)
		return
	}
	s.metrics.CountMutation(string(m.Kind), Committed.String())
	m.commit(result)
}

func (s *Store) removeFromOrder(id string) {
	for i, cur := range s.order {
		if cur == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Store) replaceInOrder(oldID, newID string) {
	for i, cur := range s.order {
		if cur == oldID {
			s.order[i] = newID
			return
		}
	}
	s.order = append(s.order, newID)
}

func invalidDate() error {
	verr := &apperrors.ValidationError{}
	verr.Add("date", "is required")
	return verr
}
