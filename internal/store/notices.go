package store

import (
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/routinely/internal/models"
)

// Notice is a user-visible report of a rolled back mutation. It stays until
// dismissed.
type Notice struct {
	ID        string
	Kind      MutationKind
	RoutineID string
	Message   string
	Err       error
	CreatedAt time.Time
}

// Notices returns the undismissed notices, oldest first
func (s *Store) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notices)
}

// Dismiss removes a notice and reports whether it existed
func (s *Store) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notices {
		if n.ID == id {
			s.notices = slices.Delete(s.notices, i, i+1)
			return true
		}
	}
	return false
}

// notifyLocked records a notice for a failed mutation. Callers hold s.mu.
func (s *Store) notifyLocked(m *Mutation, routine models.Routine, err error) {
	subject := "routine"
	if routine.Title != "" {
		subject = fmt.Sprintf("%q", routine.Title)
	}
	s.notices = append(s.notices, Notice{
		ID:        newID(),
		Kind:      m.Kind,
		RoutineID: m.RoutineID(),
		Message:   fmt.Sprintf("Could not %s %s: %v", m.Kind.verb(), subject, err),
		Err:       err,
		CreatedAt: s.clock.Now(),
	})
}
