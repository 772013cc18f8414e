package store

import (
	"context"
	"sync"

	"github.com/julianstephens/routinely/internal/models"
)

// MutationKind names the action a mutation performs
type MutationKind string

const (
	KindCreate           MutationKind = "create"
	KindUpdate           MutationKind = "update"
	KindDelete           MutationKind = "delete"
	KindSetStatus        MutationKind = "set_status"
	KindToggleCompletion MutationKind = "toggle_completion"
	KindRecordCompletion MutationKind = "record_completion"
)

func (k MutationKind) verb() string {
	switch k {
	case KindCreate:
		return "create"
	case KindDelete:
		return "delete"
	case KindSetStatus:
		return "change the status of"
	case KindToggleCompletion, KindRecordCompletion:
		return "record completion for"
	default:
		return "update"
	}
}

// MutationState is the lifecycle of one optimistic mutation
type MutationState int

const (
	Pending MutationState = iota
	Committed
	RolledBack
)

func (s MutationState) String() string {
	switch s {
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "pending"
	}
}

// Mutation tracks an optimistic change from dispatch until the persistence
// provider confirms or rejects it.
type Mutation struct {
	ID   string
	Kind MutationKind

	mu        sync.Mutex
	routineID string
	state     MutationState
	err       error
	result    models.Routine
	done      chan struct{}
}

func newMutation(id string, kind MutationKind, routineID string) *Mutation {
	return &Mutation{
		ID:        id,
		Kind:      kind,
		routineID: routineID,
		done:      make(chan struct{}),
	}
}

// RoutineID is the id the mutation targets. For a create it is the temporary
// id until the provider assigns the real one.
func (m *Mutation) RoutineID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routineID
}

func (m *Mutation) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the persistence failure of a rolled back mutation
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Result is the provider-confirmed routine of a committed create or update.
// It is the zero value for deletes.
func (m *Mutation) Result() models.Routine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result.Clone()
}

// Done is closed once the mutation leaves the Pending state
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mutation settles and returns its error, or until ctx
// is done. Giving up on a mutation does not cancel it.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mutation) commit(result models.Routine) {
	m.mu.Lock()
	if result.ID != "" {
		m.routineID = result.ID
	}
	m.result = result.Clone()
	m.state = Committed
	m.mu.Unlock()
	close(m.done)
}

func (m *Mutation) rollback(err error) {
	m.mu.Lock()
	m.err = err
	m.state = RolledBack
	m.mu.Unlock()
	close(m.done)
}
