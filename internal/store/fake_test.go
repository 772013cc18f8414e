package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"

	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

// fakeProvider is an in-memory provider. Hooks, when set, replace the
// default behavior of a single method.
type fakeProvider struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	routines map[string]models.Routine
	order    []string
	nextID   int
	calls    map[string]int

	listHook   func(ctx context.Context, filter storage.Filter) ([]models.Routine, error)
	createHook func(ctx context.Context, draft models.RoutineDraft) (models.Routine, error)
	updateHook func(ctx context.Context, r models.Routine) (models.Routine, error)
	deleteHook func(ctx context.Context, id string) error
}

func newFakeProvider(clock clockwork.Clock, seed ...models.Routine) *fakeProvider {
	p := &fakeProvider{clock: clock, routines: map[string]models.Routine{}, calls: map[string]int{}}
	for _, r := range seed {
		p.routines[r.ID] = r.Clone()
		p.order = append(p.order, r.ID)
	}
	return p
}

func (p *fakeProvider) count(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

func (p *fakeProvider) record(method string) {
	p.mu.Lock()
	p.calls[method]++
	p.mu.Unlock()
}

func (p *fakeProvider) ListRoutines(ctx context.Context, filter storage.Filter) ([]models.Routine, error) {
	p.record("list")
	if p.listHook != nil {
		return p.listHook(ctx, filter)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Routine
	for _, id := range p.order {
		if r := p.routines[id]; filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (p *fakeProvider) CreateRoutine(ctx context.Context, draft models.RoutineDraft) (models.Routine, error) {
	p.record("create")
	if p.createHook != nil {
		return p.createHook(ctx, draft)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	r := draft.Routine(fmt.Sprintf("srv-%d", p.nextID))
	r.CreatedAt = p.clock.Now()
	r.UpdatedAt = r.CreatedAt
	p.routines[r.ID] = r
	p.order = append(p.order, r.ID)
	return r.Clone(), nil
}

func (p *fakeProvider) UpdateRoutine(ctx context.Context, r models.Routine) (models.Routine, error) {
	p.record("update")
	if p.updateHook != nil {
		return p.updateHook(ctx, r)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.routines[r.ID]; !ok {
		return models.Routine{}, &apperrors.NotFoundError{ID: r.ID}
	}
	r = r.Clone()
	r.UpdatedAt = p.clock.Now()
	p.routines[r.ID] = r
	return r.Clone(), nil
}

func (p *fakeProvider) DeleteRoutine(ctx context.Context, id string) error {
	p.record("delete")
	if p.deleteHook != nil {
		return p.deleteHook(ctx, id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.routines[id]; !ok {
		return &apperrors.NotFoundError{ID: id}
	}
	delete(p.routines, id)
	p.order = slices.DeleteFunc(p.order, func(cur string) bool { return cur == id })
	return nil
}

type fakeReminders struct {
	mu      sync.Mutex
	err     error
	deleted []string
}

func (f *fakeReminders) DeleteRemindersFor(ctx context.Context, entityType, entityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, entityType+"/"+entityID)
	return f.err
}
