// Package store owns the canonical in-memory routine collection for a
// session. Reads go through memoized selectors that hand out copies; writes
// are optimistic mutations reconciled against the persistence provider.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/ledger"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/metrics"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/recurrence"
	"github.com/julianstephens/routinely/internal/storage"
	"github.com/julianstephens/routinely/internal/utils"
)

// LoadState reports the progress of the last fetch
type LoadState int

const (
	Idle LoadState = iota
	Loading
	Ready
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

const tempIDPrefix = "tmp-"

// op is one queued optimistic change. apply is absolute (re-applying it over
// any base yields the state the user asked for) and returns false when the
// routine should disappear from view.
type op struct {
	seq   uint64
	mut   *Mutation
	apply func(r *models.Routine) bool
}

// entry is the per-routine reconciliation state: the last confirmed version
// plus the ops still in flight, in dispatch order.
type entry struct {
	base    *models.Routine
	baseSeq uint64
	seed    models.Routine
	pending []*op
}

func (e *entry) view() (models.Routine, bool) {
	var cur models.Routine
	if e.base != nil {
		cur = e.base.Clone()
	} else {
		cur = e.seed.Clone()
	}
	for _, o := range e.pending {
		if !o.apply(&cur) {
			return models.Routine{}, false
		}
	}
	return cur, true
}

func (e *entry) indexOf(o *op) int {
	for i, p := range e.pending {
		if p == o {
			return i
		}
	}
	return -1
}

func (e *entry) remove(o *op) bool {
	if i := e.indexOf(o); i >= 0 {
		e.pending = append(e.pending[:i:i], e.pending[i+1:]...)
		return true
	}
	return false
}

type Store struct {
	provider  storage.Provider
	reminders storage.ReminderProvider
	clock     clockwork.Clock
	loc       *time.Location
	evaluator *recurrence.Evaluator
	metrics   *metrics.Metrics
	timeout   time.Duration
	group     singleflight.Group

	mu        sync.Mutex
	entries   map[string]*entry
	order     []string
	seq       uint64
	rev       uint64
	loadState LoadState
	loadErr   error
	notices   []Notice
	cache     selectorCache
}

type Option func(*Store)

// WithTimeout bounds every persistence call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLocation sets the timezone that defines "today"
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

func WithEvaluator(e *recurrence.Evaluator) Option {
	return func(s *Store) { s.evaluator = e }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New builds an empty store. reminders may be nil when the backend has no
// reminder service.
func New(provider storage.Provider, reminders storage.ReminderProvider, opts ...Option) *Store {
	s := &Store{
		provider:  provider,
		reminders: reminders,
		clock:     clockwork.NewRealClock(),
		loc:       time.Local,
		timeout:   constants.DefaultAPITimeout,
		entries:   map[string]*entry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.evaluator == nil {
		s.evaluator = recurrence.New(s.loc)
	}
	return s
}

// Today is the current calendar date in the store's location
func (s *Store) Today() models.Date {
	return utils.DateIn(s.clock.Now(), s.loc)
}

func (s *Store) Location() *time.Location {
	return s.loc
}

func (s *Store) Evaluator() *recurrence.Evaluator {
	return s.evaluator
}

func (s *Store) LoadState() LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadState
}

// LoadErr is the error of the last failed fetch
func (s *Store) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Revision increases on every change to the visible collection
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Fetch replaces the confirmed collection with the provider's listing.
// Concurrent fetches for the same filter share one call. Routines with
// mutations in flight keep their optimistic view. A failed fetch empties the
// store.
func (s *Store) Fetch(ctx context.Context, filter storage.Filter) error {
	key := fmt.Sprintf("%s|%s", filter.Status, filter.UserID)
	_, err, shared := s.group.Do(key, func() (any, error) {
		return nil, s.fetch(ctx, filter)
	})
	if shared {
		logger.Debug("Fetch coalesced", "filter", key)
	}
	return err
}

func (s *Store) fetch(ctx context.Context, filter storage.Filter) error {
	s.mu.Lock()
	s.loadState = Loading
	startSeq := s.seq
	s.bump()
	s.mu.Unlock()

	routines, err := call(s, ctx, "list", func(ctx context.Context) ([]models.Routine, error) {
		return s.provider.ListRoutines(ctx, filter)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.bump()

	if err != nil {
		logger.Error("Failed to fetch routines", "error", err)
		s.entries = map[string]*entry{}
		s.order = nil
		s.loadState = Failed
		s.loadErr = err
		return err
	}

	next := make(map[string]*entry, len(routines))
	order := make([]string, 0, len(routines))
	for _, r := range routines {
		r = r.Clone()
		ledger.Normalize(&r)
		if _, dup := next[r.ID]; dup {
			continue
		}
		if e, ok := s.entries[r.ID]; ok && e.base != nil {
			if supersedes(r, startSeq, *e.base, e.baseSeq) {
				e.base = &r
				e.baseSeq = startSeq
			}
			next[r.ID] = e
		} else {
			next[r.ID] = &entry{base: &r, baseSeq: startSeq}
		}
		order = append(order, r.ID)
	}
	for _, id := range s.order {
		if _, ok := next[id]; ok {
			continue
		}
		if e := s.entries[id]; len(e.pending) > 0 {
			next[id] = e
			order = append(order, id)
		}
	}

	s.entries = next
	s.order = order
	s.loadState = Ready
	s.loadErr = nil
	logger.Debug("Fetched routines", "count", len(routines), "visible", len(order))
	return nil
}

type result[T any] struct {
	v   T
	err error
}

// call runs one persistence call under the store timeout. A provider that
// ignores its context still yields a NetworkError once the deadline passes;
// its late result is discarded with the buffered channel.
func call[T any](s *Store, ctx context.Context, opName string, fn func(ctx context.Context) (T, error)) (T, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resc := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		resc <- result[T]{v: v, err: err}
	}()

	var res result[T]
	select {
	case res = <-resc:
	case <-ctx.Done():
		res.err = &apperrors.NetworkError{Op: opName, Err: ctx.Err()}
	}
	err := storage.WrapErr(opName, res.err)

	s.metrics.ObservePersistence(opName, outcomeOf(ctx, err), time.Since(start))
	if err != nil {
		var zero T
		return zero, err
	}
	return res.v, nil
}

// outcomeOf labels a finished call. Only a passed deadline counts as a
// timeout; a caller cancelling is an ordinary error.
func outcomeOf(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	default:
		return metrics.OutcomeError
	}
}

// bump invalidates memoized selectors. Callers hold s.mu.
func (s *Store) bump() {
	s.rev++
}

// supersedes decides last-confirmed-wins between a candidate confirmed
// routine and the current base. Server timestamps decide when both carry
// one; otherwise the later-initiated request wins.
func supersedes(cand models.Routine, candSeq uint64, cur models.Routine, curSeq uint64) bool {
	if !cand.UpdatedAt.IsZero() && !cur.UpdatedAt.IsZero() && !cand.UpdatedAt.Equal(cur.UpdatedAt) {
		return cand.UpdatedAt.After(cur.UpdatedAt)
	}
	return candSeq >= curSeq
}

func newID() string {
	return uuid.New().String()
}
