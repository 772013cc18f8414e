package store

import (
	"cmp"
	"slices"
	"strings"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/ledger"
	"github.com/julianstephens/routinely/internal/models"
)

// SortBy orders search results
type SortBy string

const (
	SortByName      SortBy = "name"
	SortByStartTime SortBy = "start_time"
	SortByStatus    SortBy = "status"
)

// Query filters and orders routines for Search. Empty Text matches all.
type Query struct {
	Text   string
	SortBy SortBy
	Desc   bool
}

// Stats summarizes the visible collection
type Stats struct {
	Total          int
	ByStatus       map[constants.Status]int
	DueToday       int
	CompletedToday int
	Pending        int
}

// selectorCache memoizes selector results for one revision and one day
type selectorCache struct {
	rev    uint64
	day    models.Date
	values map[string]any
}

// memoLocked returns the cached value for key, computing it on a miss.
// Callers hold s.mu.
func (s *Store) memoLocked(key string, compute func() any) any {
	today := s.Today()
	if s.cache.values == nil || s.cache.rev != s.rev || s.cache.day != today {
		s.cache = selectorCache{rev: s.rev, day: today, values: map[string]any{}}
	}
	if v, ok := s.cache.values[key]; ok {
		return v
	}
	v := compute()
	s.cache.values[key] = v
	return v
}

func (s *Store) visibleLocked() []models.Routine {
	return s.memoLocked("all", func() any {
		out := make([]models.Routine, 0, len(s.order))
		for _, id := range s.order {
			e, ok := s.entries[id]
			if !ok {
				continue
			}
			if r, visible := e.view(); visible {
				out = append(out, r)
			}
		}
		return out
	}).([]models.Routine)
}

func (s *Store) selectLocked(key string, keep func(models.Routine) bool) []models.Routine {
	cached := s.memoLocked(key, func() any {
		var out []models.Routine
		for _, r := range s.visibleLocked() {
			if keep(r) {
				out = append(out, r)
			}
		}
		return out
	}).([]models.Routine)
	return cloneAll(cached)
}

func cloneAll(routines []models.Routine) []models.Routine {
	out := make([]models.Routine, len(routines))
	for i, r := range routines {
		out[i] = r.Clone()
	}
	return out
}

// All returns every visible routine in insertion order
func (s *Store) All() []models.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.visibleLocked())
}

func (s *Store) Get(id string) (models.Routine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		if r, visible := e.view(); visible {
			return r, nil
		}
	}
	return models.Routine{}, &apperrors.NotFoundError{ID: id}
}

// IsPending reports whether the routine has mutations in flight
func (s *Store) IsPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return ok && len(e.pending) > 0
}

func (s *Store) ByStatus(status constants.Status) []models.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked("status:"+string(status), func(r models.Routine) bool {
		return r.Status == status
	})
}

func (s *Store) Active() []models.Routine    { return s.ByStatus(constants.StatusActive) }
func (s *Store) Paused() []models.Routine    { return s.ByStatus(constants.StatusPaused) }
func (s *Store) Completed() []models.Routine { return s.ByStatus(constants.StatusCompleted) }

// ByCategory matches categories case-insensitively
func (s *Store) ByCategory(category string) []models.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked("category:"+strings.ToLower(category), func(r models.Routine) bool {
		return strings.EqualFold(r.Category, category)
	})
}

func (s *Store) ByTag(tag string) []models.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked("tag:"+tag, func(r models.Routine) bool {
		return r.HasTag(tag)
	})
}

func (s *Store) ByFrequency(f constants.Frequency) []models.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked("frequency:"+string(f), func(r models.Routine) bool {
		return r.Frequency == f
	})
}

// DueToday returns active routines the evaluator schedules for today
func (s *Store) DueToday() []models.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := s.Today()
	return s.selectLocked("due", func(r models.Routine) bool {
		return s.evaluator.IsDue(r, today)
	})
}

// Agenda returns today's board: routines due today plus routines scheduled
// today that were already completed today
func (s *Store) Agenda() []models.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := s.Today()
	return s.selectLocked("agenda", func(r models.Routine) bool {
		if s.evaluator.IsDue(r, today) {
			return true
		}
		return r.Status == constants.StatusCompleted &&
			s.evaluator.IsScheduledOn(r, today) &&
			ledger.CompletionFor(r, today)
	})
}

// Tracked returns the routines whose history is still of interest: active
// and completed ones, in collection order
func (s *Store) Tracked() []models.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked("tracked", func(r models.Routine) bool {
		return r.Status == constants.StatusActive || r.Status == constants.StatusCompleted
	})
}

// Categories lists the distinct non-empty categories, sorted
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.memoLocked("categories", func() any {
		var out []string
		for _, r := range s.visibleLocked() {
			if r.Category != "" {
				out = append(out, r.Category)
			}
		}
		slices.Sort(out)
		return slices.Compact(out)
	}).([]string))
}

// Tags lists the distinct tags, sorted
func (s *Store) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.memoLocked("tags", func() any {
		var out []string
		for _, r := range s.visibleLocked() {
			out = append(out, r.Tags...)
		}
		slices.Sort(out)
		return slices.Compact(out)
	}).([]string))
}

// TodayStatus maps each routine id to whether it is completed today
func (s *Store) TodayStatus() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached := s.memoLocked("today", func() any {
		today := s.Today()
		out := make(map[string]bool, len(s.order))
		for _, r := range s.visibleLocked() {
			out[r.ID] = ledger.CompletionFor(r, today)
		}
		return out
	}).(map[string]bool)

	out := make(map[string]bool, len(cached))
	for k, v := range cached {
		out[k] = v
	}
	return out
}

// Search returns routines whose title, description or tags contain the
// query text (case-insensitive), ordered by q.SortBy.
func (s *Store) Search(q Query) []models.Routine {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(q.Text))
	key := "search:" + needle + "|" + string(q.SortBy)
	if q.Desc {
		key += "|desc"
	}

	cached := s.memoLocked(key, func() any {
		var out []models.Routine
		for _, r := range s.visibleLocked() {
			if matches(r, needle) {
				out = append(out, r)
			}
		}
		slices.SortStableFunc(out, s.comparator(q))
		return out
	}).([]models.Routine)
	return cloneAll(cached)
}

func matches(r models.Routine, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Title), needle) || strings.Contains(strings.ToLower(r.Description), needle) {
		return true
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

var statusRank = map[constants.Status]int{
	constants.StatusActive:    0,
	constants.StatusPaused:    1,
	constants.StatusCompleted: 2,
	constants.StatusInactive:  3,
}

func (s *Store) comparator(q Query) func(a, b models.Routine) int {
	minuteOfDay := func(r models.Routine) int {
		t := r.StartTime.In(s.loc)
		return t.Hour()*60 + t.Minute()
	}
	byName := func(a, b models.Routine) int {
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	}

	var primary func(a, b models.Routine) int
	switch q.SortBy {
	case SortByStartTime:
		primary = func(a, b models.Routine) int { return cmp.Compare(minuteOfDay(a), minuteOfDay(b)) }
	case SortByStatus:
		primary = func(a, b models.Routine) int { return cmp.Compare(statusRank[a.Status], statusRank[b.Status]) }
	case SortByName:
		primary = byName
	default:
		return func(a, b models.Routine) int { return 0 }
	}

	return func(a, b models.Routine) int {
		c := primary(a, b)
		if c == 0 && q.SortBy != SortByName {
			c = byName(a, b)
		}
		if q.Desc {
			return -c
		}
		return c
	}
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.Today()
	st := Stats{ByStatus: map[constants.Status]int{}}
	for _, r := range s.visibleLocked() {
		st.Total++
		st.ByStatus[r.Status]++
		if s.evaluator.IsDue(r, today) {
			st.DueToday++
		}
		if ledger.CompletionFor(r, today) {
			st.CompletedToday++
		}
	}
	for _, e := range s.entries {
		if len(e.pending) > 0 {
			st.Pending++
		}
	}
	return st
}
