package validation

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/recurrence"
)

// routineValidate is the shared validator instance, initialized in init()
// with the routine enum validators.
var routineValidate *validator.Validate

func init() {
	routineValidate = validator.New()
	routineValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = routineValidate.RegisterValidation("frequency", func(fl validator.FieldLevel) bool {
		return constants.Frequency(fl.Field().String()).Valid()
	})
	_ = routineValidate.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return constants.Status(fl.Field().String()).Valid()
	})
}

// routineFields is the field-level view of a routine checked by struct tags.
type routineFields struct {
	Title           string   `json:"title" validate:"required,max=200"`
	Frequency       string   `json:"frequency" validate:"required,frequency"`
	Status          string   `json:"status" validate:"required,status"`
	DaysOfWeek      []int    `json:"daysOfWeek" validate:"unique,dive,min=0,max=6"`
	MonthlyDate     int      `json:"monthlyDate" validate:"omitempty,min=1,max=31"`
	ReminderMinutes int      `json:"reminderMinutes" validate:"min=0"`
	Category        string   `json:"category" validate:"max=64"`
	Tags            []string `json:"tags" validate:"dive,required,max=64"`
}

// ValidateRoutine checks a routine before it is sent anywhere. It returns a
// *errors.ValidationError listing every problem, or nil.
func ValidateRoutine(r models.Routine) error {
	verr := &apperrors.ValidationError{}

	days := make([]int, len(r.DaysOfWeek))
	for i, wd := range r.DaysOfWeek {
		days[i] = int(wd)
	}
	fields := routineFields{
		Title:           strings.TrimSpace(r.Title),
		Frequency:       string(r.Frequency),
		Status:          string(r.Status),
		DaysOfWeek:      days,
		MonthlyDate:     r.MonthlyDate,
		ReminderMinutes: r.ReminderMinutes,
		Category:        r.Category,
		Tags:            r.Tags,
	}

	if err := routineValidate.Struct(fields); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("failed to validate routine: %w", err)
		}
		for _, fe := range verrs {
			verr.Add(fieldName(fe), "%s", describe(fe))
		}
	}

	if r.StartTime.IsZero() {
		verr.Add("startTime", "is required")
	}
	if r.EndTime.IsZero() {
		verr.Add("endTime", "is required")
	}
	if !r.StartTime.IsZero() && !r.EndTime.IsZero() &&
		r.StartTime.Hour() == r.EndTime.Hour() && r.StartTime.Minute() == r.EndTime.Minute() {
		verr.Add("endTime", "must differ from startTime")
	}

	// Frequency must agree with the populated schedule fields
	switch {
	case r.Frequency.UsesWeekdays():
		if len(r.DaysOfWeek) == 0 {
			verr.Add("daysOfWeek", "at least one day is required for %s routines", r.Frequency)
		}
		if r.MonthlyDate != 0 {
			verr.Add("monthlyDate", "only applies to monthly routines")
		}
	case r.Frequency == constants.FrequencyMonthly:
		if r.MonthlyDate == 0 {
			verr.Add("monthlyDate", "is required for monthly routines")
		}
		if len(r.DaysOfWeek) > 0 {
			verr.Add("daysOfWeek", "only applies to weekly and biweekly routines")
		}
	case r.Frequency.Valid():
		if len(r.DaysOfWeek) > 0 {
			verr.Add("daysOfWeek", "only applies to weekly and biweekly routines")
		}
		if r.MonthlyDate != 0 {
			verr.Add("monthlyDate", "only applies to monthly routines")
		}
	}

	return verr.ErrOrNil()
}

func fieldName(fe validator.FieldError) string {
	// Namespace is routineFields.daysOfWeek[2]; drop the struct prefix
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "unique":
		return "must not contain duplicates"
	case "frequency":
		return fmt.Sprintf("unknown frequency %q", fe.Value())
	case "status":
		return fmt.Sprintf("unknown status %q", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateTitle      ConflictType = "duplicate_title"
	ConflictInvalidRoutine      ConflictType = "invalid_routine"
	ConflictOverlappingRoutines ConflictType = "overlapping_routines"
)

// Conflict represents a detected conflict among routines
type Conflict struct {
	Type        ConflictType
	Description string
	Date        string   // YYYY-MM-DD format (if applicable)
	Items       []string // Routine titles involved
	RoutineIDs  []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, conflict := range vr.Conflicts {
		fmt.Fprintf(&b, "- %s\n", conflict.Description)
	}
	return b.String()
}

// Validator checks a routine collection for conflicts
type Validator struct {
	evaluator *recurrence.Evaluator
}

// New creates a new Validator
func New(evaluator *recurrence.Evaluator) *Validator {
	return &Validator{evaluator: evaluator}
}

// ValidateRoutines reports invalid routines, duplicate titles and, when date
// is set, active routines scheduled that day whose time windows overlap.
func (v *Validator) ValidateRoutines(routines []models.Routine, date *models.Date) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	titles := make(map[string][]string)
	var order []string
	for _, r := range routines {
		if err := ValidateRoutine(r); err != nil {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictInvalidRoutine,
				Description: fmt.Sprintf("Routine %q: %v", r.Title, err),
				Items:       []string{r.Title},
				RoutineIDs:  []string{r.ID},
			})
		}

		key := strings.ToLower(strings.TrimSpace(r.Title))
		if key == "" {
			continue
		}
		if _, seen := titles[key]; !seen {
			order = append(order, key)
		}
		titles[key] = append(titles[key], r.ID)
	}

	for _, key := range order {
		ids := titles[key]
		if len(ids) > 1 {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictDuplicateTitle,
				Description: fmt.Sprintf("Duplicate routine title: %q (IDs: %v)", key, ids),
				Items:       []string{key},
				RoutineIDs:  ids,
			})
		}
	}

	if date != nil && v.evaluator != nil {
		result.Conflicts = append(result.Conflicts, v.overlaps(routines, *date)...)
	}

	return result
}

type window struct {
	routine    models.Routine
	start, end int // minutes from midnight; end may exceed 24h when wrapping
}

func (v *Validator) overlaps(routines []models.Routine, date models.Date) []Conflict {
	loc := v.evaluator.Location
	if loc == nil {
		loc = time.Local
	}

	var windows []window
	for _, r := range routines {
		if !v.evaluator.IsDue(r, date) {
			continue
		}
		start := r.StartTime.In(loc)
		startMin := start.Hour()*60 + start.Minute()
		windows = append(windows, window{
			routine: r,
			start:   startMin,
			end:     startMin + int(r.Duration().Minutes()),
		})
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].start < windows[j].start
	})

	var conflicts []Conflict
	for i := 0; i < len(windows); i++ {
		for j := i + 1; j < len(windows); j++ {
			a, b := windows[i], windows[j]
			if b.start >= a.end {
				break
			}
			conflicts = append(conflicts, Conflict{
				Type: ConflictOverlappingRoutines,
				Description: fmt.Sprintf("Routines %q and %q overlap on %s (%s-%s)",
					a.routine.Title, b.routine.Title, date,
					clock(b.start), clock(min(a.end, b.end))),
				Date:       date.String(),
				Items:      []string{a.routine.Title, b.routine.Title},
				RoutineIDs: []string{a.routine.ID, b.routine.ID},
			})
		}
	}
	return conflicts
}

func clock(minutes int) string {
	minutes %= 24 * 60
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
