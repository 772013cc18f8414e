package models

import (
	"slices"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
)

// CompletionEntry records whether a routine was done on one calendar date.
type CompletionEntry struct {
	Date      Date `json:"date"`
	Completed bool `json:"completed"`
}

// Routine is a recurring activity with a time-of-day window and a recurrence rule.
type Routine struct {
	ID               string              `json:"id,omitempty"`
	UserID           string              `json:"userId,omitempty"`
	Title            string              `json:"title"`
	Description      string              `json:"description,omitempty"`
	StartTime        time.Time           `json:"startTime"`
	EndTime          time.Time           `json:"endTime"`
	Frequency        constants.Frequency `json:"frequency"`
	DaysOfWeek       []time.Weekday      `json:"daysOfWeek,omitempty"`
	MonthlyDate      int                 `json:"monthlyDate,omitempty"`
	Status           constants.Status    `json:"status"`
	ReminderMinutes  int                 `json:"reminderMinutes"`
	Category         string              `json:"category,omitempty"`
	Tags             []string            `json:"tags,omitempty"`
	CompletionStatus []CompletionEntry   `json:"completionStatus"`
	CreatedAt        time.Time           `json:"createdAt,omitzero"`
	UpdatedAt        time.Time           `json:"updatedAt,omitzero"`
}

// Clone returns a deep copy so callers can never alias store-owned slices.
func (r Routine) Clone() Routine {
	c := r
	c.DaysOfWeek = slices.Clone(r.DaysOfWeek)
	c.Tags = slices.Clone(r.Tags)
	c.CompletionStatus = slices.Clone(r.CompletionStatus)
	return c
}

// Duration returns the length of the routine's time window. An end time at or
// before the start time wraps past midnight.
func (r Routine) Duration() time.Duration {
	start := r.StartTime.Hour()*60 + r.StartTime.Minute()
	end := r.EndTime.Hour()*60 + r.EndTime.Minute()
	if end <= start {
		end += 24 * 60
	}
	return time.Duration(end-start) * time.Minute
}

// HasTag reports whether the routine carries tag (exact match).
func (r Routine) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// RoutinePatch is a partial update. Nil fields are left untouched.
type RoutinePatch struct {
	Title           *string              `json:"title,omitempty"`
	Description     *string              `json:"description,omitempty"`
	StartTime       *time.Time           `json:"startTime,omitempty"`
	EndTime         *time.Time           `json:"endTime,omitempty"`
	Frequency       *constants.Frequency `json:"frequency,omitempty"`
	DaysOfWeek      *[]time.Weekday      `json:"daysOfWeek,omitempty"`
	MonthlyDate     *int                 `json:"monthlyDate,omitempty"`
	Status          *constants.Status    `json:"status,omitempty"`
	ReminderMinutes *int                 `json:"reminderMinutes,omitempty"`
	Category        *string              `json:"category,omitempty"`
	Tags            *[]string            `json:"tags,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p RoutinePatch) IsEmpty() bool {
	return p == RoutinePatch{}
}

// Apply writes the patch's set fields onto r.
func (p RoutinePatch) Apply(r *Routine) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		r.EndTime = *p.EndTime
	}
	if p.Frequency != nil {
		r.Frequency = *p.Frequency
	}
	if p.DaysOfWeek != nil {
		r.DaysOfWeek = slices.Clone(*p.DaysOfWeek)
	}
	if p.MonthlyDate != nil {
		r.MonthlyDate = *p.MonthlyDate
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.ReminderMinutes != nil {
		r.ReminderMinutes = *p.ReminderMinutes
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Tags != nil {
		r.Tags = slices.Clone(*p.Tags)
	}
}

// RoutineDraft is a routine that has not been persisted yet. It is what a
// create request carries; the provider assigns the id and timestamps.
type RoutineDraft struct {
	UserID           string              `json:"userId,omitempty"`
	Title            string              `json:"title"`
	Description      string              `json:"description,omitempty"`
	StartTime        time.Time           `json:"startTime"`
	EndTime          time.Time           `json:"endTime"`
	Frequency        constants.Frequency `json:"frequency"`
	DaysOfWeek       []time.Weekday      `json:"daysOfWeek,omitempty"`
	MonthlyDate      int                 `json:"monthlyDate,omitempty"`
	Status           constants.Status    `json:"status"`
	ReminderMinutes  int                 `json:"reminderMinutes"`
	Category         string              `json:"category,omitempty"`
	Tags             []string            `json:"tags,omitempty"`
	CompletionStatus []CompletionEntry   `json:"completionStatus"`
}

// Routine materializes the draft under id.
func (d RoutineDraft) Routine(id string) Routine {
	return Routine{
		ID:               id,
		UserID:           d.UserID,
		Title:            d.Title,
		Description:      d.Description,
		StartTime:        d.StartTime,
		EndTime:          d.EndTime,
		Frequency:        d.Frequency,
		DaysOfWeek:       slices.Clone(d.DaysOfWeek),
		MonthlyDate:      d.MonthlyDate,
		Status:           d.Status,
		ReminderMinutes:  d.ReminderMinutes,
		Category:         d.Category,
		Tags:             slices.Clone(d.Tags),
		CompletionStatus: slices.Clone(d.CompletionStatus),
	}
}

// Draft strips the provider-owned fields from r.
func (r Routine) Draft() RoutineDraft {
	c := r.Clone()
	return RoutineDraft{
		UserID:           c.UserID,
		Title:            c.Title,
		Description:      c.Description,
		StartTime:        c.StartTime,
		EndTime:          c.EndTime,
		Frequency:        c.Frequency,
		DaysOfWeek:       c.DaysOfWeek,
		MonthlyDate:      c.MonthlyDate,
		Status:           c.Status,
		ReminderMinutes:  c.ReminderMinutes,
		Category:         c.Category,
		Tags:             c.Tags,
		CompletionStatus: c.CompletionStatus,
	}
}
