package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/store"
	"github.com/julianstephens/routinely/internal/utils"
)

type ListCmd struct {
	Status    string `help:"Only show routines with this status (active|paused|completed|inactive)."`
	Category  string `help:"Only show routines in this category."`
	Tag       string `help:"Only show routines carrying this tag."`
	Frequency string `help:"Only show routines with this frequency."`
	Search    string `short:"q" help:"Case-insensitive search over title, description and tags."`
	Sort      string `help:"Sort by name, start_time or status."`
	Desc      bool   `help:"Reverse the sort order."`
}

func (c *ListCmd) Run(ctx *Context) error {
	switch store.SortBy(c.Sort) {
	case "", store.SortByName, store.SortByStartTime, store.SortByStatus:
	default:
		return fmt.Errorf("invalid --sort %q (expected name, start_time or status)", c.Sort)
	}

	goCtx := context.Background()
	if err := ctx.Load(goCtx); err != nil {
		return err
	}

	routines := ctx.Store.Search(store.Query{Text: c.Search, SortBy: store.SortBy(c.Sort), Desc: c.Desc})
	keep := func(r models.Routine) bool {
		switch {
		case c.Status != "" && r.Status != constants.Status(c.Status):
			return false
		case c.Category != "" && !strings.EqualFold(r.Category, c.Category):
			return false
		case c.Tag != "" && !r.HasTag(c.Tag):
			return false
		case c.Frequency != "" && r.Frequency != constants.Frequency(c.Frequency):
			return false
		}
		return true
	}

	today := ctx.Store.Today()
	shown := 0
	for _, r := range routines {
		if !keep(r) {
			continue
		}
		ctx.println(routineLine(r, ctx.Store.Location(), today))
		shown++
	}
	if shown == 0 {
		ctx.println("No routines found.")
	}
	return nil
}

// RoutineFlags are shared by add and edit
type RoutineFlags struct {
	Start       string   `help:"Start time (HH:MM)."`
	End         string   `help:"End time (HH:MM)."`
	Frequency   string   `short:"f" help:"Frequency (daily|weekly|biweekly|monthly|custom)."`
	Days        string   `short:"w" help:"Comma-separated weekdays for weekly and biweekly routines."`
	MonthlyDate int      `help:"Day of month (1-31) for monthly routines."`
	Reminder    *int     `help:"Reminder lead time in minutes."`
	Category    *string  `help:"Category."`
	Tag         []string `short:"t" help:"Tag (repeatable)."`
	Description *string  `short:"d" help:"Description."`
}

type AddCmd struct {
	Title       string       `arg:"" optional:"" help:"Routine title."`
	Interactive bool         `short:"i" help:"Fill in the routine with an interactive form."`
	Flags       RoutineFlags `embed:""`
}

func (c *AddCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	if err := ctx.Load(goCtx); err != nil {
		return err
	}

	if c.Interactive {
		if err := runRoutineForm(&c.Title, &c.Flags); err != nil {
			return err
		}
	}
	if c.Title == "" || c.Flags.Start == "" || c.Flags.End == "" || c.Flags.Frequency == "" {
		return fmt.Errorf("title, --start, --end and --frequency are required (or use --interactive)")
	}

	draft := models.RoutineDraft{
		UserID:          ctx.Config.API.UserID,
		Title:           c.Title,
		Frequency:       constants.Frequency(c.Flags.Frequency),
		MonthlyDate:     c.Flags.MonthlyDate,
		Status:          constants.StatusActive,
		ReminderMinutes: constants.DefaultReminderMins,
		Tags:            c.Flags.Tag,
	}
	if err := c.Flags.applyTo(ctx, &draft.StartTime, &draft.EndTime, &draft.DaysOfWeek); err != nil {
		return err
	}
	if c.Flags.Reminder != nil {
		draft.ReminderMinutes = *c.Flags.Reminder
	}
	if c.Flags.Category != nil {
		draft.Category = *c.Flags.Category
	}
	if c.Flags.Description != nil {
		draft.Description = *c.Flags.Description
	}

	m, err := ctx.Store.Create(goCtx, draft)
	created, err := settle(goCtx, m, err)
	if err != nil {
		return err
	}
	ctx.printf("Added routine: %s (%s)\n", created.Title, created.ID)
	return nil
}

// applyTo parses the time and weekday flags that were set
func (f *RoutineFlags) applyTo(ctx *Context, start, end *time.Time, days *[]time.Weekday) error {
	today := ctx.Store.Today()
	loc := ctx.Store.Location()
	if f.Start != "" {
		t, err := utils.TimeOfDay(f.Start, today, loc)
		if err != nil {
			return err
		}
		*start = t
	}
	if f.End != "" {
		t, err := utils.TimeOfDay(f.End, today, loc)
		if err != nil {
			return err
		}
		*end = t
	}
	if f.Days != "" {
		wds, err := ParseWeekdays(f.Days)
		if err != nil {
			return err
		}
		*days = wds
	}
	return nil
}

type EditCmd struct {
	ID    string       `arg:"" help:"Routine ID."`
	Title string       `help:"New title."`
	Flags RoutineFlags `embed:""`
}

func (c *EditCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	if err := ctx.Load(goCtx); err != nil {
		return err
	}

	var patch models.RoutinePatch
	if c.Title != "" {
		patch.Title = &c.Title
	}
	if c.Flags.Frequency != "" {
		freq := constants.Frequency(c.Flags.Frequency)
		patch.Frequency = &freq
		// switching frequency clears the schedule fields it does not use
		if !freq.UsesWeekdays() && c.Flags.Days == "" {
			none := []time.Weekday{}
			patch.DaysOfWeek = &none
		}
		if freq != constants.FrequencyMonthly && c.Flags.MonthlyDate == 0 {
			zero := 0
			patch.MonthlyDate = &zero
		}
	}
	if c.Flags.MonthlyDate != 0 {
		patch.MonthlyDate = &c.Flags.MonthlyDate
	}
	if c.Flags.Reminder != nil {
		patch.ReminderMinutes = c.Flags.Reminder
	}
	if c.Flags.Category != nil {
		patch.Category = c.Flags.Category
	}
	if c.Flags.Description != nil {
		patch.Description = c.Flags.Description
	}
	if len(c.Flags.Tag) > 0 {
		patch.Tags = &c.Flags.Tag
	}

	var start, end time.Time
	var days []time.Weekday
	if err := c.Flags.applyTo(ctx, &start, &end, &days); err != nil {
		return err
	}
	if c.Flags.Start != "" {
		patch.StartTime = &start
	}
	if c.Flags.End != "" {
		patch.EndTime = &end
	}
	if c.Flags.Days != "" {
		patch.DaysOfWeek = &days
	}

	if patch.IsEmpty() {
		return fmt.Errorf("nothing to change")
	}

	m, err := ctx.Store.Update(goCtx, c.ID, patch)
	updated, err := settle(goCtx, m, err)
	if err != nil {
		return err
	}
	ctx.printf("Updated routine: %s (%s)\n", updated.Title, updated.ID)
	return nil
}

type DeleteCmd struct {
	ID string `arg:"" help:"Routine ID."`
}

func (c *DeleteCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	if err := ctx.Load(goCtx); err != nil {
		return err
	}
	r, err := ctx.Store.Get(c.ID)
	if err != nil {
		return err
	}
	m, err := ctx.Store.Delete(goCtx, c.ID)
	if _, err := settle(goCtx, m, err); err != nil {
		return err
	}
	ctx.printf("Deleted routine: %s\n", r.Title)
	return nil
}

type StatusCmd struct {
	ID     string `arg:"" help:"Routine ID."`
	Status string `arg:"" help:"New status." enum:"active,paused,completed,inactive"`
}

func (c *StatusCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	if err := ctx.Load(goCtx); err != nil {
		return err
	}
	m, err := ctx.Store.SetStatus(goCtx, c.ID, constants.Status(c.Status))
	updated, err := settle(goCtx, m, err)
	if err != nil {
		return err
	}
	ctx.printf("%s is now %s\n", updated.Title, statusLabel(updated.Status))
	return nil
}
