package cli

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/julianstephens/routinely/internal/ledger"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/store"
	"github.com/julianstephens/routinely/internal/streak"
	"github.com/julianstephens/routinely/internal/timeofday"
	"github.com/julianstephens/routinely/internal/tui/components/history"
	"github.com/julianstephens/routinely/internal/utils"
)

type CompleteCmd struct {
	ID   string `arg:"" help:"Routine ID."`
	Date string `help:"Date to mark (YYYY-MM-DD, today or yesterday)." default:"today"`
	Undo bool   `help:"Clear the completion instead of toggling it."`
}

func (c *CompleteCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	if err := ctx.Load(goCtx); err != nil {
		return err
	}

	date, err := parseDate(c.Date, ctx.Store.Today())
	if err != nil {
		return err
	}

	var m *store.Mutation
	if c.Undo {
		m, err = ctx.Store.RecordCompletion(goCtx, c.ID, date, false)
	} else {
		m, err = ctx.Store.ToggleCompletion(goCtx, c.ID, date)
	}
	r, err := settle(goCtx, m, err)
	if err != nil {
		return err
	}
	if ledger.CompletionFor(r, date) {
		ctx.printf("%s Completed %q on %s (streak: %d)\n", doneStyle.Render("✓"), r.Title, date, streak.Current(r, ctx.Store.Today()))
	} else {
		ctx.printf("Marked %q not done on %s\n", r.Title, date)
	}
	return nil
}

type TodayCmd struct{}

func (c *TodayCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	if err := ctx.Load(goCtx); err != nil {
		return err
	}

	today := ctx.Store.Today()
	loc := ctx.Store.Location()
	due := ctx.Store.Agenda()
	if len(due) == 0 {
		ctx.println("Nothing due today.")
		return nil
	}
	slices.SortStableFunc(due, func(a, b models.Routine) int {
		return cmp.Compare(utils.MinuteOfDay(a.StartTime, loc), utils.MinuteOfDay(b.StartTime, loc))
	})

	ctx.println(headingStyle.Render(fmt.Sprintf("Today (%s, %s)", today, today.Weekday())))
	groups := timeofday.Group(due, loc)
	done := 0
	section := func(heading string, routines []models.Routine) {
		if len(routines) == 0 {
			return
		}
		ctx.println()
		ctx.println(heading)
		for _, r := range routines {
			if ledger.CompletionFor(r, today) {
				done++
			}
			ctx.println("  " + routineLine(r, loc, today))
		}
	}
	for _, period := range timeofday.Grouped {
		section(headingStyle.Render(period.Label()), groups[period])
	}
	// night-time routines sit outside the grouped view
	section(mutedStyle.Render("Outside day periods"), groups[timeofday.Other])
	ctx.println()
	ctx.println(mutedStyle.Render(fmt.Sprintf("%d/%d done", done, len(due))))
	return nil
}

type LogCmd struct {
	Days    int    `help:"Number of days to show (defaults to history_days from config)."`
	Routine string `help:"Only show this routine."`
}

func (c *LogCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	if err := ctx.Load(goCtx); err != nil {
		return err
	}

	days := c.Days
	if days <= 0 {
		days = ctx.Config.HistoryDays
	}

	var routines []models.Routine
	if c.Routine != "" {
		r, err := ctx.Store.Get(c.Routine)
		if err != nil {
			return err
		}
		routines = []models.Routine{r}
	} else {
		routines = ctx.Store.Tracked()
	}
	if len(routines) == 0 {
		ctx.println("No routines to show.")
		return nil
	}

	today := ctx.Store.Today()
	ctx.println(headingStyle.Render(fmt.Sprintf("Last %d days", days)))
	ctx.println(history.Render(routines, today, days))
	return nil
}

type StreakCmd struct {
	ID string `arg:"" optional:"" help:"Routine ID (all active and completed routines when omitted)."`
}

func (c *StreakCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	if err := ctx.Load(goCtx); err != nil {
		return err
	}

	var routines []models.Routine
	if c.ID != "" {
		r, err := ctx.Store.Get(c.ID)
		if err != nil {
			return err
		}
		routines = []models.Routine{r}
	} else {
		routines = ctx.Store.Tracked()
	}

	today := ctx.Store.Today()
	for _, r := range routines {
		ctx.printf("%-24s current: %d  longest: %d\n", r.Title, streak.Current(r, today), streak.Longest(r))
	}
	if len(routines) == 0 {
		ctx.println("No routines to show.")
	}
	return nil
}
