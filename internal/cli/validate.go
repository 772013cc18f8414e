package cli

import (
	"context"

	"github.com/julianstephens/routinely/internal/validation"
)

type ValidateCmd struct {
	Date string `help:"Also check for overlapping time windows on this date (YYYY-MM-DD, today or yesterday)."`
}

func (cmd *ValidateCmd) Run(ctx *Context) error {
	goCtx := context.Background()
	if err := ctx.Load(goCtx); err != nil {
		return err
	}

	validator := validation.New(ctx.Store.Evaluator())
	routines := ctx.Store.All()

	ctx.println("Validating routines...")
	if cmd.Date == "" {
		ctx.printReport(validator.ValidateRoutines(routines, nil))
		return nil
	}

	date, err := parseDate(cmd.Date, ctx.Store.Today())
	if err != nil {
		return err
	}
	ctx.printf("Checking schedule for %s...\n", date)
	result := validator.ValidateRoutines(routines, &date)

	ctx.printReport(result)
	return nil
}

// printReport shows conflicts without failing the command
func (c *Context) printReport(result validation.ValidationResult) {
	c.println()
	if result.HasConflicts() {
		c.println(warnStyle.Render(result.FormatReport()))
		return
	}
	c.println(doneStyle.Render(result.FormatReport()))
}
