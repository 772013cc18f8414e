package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/config"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/validation"
)

// warning is a check result that does not fail the run
type warning struct{ msg string }

func (w *warning) Error() string { return w.msg }

func warnf(format string, args ...any) error {
	return &warning{msg: fmt.Sprintf(format, args...)}
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	goCtx := context.Background()
	hasError := false
	report := func(name string, err error) {
		switch {
		case err == nil:
			ctx.printf("✓ %s: OK\n", name)
		case errors.As(err, new(*warning)):
			ctx.printf("⚠ %s: WARNING\n", name)
			ctx.printf("   %v\n", err)
		default:
			ctx.printf("❌ %s: FAIL\n", name)
			ctx.printf("   Error: %v\n", err)
			hasError = true
		}
	}

	report("Config", ctx.Config.Validate())

	if ctx.Config.Backend == constants.BackendAPI {
		_, err := config.Token()
		report("API token", err)
	}

	reachable := ctx.Load(goCtx)
	report("Backend reachable", reachable)

	if ctx.Backend != nil && reachable == nil {
		report("Schema version", checkSchemaVersion(goCtx, ctx))
	}
	if _, err := ctx.sqliteBackend("doctor"); err == nil {
		report("Backups present", checkBackupsPresent(ctx))
	}

	if reachable == nil {
		report("Data validation", checkValidation(ctx))
	} else {
		ctx.println("⊘ Data validation: SKIPPED (backend not reachable)")
	}

	report("Clock/timezone", checkClockTimezone(ctx))

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.println("All diagnostics passed!")
	return nil
}

func checkSchemaVersion(goCtx context.Context, ctx *Context) error {
	current, latest, err := ctx.Backend.SchemaVersion(goCtx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	mgr, err := ctx.backupManager("doctor")
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return warnf("no backups found, consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkValidation(ctx *Context) error {
	result := validation.New(ctx.Store.Evaluator()).ValidateRoutines(ctx.Store.All(), nil)
	invalid := 0
	for _, c := range result.Conflicts {
		if c.Type == validation.ConflictInvalidRoutine {
			invalid++
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d invalid routine(s), run '%s validate' for details", invalid, constants.AppName)
	}
	if result.HasConflicts() {
		return warnf("%d conflict(s), run '%s validate' for details", len(result.Conflicts), constants.AppName)
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	loc, err := ctx.Config.Location()
	if err != nil {
		return err
	}
	if loc == time.UTC {
		ctx.println("   Note: timezone is UTC")
	}
	return nil
}
