package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/config"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"string" default:"${config_path}"`
	Debug   bool   `help:"Enable debug logging to stderr."`

	Init     cli.InitCmd     `cmd:"" help:"Write the default config and initialize storage."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Tui      cli.TuiCmd      `cmd:"" help:"Launch the interactive today board." default:"1"`
	List     cli.ListCmd     `cmd:"" help:"List routines."`
	Add      cli.AddCmd      `cmd:"" help:"Add a routine."`
	Edit     cli.EditCmd     `cmd:"" help:"Edit a routine."`
	Delete   cli.DeleteCmd   `cmd:"" help:"Delete a routine and its reminders."`
	Status   cli.StatusCmd   `cmd:"" help:"Change a routine's status."`
	Complete cli.CompleteCmd `cmd:"" help:"Toggle a routine's completion for a day."`
	Today    cli.TodayCmd    `cmd:"" help:"Show routines due today grouped by time of day."`
	Log      cli.LogCmd      `cmd:"" help:"Show recent completion history."`
	Streak   cli.StreakCmd   `cmd:"" help:"Show current and longest streaks."`
	Validate cli.ValidateCmd `cmd:"" help:"Check routines for conflicts."`
	Backup   cli.BackupCmd   `cmd:"" help:"Manage database backups (sqlite backend)."`
	Token    cli.TokenCmd    `cmd:"" help:"Manage the API token in the OS keyring."`
	Debugs   cli.DebugCmd    `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Recurring routines with completion tracking and streaks"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": config.DefaultPath(),
		},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.Debug {
		cfg.Debug = true
	}

	logPath, err := cfg.LogPath()
	if err == nil {
		err = logger.Init(logger.Options{
			Path:       logPath,
			Level:      cfg.Log.Level,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Debug:      cfg.Debug,
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	appCtx, err := cli.NewContext(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = ctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		logger.Warn("Failed to close backend", "error", closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
