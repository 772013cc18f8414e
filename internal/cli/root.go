package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/julianstephens/routinely/internal/api"
	"github.com/julianstephens/routinely/internal/backup"
	"github.com/julianstephens/routinely/internal/config"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/metrics"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/recurrence"
	"github.com/julianstephens/routinely/internal/storage"
	"github.com/julianstephens/routinely/internal/storage/postgres"
	"github.com/julianstephens/routinely/internal/storage/sqlite"
	"github.com/julianstephens/routinely/internal/store"
)

// Context is handed to every command's Run method
type Context struct {
	Config config.Config
	// Backend is the local database, nil when talking to the API
	Backend  storage.Backend
	Provider storage.Provider
	Store    *store.Store
	Registry *prometheus.Registry
	Out      io.Writer

	loaded   bool
	setupErr error
}

// NewContext wires the configured backend into a routine store. Nothing is
// opened until Load.
func NewContext(cfg config.Config) (*Context, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	c := &Context{
		Config:   cfg,
		Registry: prometheus.NewRegistry(),
		Out:      os.Stdout,
	}

	var reminders storage.ReminderProvider
	switch cfg.Backend {
	case constants.BackendAPI:
		// a missing token only matters once routines are loaded
		token, err := config.Token()
		c.setupErr = err
		client := api.New(cfg.API.BaseURL, token, api.WithTimeout(cfg.API.Timeout))
		c.Provider, reminders = client, client
	case constants.BackendPostgres:
		if err := postgres.ValidateConnString(cfg.Storage.DSN); err != nil {
			return nil, err
		}
		c.Backend = postgres.New(cfg.Storage.DSN)
	default:
		path, err := cfg.DBPath()
		if err != nil {
			return nil, err
		}
		c.Backend = sqlite.NewStore(path)
	}
	if c.Backend != nil {
		c.Provider, reminders = c.Backend, c.Backend
	}

	evaluator := recurrence.New(loc)
	evaluator.BiweeklyMode = cfg.Recurrence.BiweeklyMode

	c.Store = store.New(c.Provider, reminders,
		store.WithTimeout(cfg.API.Timeout),
		store.WithLocation(loc),
		store.WithEvaluator(evaluator),
		store.WithMetrics(metrics.New(c.Registry)),
	)
	return c, nil
}

// Load opens the local database, if any, and fetches the routines
func (c *Context) Load(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	if c.setupErr != nil {
		return c.setupErr
	}
	if c.Backend != nil {
		if err := c.Backend.Load(); err != nil {
			return err
		}
	}
	if err := c.Store.Fetch(ctx, storage.Filter{UserID: c.Config.API.UserID}); err != nil {
		return fmt.Errorf("failed to load routines: %w", err)
	}
	c.loaded = true
	return nil
}

func (c *Context) Close() error {
	if c.Backend != nil {
		return c.Backend.Close()
	}
	return nil
}

// sqliteBackend returns the SQLite store or an error naming the command
// that needs it
func (c *Context) sqliteBackend(command string) (*sqlite.Store, error) {
	s, ok := c.Backend.(*sqlite.Store)
	if !ok {
		return nil, fmt.Errorf("'%s' is only available with the sqlite backend", command)
	}
	return s, nil
}

// PerformAutomaticBackup snapshots the SQLite database and only logs failures
func (c *Context) PerformAutomaticBackup() {
	s, ok := c.Backend.(*sqlite.Store)
	if !ok {
		return
	}
	if _, err := backup.NewManager(s.GetConfigPath()).Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}

// settle waits for a dispatched mutation and returns its outcome
func settle(ctx context.Context, m *store.Mutation, err error) (models.Routine, error) {
	if err != nil {
		return models.Routine{}, err
	}
	if err := m.Wait(ctx); err != nil {
		return models.Routine{}, err
	}
	return m.Result(), nil
}

// ParseWeekdays parses a comma-separated list of weekdays
func ParseWeekdays(s string) ([]time.Weekday, error) {
	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	var weekdays []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if wd, ok := dayMap[part]; ok {
			weekdays = append(weekdays, wd)
			continue
		}
		// 0=Sunday, 6=Saturday
		num, err := strconv.Atoi(part)
		if err != nil || num < 0 || num > 6 {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		weekdays = append(weekdays, time.Weekday(num))
	}
	return weekdays, nil
}

// parseDate accepts YYYY-MM-DD, "today" and "yesterday"
func parseDate(s string, today models.Date) (models.Date, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.Date{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD, today or yesterday)", s)
	}
	return d, nil
}
