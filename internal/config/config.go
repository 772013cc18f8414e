// Package config loads routinely's settings: a YAML file with defaults,
// overridden by ROUTINELY_* environment variables. The API token is never
// stored in the file; see Token.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/keyring"
	"github.com/julianstephens/routinely/internal/utils"
)

// EnvTokenVar supplies the API token when the keyring has none
const EnvTokenVar = "ROUTINELY_API_TOKEN"

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	UserID  string        `yaml:"user_id,omitempty"`
}

type StorageConfig struct {
	// Path is the SQLite database file. Empty means <config dir>/routinely.db.
	Path string `yaml:"path,omitempty"`
	// DSN is the PostgreSQL connection string, without credentials.
	DSN string `yaml:"dsn,omitempty"`
}

type RecurrenceConfig struct {
	BiweeklyMode constants.BiweeklyMode `yaml:"biweekly_mode"`
}

// LogConfig controls the rotating log file. Debug mode forces the debug level
// and mirrors entries to stderr.
type LogConfig struct {
	Level string `yaml:"level"`
	// File defaults to <config dir>/logs/routinely.log
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Config struct {
	Backend     constants.Backend `yaml:"backend"`
	Timezone    string            `yaml:"timezone"`
	HistoryDays int               `yaml:"history_days"`
	Debug       bool              `yaml:"debug"`
	API         APIConfig         `yaml:"api"`
	Storage     StorageConfig     `yaml:"storage"`
	Recurrence  RecurrenceConfig  `yaml:"recurrence"`
	Log         LogConfig         `yaml:"log"`

	path string
}

// Default returns the configuration used when no file exists
func Default() Config {
	return Config{
		Backend:     constants.BackendSQLite,
		Timezone:    constants.DefaultTimezone,
		HistoryDays: constants.DefaultHistoryDays,
		API: APIConfig{
			Timeout: constants.DefaultAPITimeout,
		},
		Recurrence: RecurrenceConfig{
			BiweeklyMode: constants.BiweeklyAnchored,
		},
		Log: LogConfig{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultPath is ~/.config/routinely/config.yaml
func DefaultPath() string {
	return filepath.Join(constants.DefaultConfigDir, constants.DefaultConfigFile)
}

// ExpandPath resolves a leading ~ to the user's home directory
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Load reads the config file at path, falling back to defaults when it does
// not exist, then applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.path = expanded

	data, err := os.ReadFile(expanded)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", expanded, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Save writes the config back to the path it was loaded from
func (c Config) Save() error {
	if c.path == "" {
		return errors.New("config has no path")
	}
	return c.SaveTo(c.path)
}

// SaveTo writes the config to path, creating its directory
func (c Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	var backend, mode string
	str("ROUTINELY_BACKEND", &backend)
	str("ROUTINELY_API_URL", &c.API.BaseURL)
	str("ROUTINELY_USER_ID", &c.API.UserID)
	str("ROUTINELY_STORAGE_PATH", &c.Storage.Path)
	str("ROUTINELY_DSN", &c.Storage.DSN)
	str("ROUTINELY_TIMEZONE", &c.Timezone)
	str("ROUTINELY_BIWEEKLY_MODE", &mode)
	str("ROUTINELY_LOG_LEVEL", &c.Log.Level)
	if backend != "" {
		c.Backend = constants.Backend(backend)
	}
	if mode != "" {
		c.Recurrence.BiweeklyMode = constants.BiweeklyMode(mode)
	}

	if v := os.Getenv("ROUTINELY_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ROUTINELY_API_TIMEOUT %q: %w", v, err)
		}
		c.API.Timeout = d
	}
	if v := os.Getenv("ROUTINELY_HISTORY_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ROUTINELY_HISTORY_DAYS %q: %w", v, err)
		}
		c.HistoryDays = n
	}
	if v := os.Getenv("ROUTINELY_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ROUTINELY_DEBUG %q: %w", v, err)
		}
		c.Debug = b
	}
	return nil
}

// Validate reports every invalid setting at once
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case constants.BackendAPI:
		if c.API.BaseURL == "" {
			errs = append(errs, errors.New("api.base_url is required for the api backend"))
		}
	case constants.BackendSQLite:
	case constants.BackendPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want api, sqlite or postgres)", c.Backend))
	}
	if !utils.ValidateTimezone(c.Timezone) {
		errs = append(errs, fmt.Errorf("invalid timezone %q", c.Timezone))
	}
	switch c.Recurrence.BiweeklyMode {
	case constants.BiweeklyAnchored, constants.BiweeklyAsWeekly:
	default:
		errs = append(errs, fmt.Errorf("unknown recurrence.biweekly_mode %q", c.Recurrence.BiweeklyMode))
	}
	if c.HistoryDays <= 0 {
		errs = append(errs, fmt.Errorf("history_days must be positive, got %d", c.HistoryDays))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log.level %q (want debug, info, warn or error)", c.Log.Level))
	}
	if c.Log.MaxSizeMB <= 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log.max_size_mb must be positive and log rotation limits must not be negative"))
	}
	if c.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout must not be negative, got %s", c.API.Timeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Path is the file the config was loaded from
func (c Config) Path() string {
	return c.path
}

// Dir holds the config file, logs, backups and the default database
func (c Config) Dir() string {
	if c.path == "" {
		dir, _ := ExpandPath(constants.DefaultConfigDir)
		return dir
	}
	return filepath.Dir(c.path)
}

// LogPath is the log file, relative to Dir unless configured
func (c Config) LogPath() (string, error) {
	if c.Log.File == "" {
		return filepath.Join(c.Dir(), "logs", constants.AppName+".log"), nil
	}
	return ExpandPath(c.Log.File)
}

// DBPath is the SQLite database file
func (c Config) DBPath() (string, error) {
	if c.Storage.Path == "" {
		return filepath.Join(c.Dir(), constants.DefaultDBFile), nil
	}
	return ExpandPath(c.Storage.Path)
}

func (c Config) Location() (*time.Location, error) {
	return utils.LoadLocation(c.Timezone)
}

// Token returns the API token from the OS keyring, or from
// ROUTINELY_API_TOKEN when the keyring has none or is unavailable.
func Token() (string, error) {
	token, err := keyring.GetToken()
	if err == nil {
		return token, nil
	}
	if env := os.Getenv(EnvTokenVar); env != "" {
		return env, nil
	}
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("no API token configured, run 'routinely token set' or set %s", EnvTokenVar)
	}
	return "", err
}
