package constants

import "time"

// Frequency represents the recurrence rule of a routine
type Frequency string

// Status represents the lifecycle state of a routine
type Status string

// Backend selects the persistence provider the CLI talks to
type Backend string

// BiweeklyMode selects how biweekly routines are gated
type BiweeklyMode string

const (
	AppName            = "routinely"
	DefaultKeyringUser = "api-token"
	DefaultConfigDir   = "~/.config/routinely"
	DefaultConfigFile  = "config.yaml"
	DefaultDBFile      = "routinely.db"
	Version            = "v0.3.0"

	// DateFormat is the canonical calendar date format (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the time-of-day format used for routine start/end input (HH:MM)
	TimeFormat = "15:04"

	// EntityTypeRoutine is the reminder entity type for routines
	EntityTypeRoutine = "routine"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "routinely-"
	BackupFileSuffix = ".db"

	// Defaults
	DefaultAPITimeout   = 10 * time.Second
	DefaultHistoryDays  = 7
	DefaultTimezone     = "Local"
	DefaultReminderMins = 0

	// Frequencies
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyCustom   Frequency = "custom"

	// Statuses
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusInactive  Status = "inactive"

	// Backends
	BackendAPI      Backend = "api"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"

	// Biweekly modes
	BiweeklyAnchored BiweeklyMode = "anchored"
	BiweeklyAsWeekly BiweeklyMode = "weekly"
)

// Frequencies lists every supported frequency in display order
var Frequencies = []Frequency{
	FrequencyDaily,
	FrequencyWeekly,
	FrequencyBiweekly,
	FrequencyMonthly,
	FrequencyCustom,
}

// Statuses lists every supported status in display order
var Statuses = []Status{
	StatusActive,
	StatusPaused,
	StatusCompleted,
	StatusInactive,
}

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	for _, known := range Frequencies {
		if f == known {
			return true
		}
	}
	return false
}

// UsesWeekdays reports whether the frequency is gated on days of the week
func (f Frequency) UsesWeekdays() bool {
	return f == FrequencyWeekly || f == FrequencyBiweekly
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}
