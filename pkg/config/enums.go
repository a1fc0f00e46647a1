// Package config provides the settings record and runtime settings types for klinik.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidBackupFrequency is returned for an unknown backup frequency.
	ErrInvalidBackupFrequency = errors.New("invalid backup frequency")

	// ErrInvalidLogLevel is returned for an unknown log level.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrUnknownCategory is returned for an unknown settings category.
	ErrUnknownCategory = errors.New("unknown settings category")
)

// BackupFrequency is the period of the recurring export task.
type BackupFrequency string

const (
	// BackupDaily exports once a day.
	BackupDaily BackupFrequency = "daily"

	// BackupWeekly exports once a week.
	BackupWeekly BackupFrequency = "weekly"

	// BackupMonthly exports once every 30 days.
	BackupMonthly BackupFrequency = "monthly"
)

const day = 24 * time.Hour

// BackupFrequencies lists the valid backup frequencies.
func BackupFrequencies() []BackupFrequency {
	return []BackupFrequency{BackupDaily, BackupWeekly, BackupMonthly}
}

// ParseBackupFrequency parses a frequency name (case-insensitive).
func ParseBackupFrequency(s string) (BackupFrequency, error) {
	f := BackupFrequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", errors.Wrapf(ErrInvalidBackupFrequency, "%q", s)
	}

	return f, nil
}

// IsValid reports whether f is a known frequency.
func (f BackupFrequency) IsValid() bool {
	switch f {
	case BackupDaily, BackupWeekly, BackupMonthly:
		return true
	default:
		return false
	}
}

// Interval returns the period of f. Unknown frequencies fall back to daily.
func (f BackupFrequency) Interval() time.Duration {
	switch f {
	case BackupWeekly:
		return 7 * day
	case BackupMonthly:
		return 30 * day
	default:
		return day
	}
}

// String implements fmt.Stringer.
func (f BackupFrequency) String() string {
	return string(f)
}

// LogLevel is the minimum level of the application log.
type LogLevel string

const (
	LogLevelError LogLevel = "ERROR"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelDebug LogLevel = "DEBUG"
)

// LogLevels lists the valid log levels, most severe first.
func LogLevels() []LogLevel {
	return []LogLevel{LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug}
}

// ParseLogLevel parses a level name (case-insensitive).
func ParseLogLevel(s string) (LogLevel, error) {
	l := LogLevel(strings.ToUpper(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", errors.Wrapf(ErrInvalidLogLevel, "%q", s)
	}

	return l, nil
}

// IsValid reports whether l is a known level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (l LogLevel) String() string {
	return string(l)
}

// Category names one of the settings groupings saved together by a settings form.
type Category string

const (
	CategorySystem        Category = "system"
	CategoryEmail         Category = "email"
	CategorySecurity      Category = "security"
	CategoryNotifications Category = "notifications"
)

// Categories lists the known categories.
func Categories() []Category {
	return []Category{CategorySystem, CategoryEmail, CategorySecurity, CategoryNotifications}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))

	switch c {
	case CategorySystem, CategoryEmail, CategorySecurity, CategoryNotifications:
		return c, nil
	default:
		return "", errors.Wrapf(ErrUnknownCategory, "%q", s)
	}
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}
