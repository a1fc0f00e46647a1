// Package config provides the settings record and runtime settings types for klinik.
package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultDirName is the directory under the user's home holding klinik state.
	DefaultDirName = ".klinik"

	// DefaultSlotKey is the name of the persisted settings blob.
	DefaultSlotKey = "appConfig"

	defaultEffectDelay = 100 * time.Millisecond
	defaultLeaseTTL    = 2 * time.Minute
)

// Settings configures the klinik runtime itself: where the settings record is stored,
// where exports go and how the process logs. It is loaded from flags, environment and
// the klinik.toml file.
type Settings struct {
	// Storage selects the slot backend holding the settings record.
	Storage *StorageSettings `json:"storage,omitempty" koanf:"storage" toml:"storage"`

	// Export configures the recurring export task.
	Export *ExportSettings `json:"export,omitempty" koanf:"export" toml:"export"`

	// Effects configures effect application.
	Effects *EffectsSettings `json:"effects,omitempty" koanf:"effects" toml:"effects"`

	// Log configures process logging.
	Log *LogSettings `json:"log,omitempty" koanf:"log" toml:"log"`
}

// StorageSettings selects and configures the slot backend.
type StorageSettings struct {
	// Backend is one of "file", "memory", "sqlite", "redis", "postgres".
	// Default: "file"
	Backend string `json:"backend,omitempty" koanf:"backend" toml:"backend"`

	// Path is the settings file for the file backend.
	// Default: "~/.klinik/settings.json"
	Path string `json:"path,omitempty" koanf:"path" toml:"path"`

	// DSN is the connection string for the sqlite, redis and postgres backends.
	// Default: "~/.klinik/klinik.db" for sqlite
	DSN string `json:"dsn,omitempty" koanf:"dsn" toml:"dsn"`

	// Key is the name of the blob inside the backend.
	// Default: "appConfig"
	Key string `json:"key,omitempty" koanf:"key" toml:"key"`
}

// ExportSettings configures the recurring export task.
type ExportSettings struct {
	// Dir is the directory receiving export artifacts.
	// Default: "~/.klinik/exports"
	Dir string `json:"dir,omitempty" koanf:"dir" toml:"dir"`

	// Lease controls whether a run process must hold the export lease before scheduling.
	// Default: true
	Lease *bool `json:"lease,omitempty" koanf:"lease" toml:"lease"`

	// LeaseTTL is how long a lease stays valid without renewal.
	// Default: "2m"
	LeaseTTL time.Duration `json:"lease_ttl,omitempty" koanf:"lease_ttl" toml:"lease_ttl"`
}

// EffectsSettings configures effect application.
type EffectsSettings struct {
	// Delay is the coalescing window between a settings change and effect application.
	// Default: "100ms"
	Delay time.Duration `json:"delay,omitempty" koanf:"delay" toml:"delay"`
}

// LogSettings configures process logging.
type LogSettings struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `json:"level,omitempty" koanf:"level" toml:"level"`

	// Format is "text" or "json".
	// Default: "text"
	Format string `json:"format,omitempty" koanf:"format" toml:"format"`

	// File redirects logs to a file instead of stderr.
	// Default: "" (stderr)
	File string `json:"file,omitempty" koanf:"file" toml:"file"`
}

// HomeDir returns the klinik state directory.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DefaultDirName
	}

	return filepath.Join(home, DefaultDirName)
}

// GetStorage returns the storage settings, creating them if they don't exist.
func (s *Settings) GetStorage() *StorageSettings {
	if s.Storage == nil {
		s.Storage = &StorageSettings{}
	}

	return s.Storage
}

// GetExport returns the export settings, creating them if they don't exist.
func (s *Settings) GetExport() *ExportSettings {
	if s.Export == nil {
		s.Export = &ExportSettings{}
	}

	return s.Export
}

// GetEffects returns the effects settings, creating them if they don't exist.
func (s *Settings) GetEffects() *EffectsSettings {
	if s.Effects == nil {
		s.Effects = &EffectsSettings{}
	}

	return s.Effects
}

// GetLog returns the log settings, creating them if they don't exist.
func (s *Settings) GetLog() *LogSettings {
	if s.Log == nil {
		s.Log = &LogSettings{}
	}

	return s.Log
}

// GetBackend returns the backend with default fallback.
func (s *StorageSettings) GetBackend() string {
	if s == nil || s.Backend == "" {
		return "file"
	}

	return s.Backend
}

// GetPath returns the settings file path with default fallback.
func (s *StorageSettings) GetPath() string {
	if s == nil || s.Path == "" {
		return filepath.Join(HomeDir(), "settings.json")
	}

	return s.Path
}

// GetDSN returns the connection string with a default for sqlite.
func (s *StorageSettings) GetDSN() string {
	if s == nil {
		return ""
	}

	if s.DSN == "" && s.GetBackend() == "sqlite" {
		return filepath.Join(HomeDir(), "klinik.db")
	}

	return s.DSN
}

// GetKey returns the blob name with default fallback.
func (s *StorageSettings) GetKey() string {
	if s == nil || s.Key == "" {
		return DefaultSlotKey
	}

	return s.Key
}

// GetDir returns the export directory with default fallback.
func (e *ExportSettings) GetDir() string {
	if e == nil || e.Dir == "" {
		return filepath.Join(HomeDir(), "exports")
	}

	return e.Dir
}

// IsLeaseEnabled returns whether the export lease is required.
func (e *ExportSettings) IsLeaseEnabled() bool {
	if e == nil || e.Lease == nil {
		return true
	}

	return *e.Lease
}

// GetLeaseTTL returns the lease TTL with default fallback.
func (e *ExportSettings) GetLeaseTTL() time.Duration {
	if e == nil || e.LeaseTTL <= 0 {
		return defaultLeaseTTL
	}

	return e.LeaseTTL
}

// GetDelay returns the effect delay with default fallback.
func (e *EffectsSettings) GetDelay() time.Duration {
	if e == nil || e.Delay <= 0 {
		return defaultEffectDelay
	}

	return e.Delay
}

// GetLevel returns the log level with default fallback.
func (l *LogSettings) GetLevel() string {
	if l == nil || l.Level == "" {
		return "info"
	}

	return l.Level
}

// GetFormat returns the log format with default fallback.
func (l *LogSettings) GetFormat() string {
	if l == nil || l.Format == "" {
		return "text"
	}

	return l.Format
}
