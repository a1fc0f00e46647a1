package config

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

const (
	maxPort          = 65535
	maxPasswordLen   = 128
	maxRetentionDays = 3650
)

// Validator checks a settings record for values the application cannot honor.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns the first problem found in cfg, marked as ErrInvalidValue.
func (v *Validator) Validate(cfg pkgconfig.Config) error {
	checks := []func(pkgconfig.Config) error{
		v.validateSystem,
		v.validateNotifications,
		v.validateSecurity,
		v.validateEmail,
	}

	for _, check := range checks {
		if err := check(cfg); err != nil {
			return invalidValue(err)
		}
	}

	return nil
}

func (*Validator) validateSystem(cfg pkgconfig.Config) error {
	if strings.TrimSpace(cfg.SystemName) == "" {
		return ErrEmptySystemName
	}

	if _, err := semver.NewVersion(cfg.Version); err != nil {
		return errors.Wrapf(ErrInvalidVersion, "%q", cfg.Version)
	}

	if !cfg.BackupFrequency.IsValid() {
		return errors.Wrapf(pkgconfig.ErrInvalidBackupFrequency, "%q", cfg.BackupFrequency)
	}

	return inRange("backupRetention", cfg.BackupRetention, 1, maxRetentionDays)
}

func (*Validator) validateNotifications(cfg pkgconfig.Config) error {
	if !cfg.LogLevel.IsValid() {
		return errors.Wrapf(pkgconfig.ErrInvalidLogLevel, "%q", cfg.LogLevel)
	}

	return inRange("logRetention", cfg.LogRetention, 1, maxRetentionDays)
}

func (*Validator) validateSecurity(cfg pkgconfig.Config) error {
	if err := inRange("maxLoginAttempts", cfg.MaxLoginAttempts, 1, 100); err != nil {
		return err
	}

	return inRange("passwordPolicy.minLength", cfg.PasswordPolicy.MinLength, 1, maxPasswordLen)
}

func (*Validator) validateEmail(cfg pkgconfig.Config) error {
	return inRange("smtpPort", cfg.SMTPPort, 1, maxPort)
}

func inRange(field string, value, lo, hi int) error {
	if value < lo || value > hi {
		return errors.Wrapf(ErrOutOfRange, "%s must be between %d and %d, got %d", field, lo, hi, value)
	}

	return nil
}

// Repair keeps every valid field of cfg and replaces the others with their defaults. It
// returns the repaired record and the paths that were reset.
func (v *Validator) Repair(cfg pkgconfig.Config) (pkgconfig.Config, []string) {
	if v.Validate(cfg) == nil {
		return cfg, nil
	}

	out := pkgconfig.DefaultConfig()

	var reset []string

	for _, path := range leafPaths() {
		value, err := Lookup(cfg, path)
		if err != nil {
			reset = append(reset, path)

			continue
		}

		next, err := Set(out, path, value)
		if err == nil {
			err = v.Validate(next)
		}

		if err != nil {
			reset = append(reset, path)

			continue
		}

		out = next
	}

	return out, reset
}
