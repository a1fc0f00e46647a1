// Package config provides the settings record and runtime settings types for klinik.
package config

// Config is one snapshot of the clinic settings record.
//
// Config holds only value fields, so assigning a Config copies it completely. A published
// snapshot is never mutated; updates build a new Config.
type Config struct {
	// SystemName is the display name of the clinic system.
	// Default: "Clinic Management System"
	SystemName string `json:"systemName" koanf:"systemName" toml:"systemName"`

	// Version is the semantic version shown in exports.
	// Default: "1.0.0"
	Version string `json:"version" koanf:"version" toml:"version"`

	// MaintenanceMode shows the maintenance banner and overlay.
	// Default: false
	MaintenanceMode bool `json:"maintenanceMode" koanf:"maintenanceMode" toml:"maintenanceMode"`

	// DebugMode shows the diagnostic panel and mirrors log output into it.
	// Default: false
	DebugMode bool `json:"debugMode" koanf:"debugMode" toml:"debugMode"`

	// BackupEnabled controls the recurring export task.
	// Default: true
	BackupEnabled bool `json:"backupEnabled" koanf:"backupEnabled" toml:"backupEnabled"`

	// BackupFrequency is the period of the recurring export task.
	// Default: "daily"
	BackupFrequency BackupFrequency `json:"backupFrequency" koanf:"backupFrequency" toml:"backupFrequency"`

	// BackupRetention is the number of days export artifacts are kept.
	// Default: 30
	BackupRetention int `json:"backupRetention" koanf:"backupRetention" toml:"backupRetention"`

	// EmailNotifications enables e-mail notifications.
	// Default: true
	EmailNotifications bool `json:"emailNotifications" koanf:"emailNotifications" toml:"emailNotifications"`

	// SMSNotifications enables SMS notifications.
	// Default: false
	SMSNotifications bool `json:"smsNotifications" koanf:"smsNotifications" toml:"smsNotifications"`

	// PushNotifications enables push notifications.
	// Default: true
	PushNotifications bool `json:"pushNotifications" koanf:"pushNotifications" toml:"pushNotifications"`

	// LogLevel is the minimum level of the application log.
	// Default: "INFO"
	LogLevel LogLevel `json:"logLevel" koanf:"logLevel" toml:"logLevel"`

	// LogRetention is the number of days log records are kept.
	// Default: 90
	LogRetention int `json:"logRetention" koanf:"logRetention" toml:"logRetention"`

	// AuditLogging enables the audit trail.
	// Default: true
	AuditLogging bool `json:"auditLogging" koanf:"auditLogging" toml:"auditLogging"`

	// MaxLoginAttempts is the number of failed logins before an account is locked.
	// Default: 5
	MaxLoginAttempts int `json:"maxLoginAttempts" koanf:"maxLoginAttempts" toml:"maxLoginAttempts"`

	// PasswordPolicy holds the password rules.
	PasswordPolicy PasswordPolicy `json:"passwordPolicy" koanf:"passwordPolicy" toml:"passwordPolicy"`

	// SMTPEnabled enables outgoing e-mail.
	// Default: false
	SMTPEnabled bool `json:"smtpEnabled" koanf:"smtpEnabled" toml:"smtpEnabled"`

	// SMTPHost is the SMTP server host.
	SMTPHost string `json:"smtpHost" koanf:"smtpHost" toml:"smtpHost"`

	// SMTPPort is the SMTP server port.
	// Default: 587
	SMTPPort int `json:"smtpPort" koanf:"smtpPort" toml:"smtpPort"`

	// SMTPUsername is the SMTP login.
	SMTPUsername string `json:"smtpUsername" koanf:"smtpUsername" toml:"smtpUsername"`

	// SMTPPassword is the SMTP password. It is redacted from exports.
	SMTPPassword string `json:"smtpPassword" koanf:"smtpPassword" toml:"smtpPassword"`

	// SMTPFrom is the sender address.
	SMTPFrom string `json:"smtpFrom" koanf:"smtpFrom" toml:"smtpFrom"`

	// SMTPAuth enables SMTP authentication.
	// Default: true
	SMTPAuth bool `json:"smtpAuth" koanf:"smtpAuth" toml:"smtpAuth"`

	// SMTPTLS enables STARTTLS.
	// Default: true
	SMTPTLS bool `json:"smtpTLS" koanf:"smtpTLS" toml:"smtpTLS"`
}

// PasswordPolicy holds the password rules enforced by the security settings.
type PasswordPolicy struct {
	// MinLength is the minimum password length.
	// Default: 8
	MinLength int `json:"minLength" koanf:"minLength" toml:"minLength"`

	// RequireUppercase requires at least one uppercase letter.
	// Default: true
	RequireUppercase bool `json:"requireUppercase" koanf:"requireUppercase" toml:"requireUppercase"`

	// RequireNumbers requires at least one digit.
	// Default: true
	RequireNumbers bool `json:"requireNumbers" koanf:"requireNumbers" toml:"requireNumbers"`

	// RequireSpecialChars requires at least one non-alphanumeric character.
	// Default: false
	RequireSpecialChars bool `json:"requireSpecialChars" koanf:"requireSpecialChars" toml:"requireSpecialChars"`
}

// DefaultConfig returns the built-in settings record.
func DefaultConfig() Config {
	return Config{
		SystemName:         "Clinic Management System",
		Version:            "1.0.0",
		MaintenanceMode:    false,
		DebugMode:          false,
		BackupEnabled:      true,
		BackupFrequency:    BackupDaily,
		BackupRetention:    30,
		EmailNotifications: true,
		SMSNotifications:   false,
		PushNotifications:  true,
		LogLevel:           LogLevelInfo,
		LogRetention:       90,
		AuditLogging:       true,
		MaxLoginAttempts:   5,
		PasswordPolicy: PasswordPolicy{
			MinLength:           8,
			RequireUppercase:    true,
			RequireNumbers:      true,
			RequireSpecialChars: false,
		},
		SMTPEnabled: false,
		SMTPPort:    587,
		SMTPAuth:    true,
		SMTPTLS:     true,
	}
}

// ToMap returns the record as a nested map keyed by the persisted field names.
func (c Config) ToMap() map[string]any {
	return map[string]any{
		"systemName":         c.SystemName,
		"version":            c.Version,
		"maintenanceMode":    c.MaintenanceMode,
		"debugMode":          c.DebugMode,
		"backupEnabled":      c.BackupEnabled,
		"backupFrequency":    string(c.BackupFrequency),
		"backupRetention":    c.BackupRetention,
		"emailNotifications": c.EmailNotifications,
		"smsNotifications":   c.SMSNotifications,
		"pushNotifications":  c.PushNotifications,
		"logLevel":           string(c.LogLevel),
		"logRetention":       c.LogRetention,
		"auditLogging":       c.AuditLogging,
		"maxLoginAttempts":   c.MaxLoginAttempts,
		"passwordPolicy": map[string]any{
			"minLength":           c.PasswordPolicy.MinLength,
			"requireUppercase":    c.PasswordPolicy.RequireUppercase,
			"requireNumbers":      c.PasswordPolicy.RequireNumbers,
			"requireSpecialChars": c.PasswordPolicy.RequireSpecialChars,
		},
		"smtpEnabled":  c.SMTPEnabled,
		"smtpHost":     c.SMTPHost,
		"smtpPort":     c.SMTPPort,
		"smtpUsername": c.SMTPUsername,
		"smtpPassword": c.SMTPPassword,
		"smtpFrom":     c.SMTPFrom,
		"smtpAuth":     c.SMTPAuth,
		"smtpTLS":      c.SMTPTLS,
	}
}

// Redacted returns a copy of the record with secrets blanked.
func (c Config) Redacted() Config {
	if c.SMTPPassword != "" {
		c.SMTPPassword = "********"
	}

	return c
}
