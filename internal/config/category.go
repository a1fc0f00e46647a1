package config

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/go-viper/mapstructure/v2"

	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

// systemFields are the fields of the system settings form.
type systemFields struct {
	SystemName      *string `mapstructure:"systemName"`
	Version         *string `mapstructure:"version"`
	MaintenanceMode *bool   `mapstructure:"maintenanceMode"`
	DebugMode       *bool   `mapstructure:"debugMode"`
	BackupEnabled   *bool   `mapstructure:"backupEnabled"`
	BackupFrequency *string `mapstructure:"backupFrequency"`
	BackupRetention *int    `mapstructure:"backupRetention"`
}

// notificationFields are the fields of the notifications settings form.
type notificationFields struct {
	EmailNotifications *bool   `mapstructure:"emailNotifications"`
	SMSNotifications   *bool   `mapstructure:"smsNotifications"`
	PushNotifications  *bool   `mapstructure:"pushNotifications"`
	LogLevel           *string `mapstructure:"logLevel"`
	LogRetention       *int    `mapstructure:"logRetention"`
	AuditLogging       *bool   `mapstructure:"auditLogging"`
}

// securityFields are the fields of the security settings form. The password rules are
// flat in the form and nested in the record.
type securityFields struct {
	MaxLoginAttempts    *int  `mapstructure:"maxLoginAttempts"`
	MinLength           *int  `mapstructure:"minLength"`
	RequireUppercase    *bool `mapstructure:"requireUppercase"`
	RequireNumbers      *bool `mapstructure:"requireNumbers"`
	RequireSpecialChars *bool `mapstructure:"requireSpecialChars"`
}

// emailFields are the fields of the SMTP settings form.
type emailFields struct {
	Enabled  *bool   `mapstructure:"enabled"`
	Host     *string `mapstructure:"host"`
	Port     *int    `mapstructure:"port"`
	Username *string `mapstructure:"username"`
	Password *string `mapstructure:"password"`
	From     *string `mapstructure:"from"`
	Auth     *bool   `mapstructure:"auth"`
	TLS      *bool   `mapstructure:"tls"`
}

// CategoryPatch maps the fields submitted by a category form to a patch of record paths,
// suitable for Apply. Only submitted fields appear in the patch.
func CategoryPatch(category pkgconfig.Category, fields map[string]any) (map[string]any, error) {
	patch := make(map[string]any)

	switch category {
	case pkgconfig.CategorySystem:
		var f systemFields
		if err := decodeFields(category, fields, &f); err != nil {
			return nil, err
		}

		put(patch, "systemName", f.SystemName)
		put(patch, "version", f.Version)
		put(patch, "maintenanceMode", f.MaintenanceMode)
		put(patch, "debugMode", f.DebugMode)
		put(patch, "backupEnabled", f.BackupEnabled)
		put(patch, "backupFrequency", f.BackupFrequency)
		put(patch, "backupRetention", f.BackupRetention)

	case pkgconfig.CategoryNotifications:
		var f notificationFields
		if err := decodeFields(category, fields, &f); err != nil {
			return nil, err
		}

		put(patch, "emailNotifications", f.EmailNotifications)
		put(patch, "smsNotifications", f.SMSNotifications)
		put(patch, "pushNotifications", f.PushNotifications)
		put(patch, "logLevel", f.LogLevel)
		put(patch, "logRetention", f.LogRetention)
		put(patch, "auditLogging", f.AuditLogging)

	case pkgconfig.CategorySecurity:
		var f securityFields
		if err := decodeFields(category, fields, &f); err != nil {
			return nil, err
		}

		put(patch, "maxLoginAttempts", f.MaxLoginAttempts)
		put(patch, "passwordPolicy.minLength", f.MinLength)
		put(patch, "passwordPolicy.requireUppercase", f.RequireUppercase)
		put(patch, "passwordPolicy.requireNumbers", f.RequireNumbers)
		put(patch, "passwordPolicy.requireSpecialChars", f.RequireSpecialChars)

	case pkgconfig.CategoryEmail:
		var f emailFields
		if err := decodeFields(category, fields, &f); err != nil {
			return nil, err
		}

		put(patch, "smtpEnabled", f.Enabled)
		put(patch, "smtpHost", f.Host)
		put(patch, "smtpPort", f.Port)
		put(patch, "smtpUsername", f.Username)
		put(patch, "smtpPassword", f.Password)
		put(patch, "smtpFrom", f.From)
		put(patch, "smtpAuth", f.Auth)
		put(patch, "smtpTLS", f.TLS)

	default:
		return nil, errors.Wrapf(pkgconfig.ErrUnknownCategory, "%q", category)
	}

	return patch, nil
}

// CategoryFields returns the form fields of category as currently held by cfg.
func CategoryFields(cfg pkgconfig.Config, category pkgconfig.Category) (map[string]any, error) {
	switch category {
	case pkgconfig.CategorySystem:
		return map[string]any{
			"systemName":      cfg.SystemName,
			"version":         cfg.Version,
			"maintenanceMode": cfg.MaintenanceMode,
			"debugMode":       cfg.DebugMode,
			"backupEnabled":   cfg.BackupEnabled,
			"backupFrequency": string(cfg.BackupFrequency),
			"backupRetention": cfg.BackupRetention,
		}, nil
	case pkgconfig.CategoryNotifications:
		return map[string]any{
			"emailNotifications": cfg.EmailNotifications,
			"smsNotifications":   cfg.SMSNotifications,
			"pushNotifications":  cfg.PushNotifications,
			"logLevel":           string(cfg.LogLevel),
			"logRetention":       cfg.LogRetention,
			"auditLogging":       cfg.AuditLogging,
		}, nil
	case pkgconfig.CategorySecurity:
		return map[string]any{
			"maxLoginAttempts":    cfg.MaxLoginAttempts,
			"minLength":           cfg.PasswordPolicy.MinLength,
			"requireUppercase":    cfg.PasswordPolicy.RequireUppercase,
			"requireNumbers":      cfg.PasswordPolicy.RequireNumbers,
			"requireSpecialChars": cfg.PasswordPolicy.RequireSpecialChars,
		}, nil
	case pkgconfig.CategoryEmail:
		return map[string]any{
			"enabled":  cfg.SMTPEnabled,
			"host":     cfg.SMTPHost,
			"port":     cfg.SMTPPort,
			"username": cfg.SMTPUsername,
			"password": cfg.SMTPPassword,
			"from":     cfg.SMTPFrom,
			"auth":     cfg.SMTPAuth,
			"tls":      cfg.SMTPTLS,
		}, nil
	default:
		return nil, errors.Wrapf(pkgconfig.ErrUnknownCategory, "%q", category)
	}
}

func decodeFields(category pkgconfig.Category, fields map[string]any, out any) error {
	allowed, err := CategoryFields(pkgconfig.DefaultConfig(), category)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		if _, ok := allowed[name]; !ok {
			return errors.Wrapf(ErrInvalidPath, "%s.%s", category, name)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(strictScalarsHook),
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := dec.Decode(fields); err != nil {
		return invalidValue(errors.Wrapf(err, "invalid %s fields", category))
	}

	return nil
}

func put[T any](patch map[string]any, path string, v *T) {
	if v != nil {
		patch[path] = *v
	}
}
