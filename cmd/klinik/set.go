package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/smykla-labs/klinik/internal/config"
	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

var errInvalidField = errors.New("fields must be given as key=value")

func newSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Update one value of the settings record",
		Long: `Update one value of the settings record.

Values of text fields are stored as typed. Other values are parsed as JSON,
so groups can be merged with
  klinik set passwordPolicy '{"minLength": 12}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}

			defer func() { err = errors.CombineErrors(err, a.Close()) }()

			cfg, err := a.Store.Update(cmd.Context(), args[0], parseValue(args[0], args[1]))
			if err != nil {
				return withSettingsHint(err)
			}

			value, err := config.Lookup(cfg.Redacted(), args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], value)

			return err
		},
	}
}

func newSaveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save <category> key=value...",
		Short: "Save fields of a settings category",
		Long: `Save fields of a settings category, as the settings forms do.

Categories and their fields:
  system         systemName version maintenanceMode debugMode backupEnabled
                 backupFrequency backupRetention
  notifications  emailNotifications smsNotifications pushNotifications logLevel
                 logRetention auditLogging
  security       maxLoginAttempts minLength requireUppercase requireNumbers
                 requireSpecialChars
  email          enabled host port username password from auth tls`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			category, err := pkgconfig.ParseCategory(args[0])
			if err != nil {
				return withSettingsHint(err)
			}

			fields, err := parseFields(args[1:])
			if err != nil {
				return err
			}

			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}

			defer func() { err = errors.CombineErrors(err, a.Close()) }()

			if _, err := a.Store.SaveCategory(cmd.Context(), category, fields); err != nil {
				return withSettingsHint(err)
			}

			names := make([]string, 0, len(fields))
			for name := range fields {
				names = append(names, name)
			}

			sort.Strings(names)

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %s: %s\n", category, strings.Join(names, ", "))

			return err
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings and clear the persisted record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}

			defer func() { err = errors.CombineErrors(err, a.Close()) }()

			a.Store.Reset(cmd.Context())

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "settings reset to defaults")

			return err
		},
	}
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "List the paths accepted by get and set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, p := range config.Paths() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), p); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

// parseValue keeps raw as is for text fields and parses it as JSON otherwise, so numbers,
// booleans and groups keep their type.
func parseValue(path, raw string) any {
	if current, err := config.Lookup(pkgconfig.DefaultConfig(), path); err == nil {
		if _, isText := current.(string); isText {
			return raw
		}
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}

	return raw
}

func parseFields(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, errors.Wrapf(errInvalidField, "got %q", arg)
		}

		fields[strings.TrimSpace(key)] = value
	}

	return fields, nil
}

func withSettingsHint(err error) error {
	switch {
	case errors.Is(err, config.ErrInvalidPath):
		return errors.WithHint(err, "run 'klinik paths' to list the valid paths")
	case errors.Is(err, pkgconfig.ErrUnknownCategory):
		return errors.WithHint(err, "categories: system, notifications, security, email")
	case errors.Is(err, config.ErrInvalidValue):
		return errors.WithHint(err, "the settings record was not changed")
	default:
		return err
	}
}
