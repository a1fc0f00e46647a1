package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smykla-labs/klinik/internal/app"
	"github.com/smykla-labs/klinik/internal/config/provider"
)

// flagKeys maps persistent flags to runtime settings paths.
var flagKeys = map[string]string{
	"backend":    "storage.backend",
	"path":       "storage.path",
	"dsn":        "storage.dsn",
	"key":        "storage.key",
	"export-dir": "export.dir",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "klinik",
		Short:         "Manage the clinic settings record",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "settings file (default ~/.klinik/klinik.toml)")
	flags.String("backend", "", "storage backend: file, memory, sqlite, redis, postgres")
	flags.String("path", "", "settings file of the file backend")
	flags.String("dsn", "", "connection string of the sqlite, redis and postgres backends")
	flags.String("key", "", "name of the settings blob")
	flags.String("export-dir", "", "directory receiving exports")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text, json")
	flags.String("log-file", "", "write logs to this file instead of stderr")

	cmd.AddCommand(
		newGetCmd(opts),
		newSetCmd(opts),
		newSaveCmd(opts),
		newResetCmd(opts),
		newExportCmd(opts),
		newEditCmd(opts),
		newRunCmd(opts),
		newPathsCmd(),
	)

	return cmd
}

// openApp loads the runtime settings and wires the application.
func openApp(cmd *cobra.Command, opts *rootOptions, recurring bool) (*app.App, error) {
	flagValues := make(map[string]any)

	cmd.Flags().Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			flagValues[key] = f.Value.String()
		}
	})

	path := opts.configPath
	if path == "" {
		path = provider.DefaultFilePath()
	}

	p := provider.NewProvider(
		provider.NewFlagSource(flagValues),
		provider.NewEnvSource(provider.DefaultDotEnvFile),
		provider.NewFileSource(path),
	)

	settings, err := p.Load()
	if err != nil {
		return nil, err
	}

	return app.New(cmd.Context(), settings, app.Options{Recurring: recurring})
}
