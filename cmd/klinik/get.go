package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/smykla-labs/klinik/internal/config"
	pkgconfig "github.com/smykla-labs/klinik/pkg/config"
)

var errUnknownFormat = errors.New("unknown output format")

func newGetCmd(opts *rootOptions) *cobra.Command {
	var (
		format      string
		showSecrets bool
	)

	cmd := &cobra.Command{
		Use:   "get [path]",
		Short: "Print the settings record or one of its values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}

			defer func() { err = errors.CombineErrors(err, a.Close()) }()

			cfg := a.Store.Get()
			if !showSecrets {
				cfg = cfg.Redacted()
			}

			var value any = cfg

			if len(args) == 1 {
				value, err = config.Lookup(cfg, args[0])
				if err != nil {
					return errors.WithHint(err, "run 'klinik paths' to list the valid paths")
				}
			}

			return printValue(cmd.OutOrStdout(), value, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", "json", "output format: json, toml")
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print the SMTP password")

	return cmd
}

func printValue(w io.Writer, value any, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode value")
		}

		_, err = fmt.Fprintln(w, string(data))

		return err

	case "toml":
		switch value.(type) {
		case pkgconfig.Config, map[string]any:
			data, err := toml.Marshal(value)
			if err != nil {
				return errors.Wrap(err, "failed to encode value")
			}

			_, err = w.Write(data)

			return err
		default:
			// scalars have no TOML document form
			_, err := fmt.Fprintln(w, value)

			return err
		}

	default:
		return errors.Wrapf(errUnknownFormat, "%q", format)
	}
}
