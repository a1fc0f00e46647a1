package main

import (
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Apply the settings and keep them in sync until interrupted",
		Long: `Apply the settings to a terminal view and keep them in sync until interrupted.

Changes written by other klinik processes are picked up from the settings file.
The process holding the export lease runs the recurring export.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(cmd, opts, true)
			if err != nil {
				return err
			}

			defer func() { err = errors.CombineErrors(err, a.Close()) }()

			return a.Run(ctx, cmd.OutOrStdout())
		},
	}
}
