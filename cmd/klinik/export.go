package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		list  bool
		prune bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the settings record to the export directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}

			defer func() { err = errors.CombineErrors(err, a.Close()) }()

			out := cmd.OutOrStdout()

			switch {
			case list:
				artifacts, err := a.Exports.List()
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCREATED\tSYSTEM\tSIZE")

				for _, art := range artifacts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						art.ID, humanize.Time(art.Timestamp), art.SystemName, humanize.Bytes(uint64(art.Size)))
				}

				return tw.Flush()

			case prune:
				removed, err := a.Exports.Prune(a.Store.Get().BackupRetention)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintf(out, "removed %d export(s)\n", removed)

				return err

			default:
				artifact, err := a.Exports.Export(cmd.Context(), a.Store.Get())
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(out, artifact.Path)

				return err
			}
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list existing exports")
	cmd.Flags().BoolVar(&prune, "prune", false, "remove exports older than the backup retention")
	cmd.MarkFlagsMutuallyExclusive("list", "prune")

	return cmd
}
