package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newCleanCmd(g *globalOptions, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "remove stale partial downloads and prune the artifact ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			report := a.maintenance().RunOnce()
			fmt.Fprintf(out, "removed %d temp files, pruned %d ledger records\n",
				report.TempFilesRemoved, report.RecordsPruned)
			return nil
		},
	}
}
