package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ternarybob/dupremover/internal/storage/files"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List saved portal sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := files.NewSessionStorage(config.Storage.SessionsDir, logger)
		if err != nil {
			return err
		}
		list, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSAVED")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\n", s.Name, s.Modified.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}
