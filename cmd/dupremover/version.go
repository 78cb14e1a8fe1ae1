package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/dupremover/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Skip config loading
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dupremover version %s\n", common.GetFullVersion())
	},
}
