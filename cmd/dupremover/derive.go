package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ternarybob/dupremover/internal/services/records"
)

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Print the removal tasks for a row range without touching the portal",
	Long: `Loads the configured source file, groups the rows in [start, end) by family
and prints the duplicate/original pairs a run over the same range would process.`,
	RunE: runDerive,
}

var (
	deriveStart  int
	deriveEnd    int
	deriveSource string
	deriveJSON   bool
)

func init() {
	deriveCmd.Flags().IntVar(&deriveStart, "start", 0, "First data row (0-based, header excluded)")
	deriveCmd.Flags().IntVar(&deriveEnd, "end", 0, "End data row (exclusive)")
	deriveCmd.Flags().StringVar(&deriveSource, "source", "", "Source CSV (overrides config)")
	deriveCmd.Flags().BoolVar(&deriveJSON, "json", false, "Print tasks as JSON")
}

func runDerive(cmd *cobra.Command, args []string) error {
	source := config.Data.SourceFile
	if deriveSource != "" {
		source = deriveSource
	}

	set, err := records.NewCSVLoader(source, logger).Load(cmd.Context(), deriveStart, deriveEnd)
	if err != nil {
		return err
	}
	families, tasks := records.Plan(set)

	logger.Info().
		Int("total_rows", set.TotalRows).
		Int("in_range", set.InRange).
		Int("skipped", set.Skipped).
		Int("families", len(families)).
		Int("tasks", len(tasks)).
		Msg("Tasks derived")

	out := cmd.OutOrStdout()
	if deriveJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FAMILY\tDUPLICATE\tORIGINAL")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.FamilyID, t.DuplicateID, t.OriginalID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d task(s) across %d family group(s)\n", len(tasks), len(families))
	return nil
}
