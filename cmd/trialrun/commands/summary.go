package commands

import (
	"fmt"

	"github.com/dyluth/trialrun/internal/datafile"
	"github.com/dyluth/trialrun/internal/printer"
	"github.com/dyluth/trialrun/internal/summary"
	"github.com/spf13/cobra"
)

var (
	summaryOutputFormat string
)

var summaryCmd = &cobra.Command{
	Use:   "summary FILE",
	Short: "Summarise a recorded data file",
	Long: `Print per-condition statistics for a recorded data file.

IHTT files report reaction times per block type and the IHTT estimate
(mean crossed RT minus mean uncrossed RT). DMTS files report accuracy and
latency per delay. Timed-out trials count as trials but not as responses.

Output Formats:
  table - Human-readable table (default)
  json  - Machine-readable JSON

Examples:
  trialrun summary data/ihtt_subject-1_1a2b3c4d.csv
  trialrun summary data/dmts_p01_9f8e7d6c.csv --output=json`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	summaryCmd.Flags().StringVarP(&summaryOutputFormat, "output", "o", "table", "Output format (table or json)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	format, err := summary.ParseOutputFormat(summaryOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			err.Error(),
			[]string{"Valid formats: table, json"},
		)
	}

	table, err := datafile.Open(args[0])
	if err != nil {
		return printer.ErrorWithContext(
			"cannot read data file",
			err.Error(),
			map[string]string{"path": args[0]},
			nil,
		)
	}

	report, err := summary.Summarize(table)
	if err != nil {
		return fmt.Errorf("failed to summarise %s: %w", args[0], err)
	}

	return summary.Write(cmd.OutOrStdout(), report, format)
}
