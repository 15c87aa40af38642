package summary

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// OutputFormat selects how a report is written.
type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
)

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputFormatTable, OutputFormatJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format: %s (valid: table, json)", s)
}

// Write renders the report in the given format.
func Write(w io.Writer, r *Report, format OutputFormat) error {
	switch format {
	case OutputFormatJSON:
		return FormatJSON(w, r)
	case OutputFormatTable:
		return FormatTable(w, r)
	}
	return fmt.Errorf("unknown output format: %s", format)
}

// FormatJSON writes the report as pretty-printed JSON.
func FormatJSON(w io.Writer, r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// FormatTable writes the per-condition statistics as a table followed by the IHTT
// estimate, when there is one.
func FormatTable(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "Experiment: %s", r.Experiment)
	if r.Participant != "" {
		fmt.Fprintf(w, "  Participant: %s", r.Participant)
	}
	if r.Session != "" {
		fmt.Fprintf(w, "  Session: %s", r.Session)
	}
	fmt.Fprintf(w, "  Trials: %d\n\n", r.Trials)

	dmts := r.Experiment == "dmts"

	table := tablewriter.NewWriter(w)
	if dmts {
		table.Header("Delay", "Trials", "Responses", "Correct", "Accuracy", "Mean RT", "SD RT")
	} else {
		table.Header("Block", "Trials", "Responses", "Mean RT", "SD RT")
	}

	for _, c := range r.Conditions {
		var row []string
		if dmts {
			row = []string{
				c.Condition,
				strconv.Itoa(c.Trials),
				strconv.Itoa(c.Responses),
				strconv.Itoa(c.Correct),
				fmt.Sprintf("%.0f%%", c.Accuracy*100),
				formatMs(c.MeanRT, c.Responses),
				formatMs(c.SDRT, c.Responses),
			}
		} else {
			row = []string{
				c.Condition,
				strconv.Itoa(c.Trials),
				strconv.Itoa(c.Responses),
				formatMs(c.MeanRT, c.Responses),
				formatMs(c.SDRT, c.Responses),
			}
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to add table row: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	if r.IHTT != nil {
		fmt.Fprintf(w, "\nCrossed mean RT:   %.1f ms\n", r.IHTT.CrossedMeanRT)
		fmt.Fprintf(w, "Uncrossed mean RT: %.1f ms\n", r.IHTT.UncrossedMeanRT)
		fmt.Fprintf(w, "IHTT estimate:     %.1f ms (left field %.1f, right field %.1f)\n",
			r.IHTT.EstimateMs, r.IHTT.LeftFieldMs, r.IHTT.RightFieldMs)
	}

	return nil
}

func formatMs(v float64, n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}
