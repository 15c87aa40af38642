package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// FormatTable writes sessions as a fixed-width table and returns how many it wrote.
func FormatTable(w io.Writer, entries []*Entry) int {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No sessions found")
		return 0
	}

	fmt.Fprintf(w, "%-10s %-6s %-16s %-10s %-7s %-8s %s\n",
		"SESSION", "EXP", "PARTICIPANT", "STATUS", "TRIALS", "STARTED", "DATA FILE")
	fmt.Fprintf(w, "%-10s %-6s %-16s %-10s %-7s %-8s %s\n",
		"----------", "------", "----------------", "----------", "-------", "--------", "------------------------------")

	for _, e := range entries {
		fmt.Fprintf(w, "%-10s %-6s %-16s %-10s %-7d %-8s %s\n",
			formatID(e.ID),
			e.Experiment,
			truncate(e.Participant, 16),
			e.Status,
			e.Trials,
			formatTimestamp(e.StartedAtMs),
			orDash(e.DataFile),
		)
	}

	countMsg := "session"
	if len(entries) != 1 {
		countMsg = "sessions"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(entries), countMsg)

	return len(entries)
}

// FormatJSONL writes one JSON object per session.
func FormatJSONL(w io.Writer, entries []*Entry) error {
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal session to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatID truncates the session ID to the 8 characters used in data file names.
func formatID(id string) string {
	return truncate(id, 8)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatTimestamp shows a millisecond timestamp as relative time like "2m ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := time.Since(time.UnixMilli(timestampMs))

	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
