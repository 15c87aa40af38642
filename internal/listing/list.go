// Package listing lists the sessions mirrored to a Redis server.
package listing

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/dyluth/trialrun/pkg/blackboard"
	"github.com/redis/go-redis/v9"
)

// OutputFormat specifies how to format the session list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete sessions as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Entry is one announced session and how many trials it has mirrored.
type Entry struct {
	*blackboard.SessionInfo
	Trials int64 `json:"trials"`
}

// FilterCriteria defines filtering options for the session list.
// All filters are ANDed together.
type FilterCriteria struct {
	SinceTimestampMs int64                    // Unix timestamp in milliseconds, 0 = no filter
	Experiment       string                   // Exact match, empty = no filter
	Participant      string                   // Exact match, empty = no filter
	Status           blackboard.SessionStatus // Exact match, empty = no filter
}

func (fc *FilterCriteria) matches(s *blackboard.SessionInfo) bool {
	if fc.SinceTimestampMs > 0 && s.StartedAtMs < fc.SinceTimestampMs {
		return false
	}
	if fc.Experiment != "" && s.Experiment != fc.Experiment {
		return false
	}
	if fc.Participant != "" && s.Participant != fc.Participant {
		return false
	}
	if fc.Status != "" && s.Status != fc.Status {
		return false
	}
	return true
}

// Collect loads every session announced on rdb that matches filters, oldest first.
// Malformed session hashes are skipped with a warning.
func Collect(ctx context.Context, rdb *redis.Client, filters *FilterCriteria) ([]*Entry, error) {
	ids, err := blackboard.ScanSessions(ctx, rdb, "")
	if err != nil {
		return nil, err
	}

	var entries []*Entry
	for _, id := range ids {
		hash, err := rdb.HGetAll(ctx, blackboard.SessionKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read session %s: %w", id, err)
		}

		info, err := blackboard.HashToSession(hash)
		if err != nil {
			log.Printf("[WARN] Skipping malformed session: id=%s (error: %v)", id, err)
			continue
		}

		if filters != nil && !filters.matches(info) {
			continue
		}

		trials, err := rdb.LLen(ctx, blackboard.TrialsKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to count trials of session %s: %w", id, err)
		}

		entries = append(entries, &Entry{SessionInfo: info, Trials: trials})
	}

	// Oldest first for chronological output
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartedAtMs < entries[j].StartedAtMs
	})

	return entries, nil
}

// ListSessions collects the matching sessions and writes them in the given format.
func ListSessions(ctx context.Context, rdb *redis.Client, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	entries, err := Collect(ctx, rdb, filters)
	if err != nil {
		return err
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, entries)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, entries); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
