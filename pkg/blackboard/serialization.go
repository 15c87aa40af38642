package blackboard

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). The column list is JSON-encoded
// into a single hash field.

// SessionToHash converts a SessionInfo to a Redis hash.
func SessionToHash(s *SessionInfo) (map[string]interface{}, error) {
	columnsJSON, err := json.Marshal(s.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal columns: %w", err)
	}

	return map[string]interface{}{
		"id":            s.ID,
		"experiment":    s.Experiment,
		"participant":   s.Participant,
		"seed":          strconv.FormatUint(s.Seed, 10),
		"data_file":     s.DataFile,
		"columns":       string(columnsJSON),
		"status":        string(s.Status),
		"started_at_ms": s.StartedAtMs,
	}, nil
}

// HashToSession converts a Redis hash back to a SessionInfo.
func HashToSession(hash map[string]string) (*SessionInfo, error) {
	seed, err := strconv.ParseUint(hash["seed"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seed field: %w", err)
	}

	var startedAt int64
	if v := hash["started_at_ms"]; v != "" {
		startedAt, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid started_at_ms field: %w", err)
		}
	}

	var columns []string
	if v := hash["columns"]; v != "" {
		if err := json.Unmarshal([]byte(v), &columns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
		}
	}
	if columns == nil {
		columns = []string{}
	}

	return &SessionInfo{
		ID:          hash["id"],
		Experiment:  hash["experiment"],
		Participant: hash["participant"],
		Seed:        seed,
		DataFile:    hash["data_file"],
		Columns:     columns,
		Status:      SessionStatus(hash["status"]),
		StartedAtMs: startedAt,
	}, nil
}
