package blackboard

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionStatus tracks where a session is in its lifecycle.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionAborted   SessionStatus = "aborted"
)

// Validate checks the status is one of the known values.
func (s SessionStatus) Validate() error {
	switch s {
	case SessionRunning, SessionCompleted, SessionAborted:
		return nil
	}
	return fmt.Errorf("invalid session status: %q", string(s))
}

// SessionInfo describes one experiment run.
type SessionInfo struct {
	ID          string        `json:"id"`
	Experiment  string        `json:"experiment"`
	Participant string        `json:"participant"`
	Seed        uint64        `json:"seed"`
	DataFile    string        `json:"data_file"`
	Columns     []string      `json:"columns"`
	Status      SessionStatus `json:"status"`
	StartedAtMs int64         `json:"started_at_ms"`
}

// Validate checks required fields.
func (s *SessionInfo) Validate() error {
	if !isValidUUID(s.ID) {
		return fmt.Errorf("session ID must be a valid UUID: %q", s.ID)
	}
	if s.Experiment == "" {
		return fmt.Errorf("experiment is required")
	}
	if s.Participant == "" {
		return fmt.Errorf("participant is required")
	}
	return s.Status.Validate()
}

// TrialEvent is one data row as it was appended to the session's data file.
type TrialEvent struct {
	ID           string   `json:"id"`
	SessionID    string   `json:"session_id"`
	Seq          int      `json:"seq"` // 1-based row number within the session
	Block        int      `json:"block"`
	Trial        int      `json:"trial"`
	Columns      []string `json:"columns"`
	Values       []string `json:"values"`
	RecordedAtMs int64    `json:"recorded_at_ms"`
}

// Validate checks required fields.
func (e *TrialEvent) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("trial event ID must be a valid UUID: %q", e.ID)
	}
	if !isValidUUID(e.SessionID) {
		return fmt.Errorf("session ID must be a valid UUID: %q", e.SessionID)
	}
	if e.Seq < 1 {
		return fmt.Errorf("seq must be >= 1, got %d", e.Seq)
	}
	if len(e.Columns) != len(e.Values) {
		return fmt.Errorf("columns and values differ in length (%d vs %d)", len(e.Columns), len(e.Values))
	}
	return nil
}

// Value returns the value of the named column, or "" when absent.
func (e *TrialEvent) Value(column string) string {
	for i, c := range e.Columns {
		if c == column {
			return e.Values[i]
		}
	}
	return ""
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
