package blackboard

import (
	"strconv"
	"testing"

	"github.com/google/uuid"
)

func validSession() *SessionInfo {
	return &SessionInfo{
		ID:          uuid.New().String(),
		Experiment:  "dmts",
		Participant: "p01",
		Seed:        42,
		Columns:     []string{"delay", "correct_position"},
		Status:      SessionRunning,
	}
}

func TestSessionValidate_Valid(t *testing.T) {
	if err := validSession().Validate(); err != nil {
		t.Errorf("valid session failed validation: %v", err)
	}
}

func TestSessionValidate_Invalid(t *testing.T) {
	cases := map[string]func(s *SessionInfo){
		"bad id":              func(s *SessionInfo) { s.ID = "not-a-uuid" },
		"missing experiment":  func(s *SessionInfo) { s.Experiment = "" },
		"missing participant": func(s *SessionInfo) { s.Participant = "" },
		"bad status":          func(s *SessionInfo) { s.Status = "paused" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := validSession()
			mutate(s)
			if err := s.Validate(); err == nil {
				t.Errorf("expected validation to fail for %s, but it passed", name)
			}
		})
	}
}

func TestTrialEventValidate(t *testing.T) {
	event := &TrialEvent{
		ID:        uuid.New().String(),
		SessionID: uuid.New().String(),
		Seq:       1,
		Columns:   []string{"delay", "latency"},
		Values:    []string{"8", "342"},
	}
	if err := event.Validate(); err != nil {
		t.Fatalf("valid event failed validation: %v", err)
	}

	if got := event.Value("latency"); got != "342" {
		t.Errorf("Value(latency) = %q, expected 342", got)
	}
	if got := event.Value("missing"); got != "" {
		t.Errorf("Value(missing) = %q, expected empty", got)
	}

	event.Values = []string{"8"}
	if err := event.Validate(); err == nil {
		t.Error("expected validation to fail for mismatched columns")
	}

	event.Values = []string{"8", "342"}
	event.Seq = 0
	if err := event.Validate(); err == nil {
		t.Error("expected validation to fail for seq 0")
	}
}

func TestSessionRoundTrip(t *testing.T) {
	original := validSession()
	original.DataFile = "data/dmts_p01_abcdef12.csv"
	original.StartedAtMs = 1700000000000

	hash, err := SessionToHash(original)
	if err != nil {
		t.Fatalf("SessionToHash failed: %v", err)
	}

	stringHash := make(map[string]string)
	for k, v := range hash {
		switch x := v.(type) {
		case string:
			stringHash[k] = x
		case int64:
			stringHash[k] = strconv.FormatInt(x, 10)
		default:
			t.Fatalf("unexpected hash value type %T for %s", v, k)
		}
	}

	result, err := HashToSession(stringHash)
	if err != nil {
		t.Fatalf("HashToSession failed: %v", err)
	}

	if result.Seed != original.Seed || result.StartedAtMs != original.StartedAtMs ||
		result.DataFile != original.DataFile || len(result.Columns) != 2 {
		t.Errorf("round trip mismatch: got %+v, expected %+v", result, original)
	}
}

func TestHashToSession_InvalidSeed(t *testing.T) {
	if _, err := HashToSession(map[string]string{"seed": "abc"}); err == nil {
		t.Error("expected error for invalid seed")
	}
}
