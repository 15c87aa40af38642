package blackboard

import (
	"fmt"
	"strings"
)

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by session ID.
//
// Key pattern: trialrun:{session_id}:{entity}
// Channel pattern: trialrun:{session_id}:{event_type}_events

// SessionKey returns the Redis key for the session hash.
// Pattern: trialrun:{session_id}:session
func SessionKey(sessionID string) string {
	return fmt.Sprintf("trialrun:%s:session", sessionID)
}

// TrialsKey returns the Redis key for the session's ordered list of trial events.
// Pattern: trialrun:{session_id}:trials
func TrialsKey(sessionID string) string {
	return fmt.Sprintf("trialrun:%s:trials", sessionID)
}

// TrialEventsChannel returns the Pub/Sub channel name for trial events.
// Pattern: trialrun:{session_id}:trial_events
func TrialEventsChannel(sessionID string) string {
	return fmt.Sprintf("trialrun:%s:trial_events", sessionID)
}

// SessionIDFromKey extracts the session ID from a session hash key.
// Returns "" if key is not a session key.
func SessionIDFromKey(key string) string {
	const prefix, suffix = "trialrun:", ":session"
	if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) || len(key) <= len(prefix)+len(suffix) {
		return ""
	}
	return key[len(prefix) : len(key)-len(suffix)]
}
