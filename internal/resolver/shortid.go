// Package resolver expands the short session IDs shown in data file names into
// full session IDs.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/trialrun/pkg/blackboard"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// maxListed caps how many matches an ambiguity message lists.
const maxListed = 10

// ResolveSessionID resolves a session ID or ID prefix against the sessions announced
// on rdb. Returns the full ID if exactly one session matches.
func ResolveSessionID(ctx context.Context, rdb *redis.Client, id string) (string, error) {
	if _, err := uuid.Parse(id); err == nil {
		id = strings.ToLower(id)
		n, err := rdb.Exists(ctx, blackboard.SessionKey(id)).Result()
		if err != nil {
			return "", fmt.Errorf("failed to verify session existence: %w", err)
		}
		if n == 0 {
			return "", &NotFoundError{ShortID: id}
		}
		return id, nil
	}

	if len(id) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(id))
	}

	matches, err := blackboard.ScanSessions(ctx, rdb, id)
	if err != nil {
		return "", fmt.Errorf("failed to search for session: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: id}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: id, Matches: matches}
	}
}

// NotFoundError indicates no session matched the ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no sessions found matching '%s'", e.ShortID)
}

// AmbiguousError indicates several sessions matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d sessions", e.ShortID, len(e.Matches))
}

// Listing returns the matching IDs one per line, truncated after ten.
func (e *AmbiguousError) Listing() string {
	var b strings.Builder
	for i, m := range e.Matches {
		if i == maxListed {
			fmt.Fprintf(&b, "  ...and %d more\n", len(e.Matches)-maxListed)
			break
		}
		fmt.Fprintf(&b, "  %s\n", m)
	}
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
