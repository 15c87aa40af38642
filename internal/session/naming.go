package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultParticipantPrefix is the prefix for auto-generated participant IDs
	DefaultParticipantPrefix = "subject-"

	// MaxParticipantLength is the maximum length for a participant ID
	MaxParticipantLength = 63

	// ShortIDLength is how many characters of the session UUID appear in file names
	ShortIDLength = 8

	// DataFileExt is the extension of per-session data files
	DataFileExt = ".csv"
)

var (
	// ParticipantPattern is the regex pattern for valid participant IDs.
	// Alphanumeric with hyphens or underscores in between, so IDs are safe in file names.
	ParticipantPattern = regexp.MustCompile(`^[A-Za-z0-9]([-_A-Za-z0-9]*[A-Za-z0-9])?$`)
)

// ValidateParticipant checks if a participant ID is valid.
func ValidateParticipant(id string) error {
	if id == "" {
		return fmt.Errorf("participant ID cannot be empty")
	}

	if len(id) > MaxParticipantLength {
		return fmt.Errorf("participant ID too long: %d characters (max: %d)", len(id), MaxParticipantLength)
	}

	if !ParticipantPattern.MatchString(id) {
		return fmt.Errorf("invalid participant ID '%s': must be alphanumeric with hyphens or underscores (not at start/end)", id)
	}

	return nil
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.New().String()
}

// ShortID truncates a session ID for compact display and file names.
func ShortID(id string) string {
	if len(id) > ShortIDLength {
		return id[:ShortIDLength]
	}
	return id
}

// DataFileName returns the file name for one session's data:
// {experiment}_{participant}_{short session id}.csv
func DataFileName(experiment, participant, sessionID string) string {
	return fmt.Sprintf("%s_%s_%s%s", experiment, participant, ShortID(sessionID), DataFileExt)
}

// DataFilePath creates dir if needed and returns the data file path inside it.
func DataFilePath(dir, experiment, participant, sessionID string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return filepath.Join(dir, DataFileName(experiment, participant, sessionID)), nil
}

// NextParticipant generates the next available subject-N participant ID.
// It scans dir for existing data files of the experiment and finds the highest N.
// A missing directory yields subject-1.
func NextParticipant(dir, experiment string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultParticipantPrefix + "1", nil
		}
		return "", fmt.Errorf("failed to list %s: %w", dir, err)
	}

	// Find highest subject-N number
	prefix := experiment + "_" + DefaultParticipantPrefix
	highestN := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, DataFileExt) {
			continue
		}

		// Extract number between "subject-" and the next "_"
		rest := strings.TrimPrefix(name, prefix)
		numStr, _, found := strings.Cut(rest, "_")
		if !found {
			continue
		}
		if n, err := strconv.Atoi(numStr); err == nil && n > highestN {
			highestN = n
		}
	}

	return fmt.Sprintf("%s%d", DefaultParticipantPrefix, highestN+1), nil
}
