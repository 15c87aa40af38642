package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RangeSeparator separates the bounds of a duration range, as in "1s..3s".
const RangeSeparator = ".."

// Parse parses a duration specification.
// Supports two formats:
//   - Go duration format: "500ms", "3s", "1m30s"
//   - Bare integers, read as milliseconds: "500"
//
// Negative durations are rejected.
func Parse(spec string) (time.Duration, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty duration specification")
	}

	if ms, err := strconv.ParseInt(spec, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("negative duration: %s", spec)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid duration specification: %s (use a duration like '500ms' or '3s', or milliseconds like '500')", spec)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration: %s", spec)
	}

	return d, nil
}

// ParseRange parses a duration range "MIN..MAX" into its bounds.
// A single duration is accepted as a range of width zero.
//
// Validates that MIN <= MAX.
func ParseRange(spec string) (time.Duration, time.Duration, error) {
	lo, hi, found := strings.Cut(spec, RangeSeparator)
	if !found {
		d, err := Parse(spec)
		if err != nil {
			return 0, 0, err
		}
		return d, d, nil
	}

	min, err := Parse(lo)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range start: %w", err)
	}

	max, err := Parse(hi)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range end: %w", err)
	}

	if min > max {
		return 0, 0, fmt.Errorf("range start %v must not exceed range end %v", min, max)
	}

	return min, max, nil
}
