package design

import (
	"errors"
	"fmt"
	"slices"
)

const (
	// MaxSideRun is the longest run of one side a trial order may contain.
	MaxSideRun = 2

	// DefaultMaxAttempts bounds the rejection loop. A balanced 14-item set is accepted
	// after a handful of shuffles; the cap only matters for sets that can never pass,
	// such as one where every item is on the same side.
	DefaultMaxAttempts = 100000
)

// ErrNoValidOrder is returned when no acceptable order was found within the attempt cap.
var ErrNoValidOrder = errors.New("no valid order found")

// GenerateAndTest calls generate until accept approves the candidate or maxAttempts
// candidates have been rejected. It returns the accepted candidate and the number of
// candidates drawn.
func GenerateAndTest[T any](maxAttempts int, generate func() T, accept func(T) bool) (T, int, error) {
	var zero T
	if maxAttempts < 1 {
		return zero, 0, fmt.Errorf("maxAttempts must be >= 1, got %d", maxAttempts)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := generate()
		if accept(candidate) {
			return candidate, attempt, nil
		}
	}

	return zero, maxAttempts, fmt.Errorf("%w after %d attempts", ErrNoValidOrder, maxAttempts)
}

// HasSideRun reports whether sides contains n or more consecutive equal values.
// Every window is checked, including the one ending on the last element.
func HasSideRun(sides []Side, n int) bool {
	if n <= 0 {
		return true
	}

	run := 0
	for i, s := range sides {
		if i > 0 && s == sides[i-1] {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

// Sequence returns a uniformly shuffled copy of conds in which no side appears more
// than MaxSideRun times in a row. The input slice is not modified.
func Sequence(rng Source, conds []Condition) ([]Condition, error) {
	return SequenceN(rng, conds, DefaultMaxAttempts)
}

// SequenceN is Sequence with an explicit attempt cap.
func SequenceN(rng Source, conds []Condition, maxAttempts int) ([]Condition, error) {
	order := slices.Clone(conds)

	accepted, _, err := GenerateAndTest(maxAttempts,
		func() []Condition {
			rng.Shuffle(len(order), func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
			return order
		},
		func(candidate []Condition) bool {
			return !HasSideRun(ConditionSides(candidate), MaxSideRun+1)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to order %d conditions: %w", len(conds), err)
	}

	return accepted, nil
}
