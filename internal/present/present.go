// Package present defines the presentation and timing collaborators the experiment
// drivers block on, and a terminal implementation of them.
package present

import (
	"context"
	"errors"
	"time"
)

// ErrQuit is returned by WaitInput when the participant presses the quit key.
var ErrQuit = errors.New("quit requested")

// Key is a single response key, lowercase.
type Key string

// Response is the outcome of one wait for input.
type Response struct {
	Key      Key           // Empty when the wait timed out
	RT       time.Duration // Time from the start of the wait to the key press
	TimedOut bool
}

// Millis returns the reaction time in whole milliseconds, or nil after a timeout.
func (r Response) Millis() *int64 {
	if r.TimedOut {
		return nil
	}
	ms := r.RT.Milliseconds()
	return &ms
}

// Presenter draws stimuli and collects responses.
type Presenter interface {
	// Present replaces the screen with the given stimuli and returns once drawn.
	Present(ctx context.Context, stimuli ...Stimulus) error

	// WaitInput blocks until a key in accept is pressed (any key when accept is empty)
	// or timeout elapses. A zero timeout waits indefinitely. A timeout is not an error.
	WaitInput(ctx context.Context, accept []Key, timeout time.Duration) (Response, error)

	Close() error
}

// Clock blocks for fixed intervals.
type Clock interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SystemClock waits on the runtime's monotonic timers.
type SystemClock struct{}

// Wait sleeps for d or until ctx is done.
func (SystemClock) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
