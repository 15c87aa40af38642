package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/trialrun/internal/present"
	"github.com/dyluth/trialrun/pkg/blackboard"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Frame is one Present call recorded by ScriptedPresenter.
type Frame []present.Stimulus

// Wait is one WaitInput call recorded by ScriptedPresenter.
type Wait struct {
	Accept  []present.Key
	Timeout time.Duration
}

// ScriptedPresenter replays a fixed list of responses and records everything shown.
// Responses are consumed in order, one per WaitInput call. Err, when set on a scripted
// step, is returned instead of the response.
type ScriptedPresenter struct {
	mu     sync.Mutex
	script []Step
	Frames []Frame
	Waits  []Wait
	Closed bool
}

// Step is one scripted WaitInput outcome.
type Step struct {
	Response present.Response
	Err      error
}

// Press is a step answering with key after rt.
func Press(key present.Key, rt time.Duration) Step {
	return Step{Response: present.Response{Key: key, RT: rt}}
}

// Timeout is a step where no key arrives in time.
func Timeout(window time.Duration) Step {
	return Step{Response: present.Response{RT: window, TimedOut: true}}
}

// Quit is a step where the participant presses the quit key.
func Quit() Step {
	return Step{Response: present.Response{Key: "q"}, Err: present.ErrQuit}
}

// NewScriptedPresenter creates a presenter replaying steps.
func NewScriptedPresenter(steps ...Step) *ScriptedPresenter {
	return &ScriptedPresenter{script: steps}
}

// Present records the frame.
func (p *ScriptedPresenter) Present(ctx context.Context, stimuli ...present.Stimulus) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Frames = append(p.Frames, Frame(stimuli))
	return ctx.Err()
}

// WaitInput returns the next scripted step.
func (p *ScriptedPresenter) WaitInput(ctx context.Context, accept []present.Key, timeout time.Duration) (present.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return present.Response{}, err
	}

	p.Waits = append(p.Waits, Wait{Accept: accept, Timeout: timeout})
	if len(p.script) == 0 {
		return present.Response{}, fmt.Errorf("script exhausted after %d waits", len(p.Waits)-1)
	}

	step := p.script[0]
	p.script = p.script[1:]
	return step.Response, step.Err
}

// Remaining returns the number of unconsumed steps.
func (p *ScriptedPresenter) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.script)
}

// Close marks the presenter closed.
func (p *ScriptedPresenter) Close() error {
	p.Closed = true
	return nil
}

// FakeClock records waits without sleeping.
type FakeClock struct {
	Waits []time.Duration
}

// Wait records d.
func (c *FakeClock) Wait(ctx context.Context, d time.Duration) error {
	c.Waits = append(c.Waits, d)
	return ctx.Err()
}

// Total returns the sum of all recorded waits.
func (c *FakeClock) Total() time.Duration {
	var total time.Duration
	for _, d := range c.Waits {
		total += d
	}
	return total
}

// SetupBlackboard starts a miniredis server and returns a client for sessionID bound to it.
func SetupBlackboard(t *testing.T, sessionID string) (*blackboard.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := blackboard.NewClient(&redis.Options{Addr: mr.Addr()}, sessionID)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}
