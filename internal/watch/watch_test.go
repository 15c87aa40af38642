package watch

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dyluth/trialrun/internal/testutil"
	"github.com/dyluth/trialrun/pkg/blackboard"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"block", "block_type", "trial", "rt"}

func newSession(id string, status blackboard.SessionStatus) *blackboard.SessionInfo {
	return &blackboard.SessionInfo{
		ID:          id,
		Experiment:  "ihtt",
		Participant: "p01",
		Seed:        42,
		DataFile:    "data/ihtt_p01_" + id[:8] + ".csv",
		Columns:     columns,
		Status:      status,
		StartedAtMs: time.Now().UnixMilli(),
	}
}

func newTrial(sessionID string, seq int, rt string) *blackboard.TrialEvent {
	return &blackboard.TrialEvent{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		Seq:          seq,
		Block:        1,
		Trial:        seq,
		Columns:      columns,
		Values:       []string{"1", "LC", strconv.Itoa(seq), rt},
		RecordedAtMs: time.Now().UnixMilli(),
	}
}

// syncBuffer is a bytes.Buffer safe for a writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStreamTrials_CompletedSession(t *testing.T) {
	ctx := context.Background()
	id := uuid.NewString()
	client, _ := testutil.SetupBlackboard(t, id)

	require.NoError(t, client.PutSession(ctx, newSession(id, blackboard.SessionCompleted)))
	require.NoError(t, client.RecordTrial(ctx, newTrial(id, 1, "300")))
	require.NoError(t, client.RecordTrial(ctx, newTrial(id, 2, "")))

	var buf bytes.Buffer
	require.NoError(t, StreamTrials(ctx, client, OutputFormatDefault, &buf))

	out := buf.String()
	assert.Contains(t, out, "experiment=ihtt participant=p01 seed=42")
	assert.Contains(t, out, "#1 block 1 trial 1: block=1 block_type=LC trial=1 rt=300")
	assert.Contains(t, out, "#2 block 1 trial 2: block=1 block_type=LC trial=2 rt=-")
	assert.Contains(t, out, "🎉 Session completed")
}

func TestStreamTrials_FollowsLiveSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id := uuid.NewString()
	client, _ := testutil.SetupBlackboard(t, id)

	require.NoError(t, client.PutSession(ctx, newSession(id, blackboard.SessionRunning)))
	require.NoError(t, client.RecordTrial(ctx, newTrial(id, 1, "300")))
	require.NoError(t, client.RecordTrial(ctx, newTrial(id, 2, "310")))

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- StreamTrials(ctx, client, OutputFormatDefault, out)
	}()

	// The catch-up list is read after subscribing, so once #2 is printed the
	// subscription is live.
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "#2 ") }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, client.RecordTrial(ctx, newTrial(id, 3, "320")))
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "#3 ") }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, client.SetStatus(ctx, blackboard.SessionAborted))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after the session was aborted")
	}

	assert.Equal(t, 1, strings.Count(out.String(), "#2 "))
	assert.Contains(t, out.String(), "🛑 Session aborted")
}

func TestStreamTrials_MissingSession(t *testing.T) {
	id := uuid.NewString()
	client, _ := testutil.SetupBlackboard(t, id)

	err := StreamTrials(context.Background(), client, OutputFormatDefault, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, blackboard.IsNotFound(err))
}

func TestStreamTrials_UnknownFormat(t *testing.T) {
	id := uuid.NewString()
	client, _ := testutil.SetupBlackboard(t, id)

	err := StreamTrials(context.Background(), client, OutputFormat("xml"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown output format")
}

func TestWaitForSession(t *testing.T) {
	ctx := context.Background()

	t.Run("returns once the session appears", func(t *testing.T) {
		id := uuid.NewString()
		client, _ := testutil.SetupBlackboard(t, id)

		go func() {
			time.Sleep(300 * time.Millisecond)
			client.PutSession(ctx, newSession(id, blackboard.SessionRunning))
		}()

		info, err := WaitForSession(ctx, client, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, id, info.ID)
	})

	t.Run("times out", func(t *testing.T) {
		id := uuid.NewString()
		client, _ := testutil.SetupBlackboard(t, id)

		_, err := WaitForSession(ctx, client, 300*time.Millisecond)
		assert.ErrorContains(t, err, "timeout waiting for session")
	})
}

func TestFormatters(t *testing.T) {
	id := uuid.NewString()

	t.Run("jsonFormatter formats trial events", func(t *testing.T) {
		var buf bytes.Buffer
		f := &jsonFormatter{writer: &buf}

		require.NoError(t, f.FormatTrial(newTrial(id, 4, "333")))

		out := buf.String()
		assert.Contains(t, out, `"event":"trial"`)
		assert.Contains(t, out, `"seq":4`)
		assert.Contains(t, out, `"values":["1","LC","4","333"]`)
		assert.True(t, strings.HasSuffix(out, "\n"))
	})

	t.Run("jsonFormatter formats status", func(t *testing.T) {
		var buf bytes.Buffer
		f := &jsonFormatter{writer: &buf}

		require.NoError(t, f.FormatStatus(newSession(id, blackboard.SessionCompleted)))
		assert.Contains(t, buf.String(), `"status":"completed"`)
	})
}
