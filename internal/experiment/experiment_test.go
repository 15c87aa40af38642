package experiment

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/dyluth/trialrun/internal/config"
	"github.com/dyluth/trialrun/internal/datafile"
	"github.com/dyluth/trialrun/internal/present"
	"github.com/dyluth/trialrun/internal/session"
	"github.com/dyluth/trialrun/internal/testutil"
	"github.com/dyluth/trialrun/pkg/blackboard"
	"github.com/dyluth/trialrun/pkg/design"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = 20240601

func newSession(t *testing.T, cfg *config.Config, schema []string, p present.Presenter, clock present.Clock) (*Session, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.csv")
	df, err := datafile.Create(path, schema, []datafile.Meta{{Key: "seed", Value: "test"}})
	require.NoError(t, err)
	t.Cleanup(func() { df.Close() })

	return &Session{
		ID:          session.NewID(),
		Participant: "p01",
		Config:      cfg,
		Rand:        design.NewSource(testSeed),
		Presenter:   p,
		Clock:       clock,
		Data:        df,
		Log:         log.New(io.Discard, "", 0),
	}, path
}

func readRows(t *testing.T, path string) *datafile.Table {
	t.Helper()
	table, err := datafile.Open(path)
	require.NoError(t, err)
	return table
}

// dmtsScript answers every trial of the seeded design, correctly unless wrong says
// otherwise, with latencies from rt.
func dmtsScript(t *testing.T, cfg *config.Config, rt func(design.Trial) time.Duration, wrong func(design.Trial) bool) ([]design.Block, []testutil.Step) {
	t.Helper()

	rng := design.NewSource(testSeed)
	blocks := make([]design.Block, cfg.DMTS.Blocks)
	for i := range blocks {
		b, err := design.BuildDMTSBlock(rng, i+1)
		require.NoError(t, err)
		blocks[i] = b
	}

	steps := []testutil.Step{testutil.Press(present.KeyReturn, time.Second)}
	for i, b := range blocks {
		for _, trial := range b.Trials {
			side := trial.Side
			if wrong != nil && wrong(trial) {
				side = side.Opposite()
			}
			key := present.Key(cfg.DMTS.RightKey)
			if side == design.Left {
				key = present.Key(cfg.DMTS.LeftKey)
			}
			steps = append(steps, testutil.Press(key, rt(trial)))
		}
		if i < len(blocks)-1 {
			steps = append(steps, testutil.Press(present.KeyReturn, time.Second))
		}
	}
	steps = append(steps, testutil.Press(present.KeyReturn, time.Second))
	return blocks, steps
}

func TestRunDMTS_RecordsEveryTrial(t *testing.T) {
	cfg := config.Default()
	cfg.DMTS.Blocks = 2

	blocks, steps := dmtsScript(t, cfg,
		func(trial design.Trial) time.Duration {
			if trial.Delay == 8 && trial.Side == design.Right {
				return 342 * time.Millisecond
			}
			return 900 * time.Millisecond
		},
		func(trial design.Trial) bool { return trial.Delay == 32 },
	)

	p := testutil.NewScriptedPresenter(steps...)
	clock := &testutil.FakeClock{}
	s, path := newSession(t, cfg, DMTSSchema, p, clock)

	require.NoError(t, RunDMTS(context.Background(), s))
	assert.Equal(t, 0, p.Remaining())
	assert.Equal(t, 28, s.Rows())

	table := readRows(t, path)
	assert.Equal(t, DMTSSchema, table.Columns)
	require.Len(t, table.Rows, 28)

	found := 0
	for i, row := range table.Rows {
		trial := blocks[i/14].Trials[i%14]

		// Rows follow the generated order exactly.
		assert.Equal(t, strconv.Itoa(trial.Delay), row[0])
		assert.Equal(t, strconv.Itoa(int(trial.Side)), row[1])
		assert.Equal(t, strconv.Itoa(trial.Pair.CorrectSize()), row[4])
		assert.Equal(t, strconv.Itoa(trial.Pair.IncorrectSize()), row[5])
		assert.Equal(t, strconv.Itoa(i/14+1), row[6])
		assert.Equal(t, strconv.Itoa(i%14+1), row[7])

		if trial.Delay == 32 {
			assert.Equal(t, "0", row[2], "delay 32 was answered wrongly")
		} else {
			assert.Equal(t, "1", row[2])
		}

		if trial.Delay == 8 && trial.Side == design.Right {
			assert.Equal(t, []string{"8", "1", "1", "342"}, row[:4])
			found++
		}
	}
	assert.Equal(t, 2, found, "one delay-8/right trial per block")
}

func TestRunDMTS_TrialTiming(t *testing.T) {
	cfg := config.Default()
	cfg.DMTS.Blocks = 1
	cfg.DMTS.Unit = 100 * time.Millisecond

	blocks, steps := dmtsScript(t, cfg, func(design.Trial) time.Duration { return time.Second }, nil)
	p := testutil.NewScriptedPresenter(steps...)
	clock := &testutil.FakeClock{}
	s, _ := newSession(t, cfg, DMTSSchema, p, clock)

	require.NoError(t, RunDMTS(context.Background(), s))

	// sample, delay, post-response per trial
	require.Len(t, clock.Waits, 3*14)
	for i, trial := range blocks[0].Trials {
		assert.Equal(t, 3*time.Second, clock.Waits[3*i])
		assert.Equal(t, time.Duration(trial.Delay)*100*time.Millisecond, clock.Waits[3*i+1])
		assert.Equal(t, 2*time.Second, clock.Waits[3*i+2])
	}

	// Comparison frames put the correct circle on the condition's side.
	var comparisons []testutil.Frame
	for _, f := range p.Frames {
		if len(f) == 2 {
			comparisons = append(comparisons, f)
		}
	}
	require.Len(t, comparisons, 14)
	for i, f := range comparisons {
		trial := blocks[0].Trials[i]
		correct := f[0].(present.Circle)
		incorrect := f[1].(present.Circle)
		assert.Equal(t, trial.Pair.CorrectSize(), correct.Diameter)
		assert.Equal(t, int(trial.Side) > 0, correct.X > 0)
		assert.Equal(t, -correct.X, incorrect.X)
	}
}

func TestRunDMTS_TimeoutIsRecorded(t *testing.T) {
	cfg := config.Default()
	cfg.DMTS.Blocks = 1
	cfg.DMTS.ResponseTimeout = 5 * time.Second

	_, steps := dmtsScript(t, cfg, func(design.Trial) time.Duration { return time.Second }, nil)
	steps[1] = testutil.Timeout(5 * time.Second)

	p := testutil.NewScriptedPresenter(steps...)
	s, path := newSession(t, cfg, DMTSSchema, p, &testutil.FakeClock{})

	require.NoError(t, RunDMTS(context.Background(), s))

	table := readRows(t, path)
	require.Len(t, table.Rows, 14)
	assert.Equal(t, "", table.Rows[0][2])
	assert.Equal(t, "", table.Rows[0][3])
	assert.Equal(t, "1", table.Rows[1][2])

	assert.Equal(t, 5*time.Second, p.Waits[1].Timeout)
	assert.Equal(t, []present.Key{"z", "m"}, p.Waits[1].Accept)
}

func TestRunIHTT(t *testing.T) {
	cfg := config.Default()
	cfg.IHTT.BlocksPerType = 1
	cfg.IHTT.TrialsPerBlock = 2

	steps := []testutil.Step{testutil.Press(present.KeyReturn, time.Second)}
	for block := 0; block < 4; block++ {
		steps = append(steps,
			testutil.Press("b", time.Second),
			testutil.Press("b", 287*time.Millisecond),
			testutil.Timeout(500*time.Millisecond),
		)
	}

	p := testutil.NewScriptedPresenter(steps...)
	clock := &testutil.FakeClock{}
	s, path := newSession(t, cfg, IHTTSchema, p, clock)

	require.NoError(t, RunIHTT(context.Background(), s))
	assert.Equal(t, 0, p.Remaining())

	table := readRows(t, path)
	assert.Equal(t, IHTTSchema, table.Columns)
	require.Len(t, table.Rows, 8)

	seen := map[string]int{}
	for i, row := range table.Rows {
		assert.Equal(t, strconv.Itoa(i/2+1), row[0])
		assert.Equal(t, strconv.Itoa(i%2+1), row[2])
		seen[row[1]]++
		if i%2 == 0 {
			assert.Equal(t, "287", row[3])
		} else {
			assert.Equal(t, "", row[3], "timeout must leave rt empty")
		}
	}
	assert.Equal(t, map[string]int{"LC": 2, "LI": 2, "RC": 2, "RI": 2}, seen)

	// fixation then inter-trial wait for each of the 8 trials
	require.Len(t, clock.Waits, 16)
	for i := 0; i < 16; i += 2 {
		assert.GreaterOrEqual(t, clock.Waits[i], time.Second)
		assert.LessOrEqual(t, clock.Waits[i], 3*time.Second)
		assert.Equal(t, 3*time.Second, clock.Waits[i+1])
	}

	// Every response wait uses the response key and window.
	for _, w := range p.Waits {
		if len(w.Accept) > 0 {
			assert.Equal(t, []present.Key{"b"}, w.Accept)
			assert.Equal(t, 500*time.Millisecond, w.Timeout)
		}
	}
}

func TestRunIHTT_CirclesFollowBlockField(t *testing.T) {
	cfg := config.Default()
	cfg.IHTT.BlocksPerType = 1
	cfg.IHTT.TrialsPerBlock = 1

	steps := []testutil.Step{testutil.Press(present.KeyReturn, time.Second)}
	for block := 0; block < 4; block++ {
		steps = append(steps, testutil.Press("b", time.Second), testutil.Press("b", 300*time.Millisecond))
	}
	p := testutil.NewScriptedPresenter(steps...)
	s, path := newSession(t, cfg, IHTTSchema, p, &testutil.FakeClock{})

	require.NoError(t, RunIHTT(context.Background(), s))

	var circles []present.Circle
	for _, f := range p.Frames {
		if c, ok := f[0].(present.Circle); ok {
			circles = append(circles, c)
		}
	}
	table := readRows(t, path)
	require.Len(t, circles, 4)
	for i, row := range table.Rows {
		bt := design.BlockType(row[1])
		assert.Equal(t, bt.Field() == design.Left, circles[i].X < 0)
		assert.Equal(t, 100, circles[i].Diameter)
		assert.Equal(t, 409, abs(circles[i].X))
	}
}

func TestRunIHTT_QuitKeepsFlushedRows(t *testing.T) {
	cfg := config.Default()

	p := testutil.NewScriptedPresenter(
		testutil.Press(present.KeyReturn, time.Second),
		testutil.Press("b", time.Second),
		testutil.Press("b", 250*time.Millisecond),
		testutil.Quit(),
	)
	s, path := newSession(t, cfg, IHTTSchema, p, &testutil.FakeClock{})

	err := RunIHTT(context.Background(), s)
	require.Error(t, err)
	assert.ErrorIs(t, err, present.ErrQuit)

	table := readRows(t, path)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "250", table.Rows[0][3])
}

func TestRunIHTT_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, _ := newSession(t, config.Default(), IHTTSchema, testutil.NewScriptedPresenter(), &testutil.FakeClock{})
	err := RunIHTT(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSession_MirrorsToMonitor(t *testing.T) {
	cfg := config.Default()
	cfg.DMTS.Blocks = 1

	_, steps := dmtsScript(t, cfg, func(design.Trial) time.Duration { return time.Second }, nil)
	s, _ := newSession(t, cfg, DMTSSchema, testutil.NewScriptedPresenter(steps...), &testutil.FakeClock{})

	client, _ := testutil.SetupBlackboard(t, s.ID)
	s.Monitor = client

	require.NoError(t, RunDMTS(context.Background(), s))

	events, err := client.ListTrials(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 14)
	for i, ev := range events {
		assert.Equal(t, i+1, ev.Seq)
		assert.Equal(t, 1, ev.Block)
		assert.Equal(t, i+1, ev.Trial)
		assert.Equal(t, DMTSSchema, ev.Columns)
		assert.Equal(t, "1", ev.Value("response"))
	}
}

type failingMonitor struct{ calls int }

func (m *failingMonitor) RecordTrial(context.Context, *blackboard.TrialEvent) error {
	m.calls++
	return errors.New("redis unavailable")
}

func TestSession_MonitorFailureDoesNotAbort(t *testing.T) {
	cfg := config.Default()
	cfg.DMTS.Blocks = 1

	_, steps := dmtsScript(t, cfg, func(design.Trial) time.Duration { return time.Second }, nil)
	s, path := newSession(t, cfg, DMTSSchema, testutil.NewScriptedPresenter(steps...), &testutil.FakeClock{})
	monitor := &failingMonitor{}
	s.Monitor = monitor

	require.NoError(t, RunDMTS(context.Background(), s))
	assert.Equal(t, 14, monitor.calls)
	assert.Len(t, readRows(t, path).Rows, 14)
}

func TestSession_Validate(t *testing.T) {
	err := RunDMTS(context.Background(), &Session{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no config")
}

func TestLookup(t *testing.T) {
	exp, err := Lookup("dmts")
	require.NoError(t, err)
	assert.Equal(t, DMTSSchema, exp.Schema)

	_, err = Lookup("stroop")
	assert.Error(t, err)
}

func TestMessages(t *testing.T) {
	assert.Contains(t, ihttBlockText(true, "b"), "ESQUERDA")
	assert.Contains(t, ihttBlockText(false, "b"), "DIREITA")
	assert.Contains(t, ihttWelcomeText("b"), "tecla B")
	assert.Contains(t, dmtsWelcomeText("z", "m"), "tecla Z")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
