package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/trialrun/internal/config"
	"github.com/dyluth/trialrun/internal/datafile"
	"github.com/dyluth/trialrun/internal/experiment"
	"github.com/dyluth/trialrun/internal/present"
	"github.com/dyluth/trialrun/internal/testutil"
	"github.com/dyluth/trialrun/pkg/blackboard"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallConfig = `version: "1.0"
ihtt:
  blocks_per_type: 1
  trials_per_block: 1
dmts:
  blocks: 1
`

// withScript makes runExperiment use a scripted presenter and a clock that never sleeps.
func withScript(t *testing.T, steps ...testutil.Step) *testutil.ScriptedPresenter {
	t.Helper()
	p := testutil.NewScriptedPresenter(steps...)

	prevPresenter, prevClock := newPresenter, sessionClock
	newPresenter = func(*config.Config) present.Presenter { return p }
	sessionClock = &testutil.FakeClock{}
	t.Cleanup(func() {
		newPresenter, sessionClock = prevPresenter, prevClock
	})
	return p
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, config.DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(smallConfig), 0644))
	return path
}

func enter() testutil.Step {
	return testutil.Press(present.KeyReturn, 0)
}

// dmtsScript answers the welcome, every trial of one block with key, and the goodbye.
func dmtsScript(key present.Key) []testutil.Step {
	steps := []testutil.Step{enter()}
	for i := 0; i < 14; i++ {
		steps = append(steps, testutil.Press(key, 400*time.Millisecond))
	}
	return append(steps, enter())
}

func TestRunExperiment_DMTSComplete(t *testing.T) {
	dir := t.TempDir()
	p := withScript(t, dmtsScript("z")...)

	result, err := runExperiment(context.Background(), experiment.Experiments[experiment.DMTSName], runOptions{
		ConfigPath:  writeConfig(t, dir),
		Participant: "p01",
		Seed:        42,
		OutputDir:   filepath.Join(dir, "data"),
	})
	require.NoError(t, err)
	require.NoError(t, result.Err)

	assert.Equal(t, 14, result.Rows)
	assert.Equal(t, uint64(42), result.Seed)
	assert.Equal(t, "p01", result.Participant)
	assert.Zero(t, p.Remaining())
	assert.True(t, p.Closed)

	assert.True(t, strings.HasPrefix(filepath.Base(result.DataPath), "dmts_p01_"+result.SessionID[:8]))

	table, err := datafile.Open(result.DataPath)
	require.NoError(t, err)
	assert.Equal(t, experiment.DMTSSchema, table.Columns)
	assert.Len(t, table.Rows, 14)
	assert.Equal(t, "dmts", table.Meta["experiment"])
	assert.Equal(t, "42", table.Meta["seed"])
	assert.Equal(t, result.SessionID, table.Meta["session"])
	assert.Equal(t, "true", table.Meta["develop_mode"])

	for _, row := range table.Rows {
		assert.Equal(t, "400", row[table.Column("latency")])
	}
}

func TestRunExperiment_SameSeedSameDesign(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	run := func() *datafile.Table {
		withScript(t, dmtsScript("m")...)
		result, err := runExperiment(context.Background(), experiment.Experiments[experiment.DMTSName], runOptions{
			ConfigPath:  cfgPath,
			Participant: "p01",
			Seed:        7,
			OutputDir:   dir,
		})
		require.NoError(t, err)
		require.NoError(t, result.Err)

		table, err := datafile.Open(result.DataPath)
		require.NoError(t, err)
		return table
	}

	first, second := run(), run()
	assert.Equal(t, first.Rows, second.Rows)
	assert.NotEqual(t, first.Meta["session"], second.Meta["session"])
}

func TestRunExperiment_QuitKeepsRecordedTrials(t *testing.T) {
	dir := t.TempDir()
	withScript(t,
		enter(), // welcome
		enter(), // first block instructions
		testutil.Press("b", 300*time.Millisecond),
		testutil.Quit(),
	)

	result, err := runExperiment(context.Background(), experiment.Experiments[experiment.IHTTName], runOptions{
		ConfigPath:  writeConfig(t, dir),
		Participant: "p02",
		Seed:        3,
		OutputDir:   dir,
	})
	require.NoError(t, err)
	require.ErrorIs(t, result.Err, present.ErrQuit)
	assert.Equal(t, 1, result.Rows)

	table, err := datafile.Open(result.DataPath)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "300", table.Rows[0][table.Column("rt")])
}

func TestRunExperiment_NextParticipant(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	var participants []string
	for i := 0; i < 2; i++ {
		withScript(t, testutil.Quit())
		result, err := runExperiment(context.Background(), experiment.Experiments[experiment.IHTTName], runOptions{
			ConfigPath: cfgPath,
			OutputDir:  dir,
		})
		require.NoError(t, err)
		participants = append(participants, result.Participant)
	}

	assert.Equal(t, []string{"subject-1", "subject-2"}, participants)
}

func TestRunExperiment_SetupErrors(t *testing.T) {
	restore := printerToBuffer(t)
	defer restore()

	dir := t.TempDir()
	withScript(t)

	t.Run("invalid participant", func(t *testing.T) {
		_, err := runExperiment(context.Background(), experiment.Experiments[experiment.DMTSName], runOptions{
			ConfigPath:  writeConfig(t, dir),
			Participant: "bad name/..",
			OutputDir:   dir,
		})
		require.Error(t, err)
		assert.Equal(t, "invalid participant ID", err.Error())

		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			assert.False(t, strings.HasSuffix(e.Name(), ".csv"), "no data file should be created")
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yml")
		require.NoError(t, os.WriteFile(path, []byte("version: \"2.0\"\n"), 0644))

		_, err := runExperiment(context.Background(), experiment.Experiments[experiment.DMTSName], runOptions{
			ConfigPath: path,
			OutputDir:  dir,
		})
		require.Error(t, err)
		assert.Equal(t, "invalid configuration", err.Error())
	})
}

func TestRunExperiment_MirrorsToMonitor(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	withScript(t, dmtsScript("z")...)

	result, err := runExperiment(context.Background(), experiment.Experiments[experiment.DMTSName], runOptions{
		ConfigPath:  writeConfig(t, dir),
		Participant: "p03",
		Seed:        11,
		OutputDir:   dir,
		RedisAddr:   mr.Addr(),
	})
	require.NoError(t, err)
	require.NoError(t, result.Err)

	client, err := blackboard.NewClient(&redis.Options{Addr: mr.Addr()}, result.SessionID)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	info, err := client.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, blackboard.SessionCompleted, info.Status)
	assert.Equal(t, "p03", info.Participant)
	assert.Equal(t, uint64(11), info.Seed)
	assert.Equal(t, result.DataPath, info.DataFile)

	trials, err := client.ListTrials(ctx)
	require.NoError(t, err)
	require.Len(t, trials, 14)

	table, err := datafile.Open(result.DataPath)
	require.NoError(t, err)
	for i, e := range trials {
		assert.Equal(t, i+1, e.Seq)
		assert.Equal(t, table.Rows[i], e.Values)
	}
}

func TestRunExperiment_AbortedStatusOnQuit(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	withScript(t, testutil.Quit())

	result, err := runExperiment(context.Background(), experiment.Experiments[experiment.IHTTName], runOptions{
		ConfigPath: writeConfig(t, dir),
		OutputDir:  dir,
		RedisAddr:  mr.Addr(),
	})
	require.NoError(t, err)
	require.ErrorIs(t, result.Err, present.ErrQuit)

	client, err := blackboard.NewClient(&redis.Options{Addr: mr.Addr()}, result.SessionID)
	require.NoError(t, err)
	defer client.Close()

	info, err := client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, blackboard.SessionAborted, info.Status)
}

func TestRunExperiment_UnreachableMonitorDoesNotAbort(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	dir := t.TempDir()
	withScript(t, dmtsScript("m")...)

	result, err := runExperiment(context.Background(), experiment.Experiments[experiment.DMTSName], runOptions{
		ConfigPath:  writeConfig(t, dir),
		Participant: "p04",
		OutputDir:   dir,
		RedisAddr:   addr,
	})
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, 14, result.Rows)
}

func TestApplyRunOptions(t *testing.T) {
	cfg := config.Default()
	develop := false

	applyRunOptions(cfg, runOptions{
		Participant: "p09",
		Seed:        99,
		OutputDir:   "out",
		Develop:     &develop,
		RedisAddr:   "redis:6379",
	})

	assert.Equal(t, "p09", cfg.Participant)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.False(t, cfg.IsDevelop())
	assert.Equal(t, "redis:6379", cfg.Monitor.RedisAddr)

	// Zero values leave the config alone
	applyRunOptions(cfg, runOptions{})
	assert.Equal(t, "p09", cfg.Participant)
	assert.Equal(t, uint64(99), cfg.Seed)
}

func TestResolveSeed(t *testing.T) {
	assert.Equal(t, uint64(5), resolveSeed(5))
	assert.NotZero(t, resolveSeed(0))
}
