package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/dyluth/trialrun/internal/config"
	"github.com/dyluth/trialrun/internal/datafile"
	"github.com/dyluth/trialrun/internal/experiment"
	"github.com/dyluth/trialrun/internal/present"
	"github.com/dyluth/trialrun/internal/printer"
	"github.com/dyluth/trialrun/internal/session"
	"github.com/dyluth/trialrun/pkg/blackboard"
	"github.com/dyluth/trialrun/pkg/design"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const defaultRedisAddr = "localhost:6379"

var (
	runConfigPath  string
	runParticipant string
	runSeed        uint64
	runOutputDir   string
	runDevelop     bool
	runRedisAddr   string
)

// newPresenter and sessionClock are the session's I/O; tests replace them.
var (
	newPresenter = func(cfg *config.Config) present.Presenter {
		return present.NewTerminal(os.Stdin, os.Stdout, present.TerminalOptions{
			ScreenWidth: cfg.Screen.Width,
			QuitKey:     present.Key(cfg.QuitKey),
			Develop:     cfg.IsDevelop(),
		})
	}
	sessionClock present.Clock = present.SystemClock{}
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an experiment session",
	Long: `Run one experiment session and record it to a new data file.

The data file is written to <output_dir>/<experiment>_<participant>_<session>.csv.
Every trial is flushed to disk as soon as it is recorded, so pressing the quit
key (default: q) or Ctrl+C keeps every completed trial.

Examples:
  # Run DMTS for the next free subject-N
  trialrun run dmts

  # Run IHTT for a named participant with a fixed seed
  trialrun run ihtt --participant p01 --seed 42

  # Mirror trials to Redis so 'trialrun watch' can follow along
  trialrun run dmts --redis localhost:6379`,
}

func init() {
	flags := runCmd.PersistentFlags()
	flags.StringVarP(&runConfigPath, "config", "f", config.DefaultPath, "Configuration file (defaults apply when it is missing)")
	flags.StringVarP(&runParticipant, "participant", "p", "", "Participant ID (default: next free subject-N)")
	flags.Uint64Var(&runSeed, "seed", 0, "Random seed (0 uses the config seed, or derives one from the clock)")
	flags.StringVarP(&runOutputDir, "output-dir", "o", "", "Directory for data files (overrides output_dir)")
	flags.BoolVar(&runDevelop, "develop", false, "Develop mode: keep previous frames visible (overrides develop_mode)")
	flags.StringVar(&runRedisAddr, "redis", "", "Mirror trials to the Redis server at this address (overrides monitor.redis_addr)")

	names := make([]string, 0, len(experiment.Experiments))
	for name := range experiment.Experiments {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		exp := experiment.Experiments[name]
		runCmd.AddCommand(&cobra.Command{
			Use:   exp.Name,
			Short: exp.Description,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runExperimentCmd(cmd, exp)
			},
		})
	}

	rootCmd.AddCommand(runCmd)
}

// runOptions are the command-line overrides applied on top of the config file.
type runOptions struct {
	ConfigPath  string
	Participant string
	Seed        uint64
	OutputDir   string
	Develop     *bool
	RedisAddr   string
}

// runResult describes a finished or aborted session.
type runResult struct {
	SessionID   string
	Participant string
	Seed        uint64
	DataPath    string
	Rows        int
	Err         error // Why the session ended early, or nil
}

func runExperimentCmd(cmd *cobra.Command, exp experiment.Experiment) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{
		ConfigPath:  runConfigPath,
		Participant: runParticipant,
		Seed:        runSeed,
		OutputDir:   runOutputDir,
		RedisAddr:   runRedisAddr,
	}
	if cmd.Flags().Changed("develop") {
		opts.Develop = &runDevelop
	}

	result, err := runExperiment(ctx, exp, opts)
	if err != nil {
		return err
	}

	switch {
	case result.Err == nil:
		printer.Success("Session complete: %d trials recorded\n", result.Rows)
	case errors.Is(result.Err, present.ErrQuit):
		printer.Warning("Session quit by operator after %d trials\n", result.Rows)
	case errors.Is(result.Err, context.Canceled):
		printer.Warning("Session interrupted after %d trials\n", result.Rows)
	default:
		return printer.ErrorWithContext(
			"session failed",
			result.Err.Error(),
			map[string]string{
				"session":   result.SessionID,
				"data file": result.DataPath,
				"trials":    strconv.Itoa(result.Rows),
			},
			[]string{"Completed trials are kept in the data file"},
			"session", "data file", "trials",
		)
	}
	printer.Info("  Data: %s\n", result.DataPath)
	printer.Info("  Participant: %s  Seed: %d  Session: %s\n", result.Participant, result.Seed, result.SessionID)
	return nil
}

// runExperiment prepares a session from the config and options, runs it and closes
// everything it opened. Setup failures are returned as the error; how the session
// itself ended is reported in runResult.Err.
func runExperiment(ctx context.Context, exp experiment.Experiment, opts runOptions) (*runResult, error) {
	cfg, found, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"path": opts.ConfigPath},
			[]string{"Fix the file, or regenerate it with:\n  trialrun init --force"},
		)
	}
	if !found {
		log.Printf("[INFO] %s not found, using built-in defaults", opts.ConfigPath)
	}
	applyRunOptions(cfg, opts)

	participant := cfg.Participant
	if participant == "" {
		participant, err = session.NextParticipant(cfg.OutputDir, exp.Name)
		if err != nil {
			return nil, err
		}
	}
	if err := session.ValidateParticipant(participant); err != nil {
		return nil, printer.Error(
			"invalid participant ID",
			err.Error(),
			[]string{"Use letters, digits, hyphens and underscores, e.g. --participant p01"},
		)
	}

	seed := resolveSeed(cfg.Seed)
	sessionID := session.NewID()

	path, err := session.DataFilePath(cfg.OutputDir, exp.Name, participant, sessionID)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	data, err := datafile.Create(path, exp.Schema, []datafile.Meta{
		{Key: "experiment", Value: exp.Name},
		{Key: "session", Value: sessionID},
		{Key: "participant", Value: participant},
		{Key: "seed", Value: strconv.FormatUint(seed, 10)},
		{Key: "started", Value: startedAt.Format(time.RFC3339)},
		{Key: "develop_mode", Value: strconv.FormatBool(cfg.IsDevelop())},
	})
	if err != nil {
		return nil, err
	}
	defer data.Close()

	log.Printf("[INFO] Session %s: %s for %s (seed %d) -> %s", sessionID, exp.Name, participant, seed, path)

	result := &runResult{
		SessionID:   sessionID,
		Participant: participant,
		Seed:        seed,
		DataPath:    path,
	}

	s := &experiment.Session{
		ID:          sessionID,
		Participant: participant,
		Config:      cfg,
		Rand:        design.NewSource(seed),
		Presenter:   newPresenter(cfg),
		Clock:       sessionClock,
		Data:        data,
	}
	defer s.Presenter.Close()

	bb := connectMonitor(ctx, cfg, &blackboard.SessionInfo{
		ID:          sessionID,
		Experiment:  exp.Name,
		Participant: participant,
		Seed:        seed,
		DataFile:    path,
		Columns:     exp.Schema,
		Status:      blackboard.SessionRunning,
		StartedAtMs: startedAt.UnixMilli(),
	})
	if bb != nil {
		defer bb.Close()
		s.Monitor = bb
	}

	result.Err = exp.Run(ctx, s)
	result.Rows = s.Rows()

	if bb != nil {
		status := blackboard.SessionCompleted
		if result.Err != nil {
			status = blackboard.SessionAborted
		}
		// The run context may already be cancelled; the final status still goes out.
		statusCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := bb.SetStatus(statusCtx, status); err != nil {
			log.Printf("[WARN] Failed to publish session status: %v", err)
		}
	}

	if err := data.Close(); err != nil && result.Err == nil {
		result.Err = err
	}
	return result, nil
}

// applyRunOptions overlays command-line overrides on cfg.
func applyRunOptions(cfg *config.Config, opts runOptions) {
	if opts.Participant != "" {
		cfg.Participant = opts.Participant
	}
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}
	if opts.OutputDir != "" {
		cfg.OutputDir = opts.OutputDir
	}
	if opts.Develop != nil {
		cfg.DevelopMode = opts.Develop
	}
	if opts.RedisAddr != "" {
		cfg.Monitor.RedisAddr = opts.RedisAddr
	}
}

// connectMonitor announces the session on the configured Redis server. It returns nil
// when no monitor is configured or the server cannot be reached; the session runs
// either way.
func connectMonitor(ctx context.Context, cfg *config.Config, info *blackboard.SessionInfo) *blackboard.Client {
	addr := cfg.Monitor.RedisAddr
	if addr == "" {
		return nil
	}

	client, err := blackboard.NewClient(&redis.Options{Addr: addr, DB: cfg.Monitor.RedisDB}, info.ID)
	if err != nil {
		log.Printf("[WARN] Monitor disabled: %v", err)
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		log.Printf("[WARN] Monitor disabled, Redis at %s unreachable: %v", addr, err)
		client.Close()
		return nil
	}

	if err := client.PutSession(ctx, info); err != nil {
		log.Printf("[WARN] Monitor disabled: %v", err)
		client.Close()
		return nil
	}

	log.Printf("[INFO] Mirroring trials to Redis at %s (session %s)", addr, info.ID)
	return client
}

// resolveSeed returns seed, or a clock-derived seed when it is 0.
func resolveSeed(seed uint64) uint64 {
	if seed != 0 {
		return seed
	}
	derived := uint64(time.Now().UnixNano())
	if derived == 0 {
		derived = 1
	}
	return derived
}
