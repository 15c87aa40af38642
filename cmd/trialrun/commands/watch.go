package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dyluth/trialrun/internal/config"
	"github.com/dyluth/trialrun/internal/printer"
	"github.com/dyluth/trialrun/internal/resolver"
	"github.com/dyluth/trialrun/internal/watch"
	"github.com/dyluth/trialrun/pkg/blackboard"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	watchSessionID    string
	watchRedisAddr    string
	watchOutputFormat string
	watchWait         time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running session's trials",
	Long: `Stream the trials of a session mirrored to Redis as they are recorded.

Prints every trial recorded so far, then follows new ones until the session
completes or is aborted. Start the session with 'trialrun run ... --redis ADDR'
and use the session ID it prints.

Output Formats:
  default - Human-readable lines
  json    - Line-delimited JSON for programmatic processing

Examples:
  trialrun watch --session 1a2b3c4d-... --redis localhost:6379
  trialrun watch --session 1a2b3c4d-... --output=json > trials.jsonl`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchSessionID, "session", "s", "", "Session ID to follow (required)")
	watchCmd.Flags().StringVar(&watchRedisAddr, "redis", "", "Redis address (default: monitor.redis_addr from trialrun.yml, then localhost:6379)")
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	watchCmd.Flags().DurationVar(&watchWait, "wait", 30*time.Second, "How long to wait for the session to appear")
	watchCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var outputFormat watch.OutputFormat
	switch watchOutputFormat {
	case "default":
		outputFormat = watch.OutputFormatDefault
	case "json":
		outputFormat = watch.OutputFormatJSON
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, json"},
		)
	}

	addr, db, err := redisTarget(watchRedisAddr)
	if err != nil {
		return err
	}
	redisOpts := &redis.Options{Addr: addr, DB: db}

	sessionID, err := resolveWatchSession(ctx, redisOpts)
	if err != nil {
		return err
	}

	bbClient, err := blackboard.NewClient(redisOpts, sessionID)
	if err != nil {
		return fmt.Errorf("failed to create blackboard client: %w", err)
	}
	defer bbClient.Close()

	if err := bbClient.Ping(ctx); err != nil {
		return redisUnreachable(addr, err)
	}

	if _, err := watch.WaitForSession(ctx, bbClient, watchWait); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return printer.Error(
			"session not found",
			fmt.Sprintf("No session %s was announced on %s within %v.", sessionID, addr, watchWait),
			[]string{"Check the session was started with --redis pointing at the same server"},
		)
	}

	return watch.StreamTrials(ctx, bbClient, outputFormat, cmd.OutOrStdout())
}

// redisTarget picks the Redis server from the flag, then the config file.
func redisTarget(flagAddr string) (string, int, error) {
	cfg, _, err := config.LoadOrDefault(config.DefaultPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to load %s: %w", config.DefaultPath, err)
	}

	addr := cfg.Monitor.RedisAddr
	if flagAddr != "" {
		addr = flagAddr
	}
	if addr == "" {
		addr = defaultRedisAddr
	}
	return addr, cfg.Monitor.RedisDB, nil
}

// resolveWatchSession expands --session into a full session ID. A full ID is used
// as-is so that watch can start before the session does; a prefix must match exactly
// one announced session.
func resolveWatchSession(ctx context.Context, opts *redis.Options) (string, error) {
	if _, err := uuid.Parse(watchSessionID); err == nil {
		return strings.ToLower(watchSessionID), nil
	}
	if len(watchSessionID) < resolver.MinShortIDLength {
		return "", printer.Error(
			"invalid session ID",
			fmt.Sprintf("%q is neither a session ID nor a prefix of at least %d characters.", watchSessionID, resolver.MinShortIDLength),
			[]string{"Use the session ID printed by 'trialrun run' or the 8 characters in the data file name"},
		)
	}

	rdb := redis.NewClient(opts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return "", redisUnreachable(opts.Addr, err)
	}

	id, err := resolver.ResolveSessionID(ctx, rdb, watchSessionID)
	switch {
	case err == nil:
		return id, nil
	case resolver.IsNotFoundError(err):
		return "", printer.Error(
			"session not found",
			err.Error(),
			[]string{"Check the session was started with --redis pointing at the same server"},
		)
	case resolver.IsAmbiguousError(err):
		ambiguous := err.(*resolver.AmbiguousError)
		return "", printer.Error(
			"ambiguous session ID",
			fmt.Sprintf("'%s' matches %d sessions:\n%s", watchSessionID, len(ambiguous.Matches), ambiguous.Listing()),
			[]string{"Use a longer prefix to uniquely identify the session"},
		)
	}
	return "", err
}

func redisUnreachable(addr string, err error) error {
	return printer.ErrorWithContext(
		"Redis connection failed",
		fmt.Sprintf("Could not connect to Redis at %s", addr),
		map[string]string{"error": err.Error()},
		[]string{"Check the address with --redis", "Start Redis:\n  docker run -p 6379:6379 redis:7"},
	)
}
