package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/trialrun/internal/listing"
	"github.com/dyluth/trialrun/internal/printer"
	"github.com/dyluth/trialrun/pkg/blackboard"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	sessionsRedisAddr    string
	sessionsOutputFormat string
	sessionsExperiment   string
	sessionsParticipant  string
	sessionsStatus       string
	sessionsSince        time.Duration
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions mirrored to Redis",
	Long: `List the sessions announced on a Redis server by 'trialrun run --redis'.

Output Formats:
  default - Table with the short session ID used in data file names
  jsonl   - One JSON object per session

Examples:
  trialrun sessions --redis localhost:6379
  trialrun sessions --status running
  trialrun sessions --experiment dmts --since 24h --output=jsonl`,
	Args: cobra.NoArgs,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsRedisAddr, "redis", "", "Redis address (default: monitor.redis_addr from trialrun.yml, then localhost:6379)")
	sessionsCmd.Flags().StringVarP(&sessionsOutputFormat, "output", "o", "default", "Output format (default or jsonl)")
	sessionsCmd.Flags().StringVar(&sessionsExperiment, "experiment", "", "Only sessions of this experiment")
	sessionsCmd.Flags().StringVar(&sessionsParticipant, "participant", "", "Only sessions of this participant")
	sessionsCmd.Flags().StringVar(&sessionsStatus, "status", "", "Only sessions in this status (running, completed, aborted)")
	sessionsCmd.Flags().DurationVar(&sessionsSince, "since", 0, "Only sessions started within this duration (e.g. 24h)")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var format listing.OutputFormat
	switch sessionsOutputFormat {
	case "default":
		format = listing.OutputFormatDefault
	case "jsonl":
		format = listing.OutputFormatJSONL
	default:
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", sessionsOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	filters := &listing.FilterCriteria{
		Experiment:  sessionsExperiment,
		Participant: sessionsParticipant,
	}
	if sessionsStatus != "" {
		status := blackboard.SessionStatus(sessionsStatus)
		if err := status.Validate(); err != nil {
			return printer.Error(
				"invalid status filter",
				err.Error(),
				[]string{"Valid statuses: running, completed, aborted"},
			)
		}
		filters.Status = status
	}
	if sessionsSince > 0 {
		filters.SinceTimestampMs = time.Now().Add(-sessionsSince).UnixMilli()
	}

	addr, db, err := redisTarget(sessionsRedisAddr)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return redisUnreachable(addr, err)
	}

	return listing.ListSessions(ctx, rdb, format, filters, cmd.OutOrStdout())
}
