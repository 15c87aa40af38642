// Package watch follows a running session through its blackboard mirror.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/dyluth/trialrun/pkg/blackboard"
)

// OutputFormat selects how events are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// statusPollInterval is how often StreamTrials checks whether the session ended.
const statusPollInterval = 500 * time.Millisecond

// WaitForSession polls until the session has been announced on the blackboard.
// Polls every 200ms for the specified timeout duration.
func WaitForSession(ctx context.Context, client *blackboard.Client, timeout time.Duration) (*blackboard.SessionInfo, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		info, err := client.GetSession(ctx)
		if err == nil {
			return info, nil
		}
		if !blackboard.IsNotFound(err) {
			return nil, fmt.Errorf("failed to query session: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for session %s after %v", client.SessionID(), timeout)
		case <-ticker.C:
		}
	}
}

// StreamTrials writes the session header, every trial recorded so far, then live
// trial events until the session leaves the running state or ctx is cancelled.
func StreamTrials(ctx context.Context, client *blackboard.Client, format OutputFormat, w io.Writer) error {
	f, err := newFormatter(format, w)
	if err != nil {
		return err
	}

	info, err := client.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if err := f.FormatSession(info); err != nil {
		return err
	}

	// Subscribe before catching up so nothing recorded in between is lost;
	// events already printed from the list are skipped by sequence number.
	sub, err := client.SubscribeTrialEvents(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	existing, err := client.ListTrials(ctx)
	if err != nil {
		return fmt.Errorf("failed to list recorded trials: %w", err)
	}
	lastSeq := 0
	for _, e := range existing {
		if err := f.FormatTrial(e); err != nil {
			return err
		}
		lastSeq = e.Seq
	}

	if info.Status != blackboard.SessionRunning {
		return f.FormatStatus(info)
	}

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if e.Seq <= lastSeq {
				continue
			}
			if err := f.FormatTrial(e); err != nil {
				return err
			}
			lastSeq = e.Seq

		case err, ok := <-sub.Errors():
			if ok {
				log.Printf("[WARN] Skipping malformed trial event: %v", err)
			}

		case <-ticker.C:
			current, err := client.GetSession(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("failed to refresh session status: %w", err)
			}
			if current.Status != blackboard.SessionRunning {
				return f.FormatStatus(current)
			}
		}
	}
}

type formatter interface {
	FormatSession(info *blackboard.SessionInfo) error
	FormatTrial(e *blackboard.TrialEvent) error
	FormatStatus(info *blackboard.SessionInfo) error
}

func newFormatter(format OutputFormat, w io.Writer) (formatter, error) {
	switch format {
	case OutputFormatDefault, "":
		return &defaultFormatter{writer: w}, nil
	case OutputFormatJSON:
		return &jsonFormatter{writer: w}, nil
	}
	return nil, fmt.Errorf("unknown output format: %s", format)
}

type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) FormatSession(info *blackboard.SessionInfo) error {
	started := time.UnixMilli(info.StartedAtMs).Format("15:04:05")
	_, err := fmt.Fprintf(f.writer, "🧪 Session %s: experiment=%s participant=%s seed=%d started=%s\n   data=%s\n",
		info.ID, info.Experiment, info.Participant, info.Seed, started, info.DataFile)
	return err
}

func (f *defaultFormatter) FormatTrial(e *blackboard.TrialEvent) error {
	pairs := make([]string, len(e.Columns))
	for i, col := range e.Columns {
		v := e.Values[i]
		if v == "" {
			v = "-"
		}
		pairs[i] = col + "=" + v
	}
	ts := time.UnixMilli(e.RecordedAtMs).Format("15:04:05")
	_, err := fmt.Fprintf(f.writer, "[%s] #%d block %d trial %d: %s\n", ts, e.Seq, e.Block, e.Trial, strings.Join(pairs, " "))
	return err
}

func (f *defaultFormatter) FormatStatus(info *blackboard.SessionInfo) error {
	icon := "🎉"
	if info.Status == blackboard.SessionAborted {
		icon = "🛑"
	}
	_, err := fmt.Fprintf(f.writer, "%s Session %s\n", icon, info.Status)
	return err
}

type jsonFormatter struct {
	writer io.Writer
}

func (f *jsonFormatter) write(event string, payload any) error {
	data, err := json.Marshal(map[string]any{"event": event, "data": payload})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(f.writer, "%s\n", data)
	return err
}

func (f *jsonFormatter) FormatSession(info *blackboard.SessionInfo) error {
	return f.write("session", info)
}

func (f *jsonFormatter) FormatTrial(e *blackboard.TrialEvent) error {
	return f.write("trial", e)
}

func (f *jsonFormatter) FormatStatus(info *blackboard.SessionInfo) error {
	return f.write("status", map[string]string{"id": info.ID, "status": string(info.Status)})
}
