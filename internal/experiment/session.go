package experiment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dyluth/trialrun/internal/config"
	"github.com/dyluth/trialrun/internal/datafile"
	"github.com/dyluth/trialrun/internal/present"
	"github.com/dyluth/trialrun/pkg/blackboard"
	"github.com/dyluth/trialrun/pkg/design"
	"github.com/google/uuid"
)

// Sink persists one formatted data row. *datafile.File implements it.
type Sink interface {
	WriteRow(row []string) error
}

// Monitor receives a copy of every persisted row. *blackboard.Client implements it.
type Monitor interface {
	RecordTrial(ctx context.Context, e *blackboard.TrialEvent) error
}

// Session is the explicit state of one experiment run. Drivers read it and append to
// its sink; nothing else is shared.
type Session struct {
	ID          string
	Participant string
	Config      *config.Config
	Rand        design.Source
	Presenter   present.Presenter
	Clock       present.Clock
	Data        Sink
	Monitor     Monitor     // Optional
	Log         *log.Logger // Optional, defaults to the standard logger

	rows int
}

// Rows returns how many trial records this session has persisted.
func (s *Session) Rows() int {
	return s.rows
}

func (s *Session) validate() error {
	switch {
	case s.Config == nil:
		return fmt.Errorf("session has no config")
	case s.Rand == nil:
		return fmt.Errorf("session has no random source")
	case s.Presenter == nil:
		return fmt.Errorf("session has no presenter")
	case s.Clock == nil:
		return fmt.Errorf("session has no clock")
	case s.Data == nil:
		return fmt.Errorf("session has no data sink")
	}
	return nil
}

func (s *Session) logf(format string, args ...any) {
	if s.Log != nil {
		s.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (s *Session) show(ctx context.Context, stimuli ...present.Stimulus) error {
	if err := s.Presenter.Present(ctx, stimuli...); err != nil {
		return fmt.Errorf("failed to present stimulus: %w", err)
	}
	return nil
}

func (s *Session) wait(ctx context.Context, d time.Duration) error {
	return s.Clock.Wait(ctx, d)
}

// instruct shows text and waits indefinitely for any key.
func (s *Session) instruct(ctx context.Context, text string) error {
	if err := s.show(ctx, present.TextBox{Text: text}); err != nil {
		return err
	}
	_, err := s.Presenter.WaitInput(ctx, nil, 0)
	return err
}

// record persists one trial row, then mirrors it to the monitor. A monitor failure is
// logged and otherwise ignored.
func (s *Session) record(ctx context.Context, columns []string, block, trial int, fields ...any) error {
	row, err := datafile.FormatRow(fields...)
	if err != nil {
		return fmt.Errorf("failed to format trial record: %w", err)
	}

	if err := s.Data.WriteRow(row); err != nil {
		return fmt.Errorf("failed to persist trial record: %w", err)
	}
	s.rows++

	if s.Monitor != nil {
		event := &blackboard.TrialEvent{
			ID:           uuid.New().String(),
			SessionID:    s.ID,
			Seq:          s.rows,
			Block:        block,
			Trial:        trial,
			Columns:      columns,
			Values:       row,
			RecordedAtMs: time.Now().UnixMilli(),
		}
		if err := s.Monitor.RecordTrial(ctx, event); err != nil {
			s.logf("[WARN] Failed to mirror trial %d to monitor: %v", s.rows, err)
		}
	}

	return nil
}

// Experiment is a runnable paradigm with its data schema.
type Experiment struct {
	Name        string
	Description string
	Schema      []string
	Run         func(ctx context.Context, s *Session) error
}

// Experiments lists the paradigms trialrun can run, by name.
var Experiments = map[string]Experiment{
	IHTTName: {
		Name:        IHTTName,
		Description: "Interhemispheric transmission time (simple reaction time, crossed vs uncrossed)",
		Schema:      IHTTSchema,
		Run:         RunIHTT,
	},
	DMTSName: {
		Name:        DMTSName,
		Description: "Delayed match-to-sample with circle diameters",
		Schema:      DMTSSchema,
		Run:         RunDMTS,
	},
}

// Lookup returns the experiment registered under name.
func Lookup(name string) (Experiment, error) {
	exp, ok := Experiments[name]
	if !ok {
		return Experiment{}, fmt.Errorf("unknown experiment: %s (valid: %s, %s)", name, IHTTName, DMTSName)
	}
	return exp, nil
}
