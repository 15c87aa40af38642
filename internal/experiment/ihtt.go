package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/trialrun/internal/present"
	"github.com/dyluth/trialrun/pkg/design"
)

// IHTTName is the registry name of the interhemispheric transmission time paradigm.
const IHTTName = "ihtt"

// IHTTSchema is the column layout of IHTT data files.
var IHTTSchema = []string{"block", "block_type", "trial", "rt"}

const (
	ihttEccentricity = 0.4 // Fraction of the screen width between centre and stimulus
	fixationSize     = 30
)

// RunIHTT runs the IHTT paradigm: blocks of one stimulated visual field and one
// responding hand, with a simple reaction to a lateralised circle on every trial.
func RunIHTT(ctx context.Context, s *Session) error {
	if err := s.validate(); err != nil {
		return err
	}
	cfg := s.Config.IHTT
	key := present.Key(cfg.ResponseKey)

	types, err := design.OrderBlockTypes(s.Rand, cfg.BlocksPerType, cfg.ConstrainSides)
	if err != nil {
		return err
	}
	s.logf("[INFO] IHTT session %s: %d blocks of %d trials", s.ID, len(types), cfg.TrialsPerBlock)

	if err := s.instruct(ctx, ihttWelcomeText(cfg.ResponseKey)); err != nil {
		return err
	}

	for i, bt := range types {
		block := i + 1
		s.logf("[INFO] Block %d/%d (%s)", block, len(types), bt)

		circle := present.Circle{
			Diameter: 2 * cfg.CircleRadius,
			X:        present.HorizontalOffset(s.Config.Screen.Width, ihttEccentricity, int(bt.Field())),
		}

		if err := s.instruct(ctx, ihttBlockText(bt.Hand() == design.Left, cfg.ResponseKey)); err != nil {
			return fmt.Errorf("block %d: %w", block, err)
		}

		for trial := 1; trial <= cfg.TrialsPerBlock; trial++ {
			if err := s.ihttTrial(ctx, block, bt, trial, circle, key); err != nil {
				return fmt.Errorf("block %d trial %d: %w", block, trial, err)
			}
		}
	}

	s.logf("[INFO] IHTT session %s complete: %d trials recorded", s.ID, s.rows)
	return nil
}

func (s *Session) ihttTrial(ctx context.Context, block int, bt design.BlockType, trial int, circle present.Circle, key present.Key) error {
	cfg := s.Config.IHTT

	if err := s.show(ctx, present.FixCross{Size: fixationSize}); err != nil {
		return err
	}
	if err := s.wait(ctx, fixationDuration(s.Rand, cfg.FixationMin, cfg.FixationMax)); err != nil {
		return err
	}

	if err := s.show(ctx, circle); err != nil {
		return err
	}
	resp, err := s.Presenter.WaitInput(ctx, []present.Key{key}, cfg.ResponseTimeout)
	if err != nil {
		return err
	}

	if err := s.record(ctx, IHTTSchema, block, trial, block, string(bt), trial, resp.Millis()); err != nil {
		return err
	}

	if err := s.show(ctx, present.Blank{}); err != nil {
		return err
	}
	return s.wait(ctx, cfg.InterTrialInterval)
}

// fixationDuration draws uniformly from [min, max].
func fixationDuration(rng design.Source, min, max time.Duration) time.Duration {
	return min + time.Duration(rng.Float64()*float64(max-min))
}
