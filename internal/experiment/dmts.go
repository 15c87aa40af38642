package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/trialrun/internal/present"
	"github.com/dyluth/trialrun/pkg/design"
)

// DMTSName is the registry name of the delayed match-to-sample paradigm.
const DMTSName = "dmts"

// DMTSSchema is the column layout of DMTS data files. The condition and response come
// first; stimulus sizes are in pixels.
var DMTSSchema = []string{
	"delay", "correct_position", "response", "latency",
	"correct_stimulus", "incorrect_stimulus", "block", "trial",
}

const dmtsEccentricity = 0.33

// RunDMTS runs the diameter delayed match-to-sample paradigm.
func RunDMTS(ctx context.Context, s *Session) error {
	if err := s.validate(); err != nil {
		return err
	}
	cfg := s.Config.DMTS

	// Every block is generated before the first trial so the whole design is fixed
	// up front.
	blocks := make([]design.Block, cfg.Blocks)
	for i := range blocks {
		block, err := design.BuildDMTSBlock(s.Rand, i+1)
		if err != nil {
			return err
		}
		blocks[i] = block
	}
	s.logf("[INFO] DMTS session %s: %d blocks of %d trials", s.ID, len(blocks), len(design.DMTSConditions()))

	if err := s.instruct(ctx, dmtsWelcomeText(cfg.LeftKey, cfg.RightKey)); err != nil {
		return err
	}

	for i, block := range blocks {
		s.logf("[INFO] Block %s/%d", block.Name(), len(blocks))

		for j, trial := range block.Trials {
			if err := s.dmtsTrial(ctx, block.Index, j+1, trial); err != nil {
				return fmt.Errorf("block %d trial %d: %w", block.Index, j+1, err)
			}
		}

		if i < len(blocks)-1 {
			if err := s.instruct(ctx, dmtsRest); err != nil {
				return err
			}
		}
	}

	if err := s.instruct(ctx, dmtsGoodbye); err != nil {
		return err
	}

	s.logf("[INFO] DMTS session %s complete: %d trials recorded", s.ID, s.rows)
	return nil
}

func (s *Session) dmtsTrial(ctx context.Context, block, index int, trial design.Trial) error {
	cfg := s.Config.DMTS

	// Sample
	if err := s.show(ctx, present.Circle{Diameter: trial.Pair.CorrectSize()}); err != nil {
		return err
	}
	if err := s.wait(ctx, cfg.Sample); err != nil {
		return err
	}

	// Retention delay
	if err := s.show(ctx, present.Blank{}); err != nil {
		return err
	}
	if err := s.wait(ctx, cfg.Unit*time.Duration(trial.Delay)); err != nil {
		return err
	}

	// Comparisons: the incorrect one mirrors the correct one across the centre.
	x := present.HorizontalOffset(s.Config.Screen.Width, dmtsEccentricity, int(trial.Side))
	err := s.show(ctx,
		present.Circle{Diameter: trial.Pair.CorrectSize(), X: x},
		present.Circle{Diameter: trial.Pair.IncorrectSize(), X: -x},
	)
	if err != nil {
		return err
	}

	left, right := present.Key(cfg.LeftKey), present.Key(cfg.RightKey)
	resp, err := s.Presenter.WaitInput(ctx, []present.Key{left, right}, cfg.ResponseTimeout)
	if err != nil {
		return err
	}

	var response any
	if !resp.TimedOut {
		chosen := design.Right
		if resp.Key == left {
			chosen = design.Left
		}
		response = chosen == trial.Side
	}

	err = s.record(ctx, DMTSSchema, block, index,
		trial.Delay, int(trial.Side), response, resp.Millis(),
		trial.Pair.CorrectSize(), trial.Pair.IncorrectSize(), block, index,
	)
	if err != nil {
		return err
	}

	if err := s.show(ctx, present.Blank{}); err != nil {
		return err
	}
	return s.wait(ctx, cfg.Post)
}
