package design

import (
	"fmt"
	"strconv"
)

// Trial is one DMTS trial: its condition and the comparison stimuli.
type Trial struct {
	Condition
	Pair StimulusPair
}

// Block is an ordered list of trials sharing one generated order.
type Block struct {
	Index  int
	Trials []Trial
}

// Name is the block label recorded with the data, the 1-based index.
func (b Block) Name() string {
	return strconv.Itoa(b.Index)
}

// Conditions returns the block's conditions in presentation order.
func (b Block) Conditions() []Condition {
	conds := make([]Condition, len(b.Trials))
	for i, t := range b.Trials {
		conds[i] = t.Condition
	}
	return conds
}

// BuildDMTSBlock orders the 14 DMTS conditions and draws a stimulus pair per trial.
func BuildDMTSBlock(rng Source, index int) (Block, error) {
	order, err := Sequence(rng, DMTSConditions())
	if err != nil {
		return Block{}, fmt.Errorf("block %d: %w", index, err)
	}

	block := Block{Index: index, Trials: make([]Trial, len(order))}
	for i, cond := range order {
		block.Trials[i] = Trial{Condition: cond, Pair: SamplePair(rng)}
	}
	return block, nil
}

// BlockType is an IHTT block condition: the visual field of the stimulus and whether the
// responding hand is contralateral (crossed) or ipsilateral (uncrossed) to it.
type BlockType string

const (
	LeftContralateral  BlockType = "LC"
	LeftIpsilateral    BlockType = "LI"
	RightContralateral BlockType = "RC"
	RightIpsilateral   BlockType = "RI"
)

// IHTTBlockTypes lists the four IHTT block conditions.
var IHTTBlockTypes = []BlockType{LeftContralateral, LeftIpsilateral, RightContralateral, RightIpsilateral}

// Validate checks that t is one of the four IHTT labels.
func (t BlockType) Validate() error {
	switch t {
	case LeftContralateral, LeftIpsilateral, RightContralateral, RightIpsilateral:
		return nil
	}
	return fmt.Errorf("invalid block type: %q (must be LC, LI, RC or RI)", string(t))
}

// Field is the side of the visual field the stimulus appears in.
func (t BlockType) Field() Side {
	if t == LeftContralateral || t == LeftIpsilateral {
		return Left
	}
	return Right
}

// Crossed reports whether the responding hand is opposite the stimulated field.
func (t BlockType) Crossed() bool {
	return t == LeftContralateral || t == RightContralateral
}

// Hand is the hand the participant responds with.
func (t BlockType) Hand() Side {
	if t.Crossed() {
		return t.Field().Opposite()
	}
	return t.Field()
}

// OrderBlockTypes returns copies of every IHTT block type in shuffled order. With
// constrainFields set, no visual field is used by more than MaxSideRun consecutive blocks.
func OrderBlockTypes(rng Source, copies int, constrainFields bool) ([]BlockType, error) {
	if copies < 1 {
		return nil, fmt.Errorf("copies must be >= 1, got %d", copies)
	}

	types := make([]BlockType, 0, len(IHTTBlockTypes)*copies)
	for _, t := range IHTTBlockTypes {
		for i := 0; i < copies; i++ {
			types = append(types, t)
		}
	}

	shuffle := func() []BlockType {
		rng.Shuffle(len(types), func(i, j int) {
			types[i], types[j] = types[j], types[i]
		})
		return types
	}

	if !constrainFields {
		return shuffle(), nil
	}

	accepted, _, err := GenerateAndTest(DefaultMaxAttempts, shuffle, func(candidate []BlockType) bool {
		fields := make([]Side, len(candidate))
		for i, t := range candidate {
			fields[i] = t.Field()
		}
		return !HasSideRun(fields, MaxSideRun+1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to order IHTT blocks: %w", err)
	}
	return accepted, nil
}
