package design

const (
	// BaseSize is the diameter in pixels of a stimulus with value 0.
	BaseSize = 280
	// SizeStep is the diameter increment in pixels per unit of value.
	SizeStep = 14

	MinCorrect = 1
	MaxCorrect = 12
	// MaxValue is the largest value an incorrect comparison may take.
	MaxValue = 13
	// NominalStep is the distance in units between correct and incorrect before jitter.
	NominalStep = 5
)

// StimulusPair holds the values of the two comparison stimuli of a DMTS trial.
// Correct also sizes the sample.
type StimulusPair struct {
	Correct   int
	Incorrect int
}

// CorrectSize returns the diameter of the correct comparison in pixels.
func (p StimulusPair) CorrectSize() int {
	return DiameterPx(p.Correct)
}

// IncorrectSize returns the diameter of the incorrect comparison in pixels.
func (p StimulusPair) IncorrectSize() int {
	return DiameterPx(p.Incorrect)
}

// DiameterPx maps a stimulus value onto its calibrated pixel diameter.
func DiameterPx(value int) int {
	return BaseSize + SizeStep*value
}

// SamplePair draws one comparison pair. The incorrect value is NominalStep units above
// or below the correct one (even odds) shifted by a jitter in {-1, 0}; a result that
// leaves the scale is redrawn on the other side with a fresh jitter.
func SamplePair(rng Source) StimulusPair {
	correct := MinCorrect + rng.IntN(MaxCorrect-MinCorrect+1)
	add := rng.Float64() > 0.5

	incorrect := offset(correct, add, jitter(rng))
	if outOfScale(incorrect, add) {
		incorrect = offset(correct, !add, jitter(rng))
	}

	return StimulusPair{Correct: correct, Incorrect: incorrect}
}

// ResolveIncorrect is the deterministic core of SamplePair: given the correct value,
// the branch and both jitter draws, it returns the incorrect value.
// fallbackJitter is only used when the first result leaves the scale.
func ResolveIncorrect(correct int, add bool, firstJitter, fallbackJitter int) int {
	incorrect := offset(correct, add, firstJitter)
	if outOfScale(incorrect, add) {
		incorrect = offset(correct, !add, fallbackJitter)
	}
	return incorrect
}

func offset(correct int, add bool, j int) int {
	if add {
		return correct + NominalStep + j
	}
	return correct - NominalStep + j
}

func outOfScale(v int, add bool) bool {
	if add {
		return v > MaxValue
	}
	return v < 0
}

// jitter is uniform over {-1, 0}.
func jitter(rng Source) int {
	return rng.IntN(2) - 1
}
