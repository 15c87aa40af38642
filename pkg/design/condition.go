package design

import "fmt"

// Side is the horizontal position of a stimulus: -1 for left, +1 for right.
type Side int

const (
	Left  Side = -1
	Right Side = 1
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	return -s
}

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// Validate checks that s is Left or Right.
func (s Side) Validate() error {
	if s != Left && s != Right {
		return fmt.Errorf("invalid side: %d (must be -1 or 1)", int(s))
	}
	return nil
}

// Condition is one cell of the DMTS design: a retention delay (in delay units) and the
// side on which the correct comparison is shown.
type Condition struct {
	Delay int
	Side  Side
}

func (c Condition) String() string {
	return fmt.Sprintf("(%d,%d)", c.Delay, int(c.Side))
}

// DMTSDelays are the retention delays of the Money, Kirk & McNaughton (1992) design.
var DMTSDelays = []int{0, 2, 4, 6, 8, 16, 32}

// DMTSConditions returns the 14 delay × side cells that make up one DMTS block, in
// design order: every delay once on the left, then once on the right.
func DMTSConditions() []Condition {
	conds := make([]Condition, 0, len(DMTSDelays)*2)
	for _, d := range DMTSDelays {
		conds = append(conds, Condition{Delay: d, Side: Left}, Condition{Delay: d, Side: Right})
	}
	return conds
}

// ConditionSides projects the side column out of a condition list.
func ConditionSides(conds []Condition) []Side {
	sides := make([]Side, len(conds))
	for i, c := range conds {
		sides[i] = c.Side
	}
	return sides
}
