package present

import "fmt"

// Stimulus is something a Presenter can draw.
type Stimulus interface {
	Describe() string
}

// FixCross is the central fixation mark.
type FixCross struct {
	Size int
}

func (s FixCross) Describe() string {
	return fmt.Sprintf("fixation cross %dpx", s.Size)
}

// Circle is a filled circle centred X pixels right of the screen centre (negative is left).
type Circle struct {
	Diameter int
	X        int
}

func (s Circle) Describe() string {
	return fmt.Sprintf("circle %dpx at x=%d", s.Diameter, s.X)
}

// TextBox is a block of instructions.
type TextBox struct {
	Text string
}

func (s TextBox) Describe() string {
	return "text"
}

// Blank clears the screen.
type Blank struct{}

func (Blank) Describe() string {
	return "blank"
}

// HorizontalOffset places a stimulus at fraction of the screen width from the centre,
// on the side given by sign (-1 left, +1 right).
func HorizontalOffset(screenWidth int, fraction float64, sign int) int {
	return int(float64(screenWidth)*fraction) * sign
}
