package present

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
)

// KeyReturn is reported when the participant presses Enter without typing a key.
const KeyReturn Key = "return"

// ErrInputClosed is returned when the input stream ends while waiting for a response.
var ErrInputClosed = errors.New("input closed")

// rowWidth is the number of terminal columns the screen is mapped onto.
const rowWidth = 61

var (
	stimulusStyle = color.New(color.FgWhite, color.Bold)
	textStyle     = color.New(color.FgCyan)
	frameStyle    = color.New(color.FgHiBlack)
)

// TerminalOptions configures a Terminal presenter.
type TerminalOptions struct {
	ScreenWidth int  // Logical screen width stimulus positions refer to
	QuitKey     Key  // Aborts the run from any wait
	Develop     bool // Keep previous frames visible instead of clearing the terminal
}

// Terminal renders stimuli as text and reads one key per input line.
// A single goroutine reads the input so that waits can time out; all drawing happens
// on the caller's goroutine.
type Terminal struct {
	out   io.Writer
	opts  TerminalOptions
	lines <-chan string
}

// NewTerminal starts reading in and returns a presenter drawing to out.
func NewTerminal(in io.Reader, out io.Writer, opts TerminalOptions) *Terminal {
	if opts.ScreenWidth <= 0 {
		opts.ScreenWidth = 1024
	}

	lines := make(chan string, 16)
	go readLines(in, lines)

	return &Terminal{out: out, opts: opts, lines: lines}
}

func readLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

// Present draws stimuli. Circles sharing a frame are drawn on one row.
func (t *Terminal) Present(ctx context.Context, stimuli ...Stimulus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.opts.Develop {
		frameStyle.Fprintln(t.out, strings.Repeat("─", rowWidth))
	} else {
		fmt.Fprint(t.out, "\033[H\033[2J")
	}

	var circles []Circle
	for _, s := range stimuli {
		switch s := s.(type) {
		case FixCross:
			stimulusStyle.Fprintln(t.out, t.row(map[int]string{rowWidth / 2: "+"}))
		case Circle:
			circles = append(circles, s)
		case TextBox:
			for _, line := range strings.Split(s.Text, "\n") {
				textStyle.Fprintln(t.out, "  "+strings.TrimSpace(line))
			}
		case Blank:
			fmt.Fprintln(t.out)
		default:
			return fmt.Errorf("unsupported stimulus: %s", s.Describe())
		}
	}

	if len(circles) > 0 {
		marks := map[int]string{}
		labels := make([]string, 0, len(circles))
		for _, c := range circles {
			marks[t.column(c.X)] = "●"
			labels = append(labels, fmt.Sprintf("⌀%dpx", c.Diameter))
		}
		stimulusStyle.Fprintln(t.out, t.row(marks))
		if t.opts.Develop {
			frameStyle.Fprintln(t.out, strings.Join(labels, "  "))
		}
	}

	return nil
}

// column maps a pixel offset from the screen centre onto a terminal column.
func (t *Terminal) column(x int) int {
	half := t.opts.ScreenWidth / 2
	col := rowWidth/2 + x*(rowWidth/2)/half
	if col < 0 {
		return 0
	}
	if col >= rowWidth {
		return rowWidth - 1
	}
	return col
}

func (t *Terminal) row(marks map[int]string) string {
	var b strings.Builder
	for i := 0; i < rowWidth; i++ {
		if m, ok := marks[i]; ok {
			b.WriteString(m)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// WaitInput discards keys typed before the call, then waits for an accepted key.
func (t *Terminal) WaitInput(ctx context.Context, accept []Key, timeout time.Duration) (Response, error) {
	t.drain()
	start := time.Now()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-expired:
			return Response{RT: time.Since(start), TimedOut: true}, nil
		case line, ok := <-t.lines:
			if !ok {
				return Response{}, ErrInputClosed
			}
			key := ParseKey(line)
			if t.opts.QuitKey != "" && key == t.opts.QuitKey {
				return Response{Key: key, RT: time.Since(start)}, ErrQuit
			}
			if Accepts(accept, key) {
				return Response{Key: key, RT: time.Since(start)}, nil
			}
		}
	}
}

func (t *Terminal) drain() {
	for {
		select {
		case _, ok := <-t.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Close is a no-op; the reader goroutine ends with its input.
func (t *Terminal) Close() error {
	return nil
}

// ParseKey reduces an input line to the key it represents: its first character,
// lowercased, or KeyReturn for an empty line.
func ParseKey(line string) Key {
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return KeyReturn
	}
	r, _ := utf8.DecodeRuneInString(line)
	return Key(string(r))
}

// Accepts reports whether key is in accept. An empty accept list accepts every key.
func Accepts(accept []Key, key Key) bool {
	if len(accept) == 0 {
		return true
	}
	for _, k := range accept {
		if k == key {
			return true
		}
	}
	return false
}
