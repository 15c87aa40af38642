// Package printer writes user-facing CLI messages. Status lines go to the output
// stream, formatted errors to the error stream; both default to the process's
// stdout and stderr and can be redirected for tests.
package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
)

func init() {
	// Users can disable colors with NO_COLOR
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)

	mu   sync.Mutex
	out  io.Writer = os.Stdout
	errW io.Writer = os.Stderr
)

// SetOutput redirects status and error output. A nil writer restores the default.
// It returns a function that restores the previous writers.
func SetOutput(stdout, stderr io.Writer) (restore func()) {
	mu.Lock()
	defer mu.Unlock()

	prevOut, prevErr := out, errW
	out, errW = os.Stdout, os.Stderr
	if stdout != nil {
		out = stdout
	}
	if stderr != nil {
		errW = stderr
	}
	return func() {
		mu.Lock()
		defer mu.Unlock()
		out, errW = prevOut, prevErr
	}
}

func writers() (io.Writer, io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	return out, errW
}

// Success prints a green message with a checkmark prefix.
func Success(format string, a ...any) {
	w, _ := writers()
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(w, msg)
}

// Info prints a message in the default color.
func Info(format string, a ...any) {
	w, _ := writers()
	fmt.Fprintf(w, format, a...)
}

// Warning prints a yellow message with a warning prefix.
func Warning(format string, a ...any) {
	w, _ := writers()
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(w, msg)
}

// Step prints an emphasised step of a multi-step operation.
func Step(format string, a ...any) {
	w, _ := writers()
	cyan.Fprintf(w, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a titled error with an explanation and suggestions to the error
// stream and returns a plain error carrying the title, for Cobra to propagate.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details, printed in the given key order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string, order ...string) error {
	_, w := writers()

	red.Fprintf(w, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(w, "%s\n", explanation)
	}

	if len(context) > 0 {
		fmt.Fprintln(w)
		for _, key := range contextKeys(context, order) {
			fmt.Fprintf(w, "  %s: %s\n", key, context[key])
		}
	}

	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(w, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(w, "\nEither:\n")
		for i, suggestion := range suggestions {
			fmt.Fprintf(w, "  %d. %s\n", i+1, suggestion)
		}
	}

	return fmt.Errorf("%s", title)
}

// contextKeys lists the keys named in order first, then the rest alphabetically.
func contextKeys(context map[string]string, order []string) []string {
	keys := make([]string, 0, len(context))
	seen := make(map[string]bool, len(context))
	for _, k := range order {
		if _, ok := context[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range context {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Println prints a plain line.
func Println(a ...any) {
	w, _ := writers()
	fmt.Fprintln(w, a...)
}

// Printf prints plain formatted output.
func Printf(format string, a ...any) {
	w, _ := writers()
	fmt.Fprintf(w, format, a...)
}
