// Package ui renders status messages, the progress spinner, and the
// interactive configure prompts. Everything here writes to stderr: stdout
// is reserved for the generated command so it can be piped or substituted.
package ui

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintf(color.Error, "✓ %s\n", message)
}

// ShowError displays an error message
func ShowError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(color.Error, "✗ %s\n", message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	blue := color.New(color.FgBlue)
	blue.Fprintln(color.Error, message)
}

// Spinner shows indeterminate progress on stderr while a request is in
// flight. On a non-terminal stderr it does nothing, so piped and scripted
// runs stay clean.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner returns a stopped spinner with the given status message.
func NewSpinner(message string) *Spinner {
	if !IsTerminal(os.Stderr) {
		return &Spinner{}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	return &Spinner{s: s}
}

// Start begins the animation.
func (sp *Spinner) Start() {
	if sp.s != nil {
		sp.s.Start()
	}
}

// Stop halts the animation and clears the line. Safe to call more than
// once, and before Start.
func (sp *Spinner) Stop() {
	if sp.s != nil {
		sp.s.Stop()
	}
}
