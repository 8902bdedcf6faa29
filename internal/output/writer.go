// Package output routes a parsed reply to its two channels: the command
// to one writer, the explanation stream to another.
package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/micahbf/halp/internal/response"
)

// Dual writes the command to one writer and explanation fragments to
// another. Suppressing a channel means handing it io.Discard; the parse
// still runs either way. Write errors are ignored.
type Dual struct {
	cmdW  io.Writer
	explW io.Writer
}

var _ response.Sink = (*Dual)(nil)

func NewDual(cmdW, explW io.Writer) *Dual {
	return &Dual{cmdW: cmdW, explW: explW}
}

// Command writes the resolved command followed by a newline. The parser
// guarantees at most one call per request.
func (d *Dual) Command(cmd string) {
	fmt.Fprintln(d.cmdW, cmd)
}

// Explanation forwards one fragment unbuffered, in arrival order.
func (d *Dual) Explanation(fragment string) {
	io.WriteString(d.explW, fragment)
}

// Streamer renders explanation fragments dimmed as they arrive, so live
// commentary reads as secondary to the command. The first write fires
// onFirst, which the CLI uses to stop the progress spinner before any
// text lands.
type Streamer struct {
	w       io.Writer
	style   *color.Color
	onFirst func()
	wrote   bool
}

func NewStreamer(w io.Writer, dim bool, onFirst func()) *Streamer {
	style := color.New(color.Faint)
	if dim {
		style.EnableColor()
	} else {
		style.DisableColor()
	}
	return &Streamer{w: w, style: style, onFirst: onFirst}
}

func (s *Streamer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !s.wrote {
		s.wrote = true
		if s.onFirst != nil {
			s.onFirst()
		}
	}
	s.style.Fprint(s.w, string(p))
	return len(p), nil
}

// Finish terminates the stream with a newline, but only if anything was
// written, so silent replies leave the terminal untouched.
func (s *Streamer) Finish() {
	if s.wrote {
		fmt.Fprintln(s.w)
	}
}
