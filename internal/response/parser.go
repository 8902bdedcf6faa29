// Package response incrementally extracts a shell command and an optional
// explanation from a streamed model reply.
//
// The expected reply format is a `COMMAND:` line followed by an
// `EXPLANATION:` line, but models drift: the parser also accepts a fenced
// code block, and falls back to treating the whole reply as the command.
// Classification happens as text arrives, so the explanation can be shown
// while the model is still talking.
package response

import (
	"bytes"
	"strings"

	"github.com/micahbf/halp/internal/llm"
)

// Sink receives parser output as it resolves.
type Sink interface {
	// Command is called at most once, with the fully resolved command.
	Command(cmd string)
	// Explanation is called once per streamed fragment, in order.
	Explanation(fragment string)
}

// Result is the outcome of one fully parsed reply.
type Result struct {
	Command     string
	Explanation string
}

var (
	commandMarker = []byte("COMMAND:")
	explMarker    = []byte("EXPLANATION:")
	fenceMarker   = []byte("```")
)

// seekLimit is how much markerless text we accept before committing to
// the whole-reply-is-the-command fallback. Measured in bytes of
// accumulated text, so chunk boundaries cannot move the cutoff.
const seekLimit = 1024

type mode int

const (
	modeSeeking mode = iota
	modeFenceOpen
	modeCommand
	modeAwaitExpl
	modeFenced
	modeExplanation
	modeRaw
	modeDiscard
	modeDone
)

// Parser is a single-use incremental classifier. Feed it text deltas in
// arrival order, then call Finish exactly once.
type Parser struct {
	sink Sink
	mode mode

	// line assembles the current line so markers can be recognized even
	// when they arrive split across deltas.
	line []byte

	raw   strings.Builder // everything seen while no marker had matched
	fence strings.Builder // fenced block content

	cmd    string
	cmdSet bool

	expl        strings.Builder
	explStarted bool
	pendWS      []byte
}

func NewParser(sink Sink) *Parser {
	return &Parser{sink: sink}
}

// CommandResolved reports whether the command has been emitted.
func (p *Parser) CommandResolved() bool { return p.cmdSet }

// Feed processes one text delta. Safe to call with any split of the
// underlying text; the classification depends only on the concatenation.
func (p *Parser) Feed(text string) {
	for i := 0; i < len(text); i++ {
		switch p.mode {
		case modeRaw:
			p.raw.WriteString(text[i:])
			return
		case modeExplanation:
			p.streamExplanation(text[i:])
			return
		case modeDiscard, modeDone:
			return
		}

		c := text[i]
		switch p.mode {
		case modeSeeking:
			p.seekByte(c)
		case modeFenceOpen:
			// Language identifier on the opening fence line, ignored.
			if c == '\n' {
				p.mode = modeFenced
			}
		case modeCommand:
			if c == '\n' {
				p.finishCommandLine()
			} else {
				p.line = append(p.line, c)
			}
		case modeAwaitExpl:
			if c == '\n' {
				p.line = p.line[:0]
				continue
			}
			p.line = append(p.line, c)
			if bytes.Equal(p.line, explMarker) {
				p.mode = modeExplanation
				p.line = p.line[:0]
			}
		case modeFenced:
			if c == '\n' {
				p.finishFenceLine()
			} else {
				p.line = append(p.line, c)
			}
		}
	}
}

// Finish flushes pending state after the stream's terminal event and
// returns the outcome. A reply in which no command ever resolved fails
// with KindEmptyResponse.
func (p *Parser) Finish() (Result, error) {
	switch p.mode {
	case modeSeeking, modeRaw:
		if cmd := strings.TrimSpace(p.raw.String()); cmd != "" {
			p.resolveCommand(cmd)
		}
	case modeCommand:
		p.finishCommandLine()
	case modeFenced:
		if len(p.line) > 0 {
			p.finishFenceLine()
		}
		if p.mode == modeFenced {
			// Unterminated fence: the block content is the best we have.
			if cmd := strings.TrimSpace(p.fence.String()); cmd != "" {
				p.resolveCommand(cmd)
			}
		}
	}
	p.mode = modeDone

	if !p.cmdSet {
		return Result{}, &llm.Error{Kind: llm.KindEmptyResponse, Message: "model response contained no command"}
	}
	return Result{Command: p.cmd, Explanation: p.expl.String()}, nil
}

func (p *Parser) seekByte(c byte) {
	p.raw.WriteByte(c)
	if c == '\n' {
		p.line = p.line[:0]
		p.maybeRaw()
		return
	}
	p.line = append(p.line, c)
	switch {
	case bytes.Equal(p.line, commandMarker):
		p.mode = modeCommand
		p.line = p.line[:0]
	case bytes.Equal(p.line, fenceMarker):
		p.mode = modeFenceOpen
		p.line = p.line[:0]
	case !viableMarkerPrefix(p.line):
		p.maybeRaw()
	}
}

// maybeRaw commits to the raw fallback once too much text has gone by
// with no marker. Only called at points where the current line can no
// longer become one, so a marker that straddles the limit still wins.
func (p *Parser) maybeRaw() {
	if p.raw.Len() > seekLimit {
		p.mode = modeRaw
	}
}

func viableMarkerPrefix(line []byte) bool {
	return bytes.HasPrefix(commandMarker, line) || bytes.HasPrefix(fenceMarker, line)
}

// finishCommandLine resolves the marker line's value. An empty value
// does not count as a resolved command; the reply can still stream an
// explanation, but the request will fail as empty at Finish.
func (p *Parser) finishCommandLine() {
	cmd := strings.TrimSpace(string(p.line))
	p.line = p.line[:0]
	p.mode = modeAwaitExpl
	if cmd != "" {
		p.resolveCommand(cmd)
	}
}

func (p *Parser) finishFenceLine() {
	if bytes.HasPrefix(p.line, fenceMarker) {
		if cmd := strings.TrimSpace(p.fence.String()); cmd != "" {
			p.resolveCommand(cmd)
		}
		p.mode = modeDiscard
	} else {
		p.fence.Write(p.line)
		p.fence.WriteByte('\n')
	}
	p.line = p.line[:0]
}

func (p *Parser) resolveCommand(cmd string) {
	if p.cmdSet {
		return
	}
	p.cmd = cmd
	p.cmdSet = true
	p.sink.Command(cmd)
}

// streamExplanation forwards text while trimming the explanation as a
// whole: leading whitespace is dropped, and trailing whitespace is held
// back until more text proves it interior. Nothing forwarded is ever
// retracted.
func (p *Parser) streamExplanation(s string) {
	var flush strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isSpace(c) {
			if p.explStarted {
				p.pendWS = append(p.pendWS, c)
			}
			continue
		}
		p.explStarted = true
		if len(p.pendWS) > 0 {
			flush.Write(p.pendWS)
			p.pendWS = p.pendWS[:0]
		}
		flush.WriteByte(c)
	}
	if flush.Len() > 0 {
		frag := flush.String()
		p.expl.WriteString(frag)
		p.sink.Explanation(frag)
	}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
