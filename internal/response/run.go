package response

import (
	"errors"
	"io"
	"log/slog"

	"github.com/micahbf/halp/internal/llm"
)

// Run pulls a stream to completion through a Parser, routing output to
// sink. It returns once a terminal event arrives (or the transport
// fails), leaving the stream drained but not closed.
//
// Failures after the command has resolved do not unresolve it: the
// command already belongs to the caller, so late provider errors and
// transport drops only cost the rest of the explanation.
func Run(stream *llm.Stream, sink Sink) (Result, error) {
	p := NewParser(sink)
	for {
		ev, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return finish(p, stream)
			}
			if p.CommandResolved() {
				slog.Warn("stream failed after the command resolved", "provider", stream.Provider(), "error", err)
				return finish(p, stream)
			}
			return Result{}, err
		}

		switch ev.Kind {
		case llm.EventTextDelta:
			p.Feed(ev.Text)
		case llm.EventDone:
			return finish(p, stream)
		case llm.EventError:
			if p.CommandResolved() {
				slog.Warn("provider reported an error after the command resolved", "provider", stream.Provider(), "error", ev.Err)
				return finish(p, stream)
			}
			msg := "model response contained no command"
			var cause error
			if ev.Err != "" {
				msg = ev.Err
				cause = &llm.Error{Provider: stream.Provider(), Kind: llm.KindProvider, Message: ev.Err}
			}
			return Result{}, &llm.Error{Provider: stream.Provider(), Kind: llm.KindEmptyResponse, Message: msg, Cause: cause}
		}
	}
}

func finish(p *Parser, stream *llm.Stream) (Result, error) {
	res, err := p.Finish()
	if err != nil {
		var e *llm.Error
		if errors.As(err, &e) && e.Provider == "" {
			e.Provider = stream.Provider()
		}
	}
	return res, err
}
