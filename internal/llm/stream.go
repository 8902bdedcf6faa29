package llm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// ErrStreamClosed is returned by Recv after Close.
var ErrStreamClosed = errors.New("llm: stream closed")

var doneSentinel = []byte("[DONE]")

// decodeFunc projects one provider wire frame into a normalized event.
// ok=false means the frame carried nothing of interest (metadata, pings).
// A non-nil error marks the frame malformed; the stream skips it.
type decodeFunc func(data []byte) (StreamEvent, bool, error)

// Stream is a single-use pull reader over one streaming response.
//
// Recv returns events in arrival order and io.EOF once a terminal event
// (EventDone or EventError) has been delivered. Streams are not safe for
// concurrent use.
type Stream struct {
	provider string
	resp     *http.Response
	dec      *sseDecoder
	decode   decodeFunc

	closed bool
	done   bool
}

func newStream(provider string, resp *http.Response, decode decodeFunc) *Stream {
	return &Stream{
		provider: provider,
		resp:     resp,
		dec:      newSSEDecoder(resp.Body),
		decode:   decode,
	}
}

// Provider returns the name of the provider this stream came from.
func (s *Stream) Provider() string { return s.provider }

// Close releases the underlying response body. It is safe to call more
// than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.resp != nil && s.resp.Body != nil {
		return s.resp.Body.Close()
	}
	return nil
}

// Recv returns the next normalized event.
//
// Frames that fail to decode are logged and skipped. Read failures come
// back as a *Error with KindTransport (or KindOverflow past the size cap);
// after any terminal event Recv returns io.EOF.
func (s *Stream) Recv() (StreamEvent, error) {
	if s.closed {
		return StreamEvent{}, ErrStreamClosed
	}
	if s.done {
		return StreamEvent{}, io.EOF
	}

	for {
		data, err := s.dec.Next()
		if err != nil {
			s.done = true
			switch {
			case errors.Is(err, io.EOF):
				// Some providers close the connection without sending [DONE].
				return StreamEvent{Kind: EventDone}, nil
			case errors.Is(err, errResponseTooLarge):
				return StreamEvent{}, &Error{Provider: s.provider, Kind: KindOverflow, Message: "response exceeded size cap", Cause: err}
			case errors.Is(err, context.Canceled):
				return StreamEvent{}, &Error{Provider: s.provider, Kind: KindTransport, Message: "request canceled", Cause: err}
			default:
				return StreamEvent{}, &Error{Provider: s.provider, Kind: KindTransport, Message: "reading stream", Cause: err}
			}
		}

		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}
		if bytes.Equal(data, doneSentinel) {
			s.done = true
			return StreamEvent{Kind: EventDone}, nil
		}

		ev, ok, err := s.decode(data)
		if err != nil {
			slog.Warn("skipping malformed stream frame", "provider", s.provider, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if ev.Kind == EventDone || ev.Kind == EventError {
			s.done = true
		}
		return ev, nil
	}
}
