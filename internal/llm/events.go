package llm

// EventKind represents normalized streaming event kinds.
type EventKind string

const (
	EventTextDelta EventKind = "text_delta"
	EventDone      EventKind = "done"
	EventError     EventKind = "error"
)

// StreamEvent is the provider-agnostic streaming update. Every provider's
// wire format is reduced to this shape before anything downstream sees it.
type StreamEvent struct {
	Kind EventKind

	// Text is the delta payload for EventTextDelta.
	Text string

	// Err is the provider-reported message for EventError.
	Err string
}
