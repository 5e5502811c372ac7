package stream

import (
	turnkit "github.com/stephencalder/turnkit"
)

// EventType identifies the kind of stream event.
type EventType string

const (
	// EventTextDelta carries an incremental piece of assistant text.
	EventTextDelta EventType = "text_delta"

	// EventToolCallFragment carries a partial piece of a tool invocation.
	EventToolCallFragment EventType = "tool_call_fragment"

	// EventTurnComplete signals the end of a model turn. It is always the
	// final event of a stream and is emitted exactly once.
	EventTurnComplete EventType = "turn_complete"
)

// Event is one typed occurrence decoded from the backend stream. Events are
// transient: they are consumed immediately by the orchestrator and assembler
// and never persisted.
type Event struct {
	Type EventType

	// Text is the delta content for EventTextDelta.
	Text string

	// Fragment is the partial tool call for EventToolCallFragment.
	Fragment *Fragment

	// Usage carries token counters for EventTurnComplete, when the backend
	// reported them.
	Usage *turnkit.Usage
}

// Fragment is a partial, streamed piece of a tool invocation, keyed by its
// position index within the model turn. ID and Name typically arrive once,
// on the first fragment for an index; ArgumentsDelta is a raw JSON text
// fragment whose concatenation across fragments forms the argument object.
type Fragment struct {
	Index          int
	ID             string
	Name           string
	ArgumentsDelta string
}
