// Package event defines the observable event stream a caller receives
// while a generation cycle runs: text deltas for live rendering, the
// confirmation lifecycle for approval UIs, and run boundaries.
package event

import (
	"time"

	turnkit "github.com/stephencalder/turnkit"
)

// Type identifies the kind of event.
type Type string

// Run lifecycle events
const (
	// RunStart fires when a generation cycle begins.
	RunStart Type = "run_start"

	// RunEnd fires when the cycle completes and the orchestrator returns
	// to idle.
	RunEnd Type = "run_end"

	// RunError fires when a transport failure aborts generation. Any
	// partial text has already been salvaged as an assistant turn.
	RunError Type = "run_error"

	// RunCancelled fires when the caller cancels generation. Any partial
	// text has already been salvaged as an assistant turn.
	RunCancelled Type = "run_cancelled"
)

// Streaming events
const (
	// TextDelta fires for each streamed piece of assistant text.
	TextDelta Type = "text_delta"

	// TurnAppended fires after a turn is added to the conversation.
	TurnAppended Type = "turn_appended"

	// UsageReported fires when a model turn reports token counters.
	UsageReported Type = "usage_reported"
)

// Confirmation and execution events
const (
	// ConfirmationPending fires when an invocation needs explicit approval
	// before it may execute.
	ConfirmationPending Type = "confirmation_pending"

	// InvocationConfirmed fires when the caller approves an invocation.
	InvocationConfirmed Type = "invocation_confirmed"

	// InvocationRejected fires when the caller rejects an invocation.
	InvocationRejected Type = "invocation_rejected"

	// InvocationExecuting fires before the gateway runs an invocation.
	InvocationExecuting Type = "invocation_executing"

	// OutcomeReceived fires with the result of an executed invocation.
	OutcomeReceived Type = "outcome_received"
)

// Event represents an observable occurrence during a generation cycle.
type Event struct {
	// Type identifies the kind of event.
	Type Type

	// Delta contains streaming content for TextDelta events.
	Delta string

	// Turn is the appended turn for TurnAppended events.
	Turn *turnkit.Turn

	// Invocation is set on confirmation and execution events.
	Invocation *turnkit.ToolInvocation

	// Outcome is set on OutcomeReceived events.
	Outcome *turnkit.ToolOutcome

	// Usage is set on UsageReported events.
	Usage *turnkit.Usage

	// Err is set on RunError events.
	Err error

	// Message carries additional context (e.g., a rejection reason).
	Message string

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emit sends an event with timestamp to the channel (non-blocking). A slow
// consumer loses events rather than stalling generation; the turn list and
// pending-confirmation set remain the authoritative state.
func Emit(ch chan<- Event, e Event) {
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}

// NewChannel creates a buffered event channel with standard capacity.
func NewChannel() chan Event {
	return make(chan Event, 100)
}
