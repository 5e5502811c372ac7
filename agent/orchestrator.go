package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	turnkit "github.com/stephencalder/turnkit"
	"github.com/stephencalder/turnkit/event"
	"github.com/stephencalder/turnkit/store"
	"github.com/stephencalder/turnkit/stream"
	"github.com/stephencalder/turnkit/tool"
)

// State is the orchestrator's position in the turn-taking cycle.
type State string

const (
	StateIdle                 State = "idle"
	StateGenerating           State = "generating"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateExecutingTool        State = "executing_tool"
)

// ErrGenerationInFlight is returned by StartTurn while a generation cycle
// is still running: exactly one generation is in flight per conversation.
var ErrGenerationInFlight = errors.New("agent: generation already in flight")

// Orchestrator owns one conversation: its turn list, the in-progress text
// buffer, and the pending-confirmation set. It drives the stream parser
// against the backend, routes assembled invocations through the
// confirmation gate and the gateway, feeds outcomes back into the
// conversation, and re-enters generation until the model yields a plain
// text turn.
//
// All mutable conversation state is confined to the orchestrator instance;
// callers interact through StartTurn, Cancel, Confirm, Reject, and the
// read-only observers.
type Orchestrator struct {
	backend      turnkit.ModelBackend
	registry     *tool.Registry
	gateway      *tool.Gateway
	sink         turnkit.Sink
	meter        turnkit.UsageMeter
	logger       *slog.Logger
	systemPrompt string
	maxSteps     int

	mu           sync.Mutex
	turns        *store.TurnStore
	state        State
	buffer       strings.Builder
	pending      map[string]*pendingConfirmation
	pendingOrder []string
	cancelRun    context.CancelFunc
	resetCh      chan struct{}

	// runSeq identifies the current run. Each StartTurn increments it, and
	// Reset increments it to supersede a live run: a run whose sequence no
	// longer matches may still emit on its own event channel but must not
	// mutate orchestrator state.
	runSeq uint64
}

// New creates an Orchestrator for a single conversation.
func New(backend turnkit.ModelBackend, registry *tool.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:  backend,
		registry: registry,
		logger:   slog.Default(),
		maxSteps: 10,
		turns:    store.NewTurnStore(nil),
		state:    StateIdle,
		pending:  make(map[string]*pendingConfirmation),
		resetCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.gateway == nil {
		o.gateway = tool.NewGateway(registry, tool.WithLogger(o.logger))
	}
	if o.sink != nil {
		sink := o.sink
		o.turns.OnChange(sink.OnTurnsChanged)
	}
	return o
}

// StartTurn appends a user turn and begins a generation cycle. It returns
// a channel of observable events for this run; the channel closes when the
// orchestrator returns to idle (or the conversation is reset). Only one
// generation may be in flight per conversation.
func (o *Orchestrator) StartTurn(ctx context.Context, userText string) (<-chan event.Event, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.runSeq++
	seq := o.runSeq
	o.cancelRun = cancel
	o.state = StateGenerating
	o.buffer.Reset()
	o.mu.Unlock()

	o.turns.Append(turnkit.NewUserTurn(userText))

	ch := event.NewChannel()
	go o.run(runCtx, cancel, seq, ch)
	return ch, nil
}

// Cancel aborts an in-flight generation or tool-execution phase. A
// non-empty text buffer is salvaged as a completed assistant turn before
// the orchestrator returns to idle. While awaiting confirmation there is
// no in-flight operation to cancel, so Cancel is a no-op.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateGenerating, StateExecutingTool:
		if o.cancelRun != nil {
			o.cancelRun()
		}
	}
}

// Reset clears the conversation and abandons any pending confirmations or
// in-flight generation. The superseded run winds down on its own; bumping
// the sequence bars it from mutating the fresh conversation.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
	o.runSeq++
	close(o.resetCh)
	o.resetCh = make(chan struct{})
	o.pending = make(map[string]*pendingConfirmation)
	o.pendingOrder = nil
	o.buffer.Reset()
	o.state = StateIdle
	o.mu.Unlock()

	o.turns.Clear()
}

// Turns returns a copy of the conversation's turn list.
func (o *Orchestrator) Turns() []turnkit.Turn {
	return o.turns.Turns()
}

// Buffer returns the in-progress assistant text accumulated so far in the
// current generation cycle.
func (o *Orchestrator) Buffer() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buffer.String()
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// run is the generation loop. Re-entry after tool outcomes is a loop
// iteration rather than recursion, so long tool-use chains do not grow the
// call stack. cancel belongs to this run alone; the shared cancelRun is
// only cleared when this run is still the current one, so a superseded
// run can never cancel its successor.
func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, seq uint64, ch chan event.Event) {
	defer close(ch)
	defer func() {
		cancel()
		o.mu.Lock()
		if o.runSeq == seq {
			o.cancelRun = nil
		}
		o.mu.Unlock()
	}()

	event.Emit(ch, event.Event{Type: event.RunStart})

	step := 0
	for {
		step++
		if o.maxSteps > 0 && step > o.maxSteps {
			o.logger.Warn("generation stopped at step limit", "max_steps", o.maxSteps)
			o.finish(seq, ch, event.Event{Type: event.RunEnd, Message: "max steps reached"})
			return
		}

		invocations, done := o.generate(ctx, seq, ch)
		if done {
			return
		}

		if o.processInvocations(ctx, seq, ch, invocations) {
			return
		}

		o.setState(seq, StateGenerating)
	}
}

// generate runs one backend stream to completion. It returns the
// invocations assembled from the turn, or done=true when the cycle ended
// (plain text turn, cancellation, or transport failure).
func (o *Orchestrator) generate(ctx context.Context, seq uint64, ch chan event.Event) ([]turnkit.ToolInvocation, bool) {
	asm := stream.NewAssembler()

	body, err := o.backend.StreamTurn(ctx, o.turns.Turns(), o.registry.Tools(), o.systemPrompt)
	if err != nil {
		if ctx.Err() != nil {
			o.finishCancelled(seq, ch)
			return nil, true
		}
		o.logger.Error("backend request failed", "error", err)
		o.salvageBuffer(seq, ch)
		o.finish(seq, ch, event.Event{Type: event.RunError, Err: err})
		return nil, true
	}
	defer body.Close()

	parser := stream.NewParser(body)
	for {
		ev, err := parser.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				o.finishCancelled(seq, ch)
				return nil, true
			}
			o.logger.Error("stream failed mid-read", "error", err)
			o.salvageBuffer(seq, ch)
			o.finish(seq, ch, event.Event{Type: event.RunError, Err: err})
			return nil, true
		}

		switch ev.Type {
		case stream.EventTextDelta:
			o.mu.Lock()
			if o.runSeq == seq {
				o.buffer.WriteString(ev.Text)
			}
			o.mu.Unlock()
			event.Emit(ch, event.Event{Type: event.TextDelta, Delta: ev.Text})

		case stream.EventToolCallFragment:
			asm.Add(*ev.Fragment)

		case stream.EventTurnComplete:
			if ev.Usage != nil {
				if o.meter != nil {
					o.meter.RecordUsage(*ev.Usage)
				}
				event.Emit(ch, event.Event{Type: event.UsageReported, Usage: ev.Usage})
			}
		}
	}

	invocations := asm.Finalize()
	if len(invocations) == 0 {
		if text := o.takeBuffer(seq); text != "" {
			o.appendTurn(seq, ch, turnkit.NewAssistantTurn(text))
		}
		o.finish(seq, ch, event.Event{Type: event.RunEnd})
		return nil, true
	}

	// Text accompanying invocations is always persisted as its own
	// assistant turn before the invocation turns.
	if text := o.takeBuffer(seq); text != "" {
		o.appendTurn(seq, ch, turnkit.NewAssistantTurn(text))
	}
	for _, inv := range invocations {
		o.appendTurn(seq, ch, turnkit.NewInvocationTurn(inv))
	}
	return invocations, false
}

// processInvocations gates and executes each invocation in order, appending
// outcomes as tool turns. It returns true when the run must stop
// (cancellation mid-execution or conversation reset).
func (o *Orchestrator) processInvocations(ctx context.Context, seq uint64, ch chan event.Event, invocations []turnkit.ToolInvocation) bool {
	for _, inv := range invocations {
		if o.registry.ConfirmationRequired(inv.Name) {
			p := o.registerPending(inv)
			o.setState(seq, StateAwaitingConfirmation)
			event.Emit(ch, event.Event{Type: event.ConfirmationPending, Invocation: &inv})

			d, abandoned := o.awaitDecision(p)
			if abandoned {
				return true
			}
			if !d.approved {
				content := "Tool call rejected by user"
				if d.reason != "" {
					content += ": " + d.reason
				}
				o.appendTurn(seq, ch, turnkit.NewOutcomeTurn(turnkit.ToolOutcome{
					InvocationID: inv.ID,
					Content:      content,
					IsError:      true,
				}))
				event.Emit(ch, event.Event{Type: event.InvocationRejected, Invocation: &inv, Message: d.reason})
				continue
			}
			event.Emit(ch, event.Event{Type: event.InvocationConfirmed, Invocation: &inv})
		}

		o.setState(seq, StateExecutingTool)
		event.Emit(ch, event.Event{Type: event.InvocationExecuting, Invocation: &inv})

		outcome := o.gateway.Execute(ctx, inv)
		o.appendTurn(seq, ch, turnkit.NewOutcomeTurn(outcome))
		event.Emit(ch, event.Event{Type: event.OutcomeReceived, Invocation: &inv, Outcome: &outcome})

		// Cancellation does not interrupt a running tool; it takes effect
		// once the outcome is recorded.
		if ctx.Err() != nil {
			o.finishCancelled(seq, ch)
			return true
		}
	}
	return false
}

// owns reports whether the run identified by seq is still the current one.
func (o *Orchestrator) owns(seq uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runSeq == seq
}

func (o *Orchestrator) appendTurn(seq uint64, ch chan event.Event, t turnkit.Turn) {
	if !o.owns(seq) {
		return
	}
	o.turns.Append(t)
	event.Emit(ch, event.Event{Type: event.TurnAppended, Turn: &t})
}

// takeBuffer returns and clears the in-progress text buffer. A superseded
// run gets nothing back: the buffer belongs to the current run.
func (o *Orchestrator) takeBuffer(seq uint64) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runSeq != seq {
		return ""
	}
	text := o.buffer.String()
	o.buffer.Reset()
	return text
}

// salvageBuffer persists a non-empty text buffer as a completed assistant
// turn. Partial generations are never discarded.
func (o *Orchestrator) salvageBuffer(seq uint64, ch chan event.Event) {
	if text := o.takeBuffer(seq); text != "" {
		o.appendTurn(seq, ch, turnkit.NewAssistantTurn(text))
	}
}

func (o *Orchestrator) finishCancelled(seq uint64, ch chan event.Event) {
	o.salvageBuffer(seq, ch)
	o.finish(seq, ch, event.Event{Type: event.RunCancelled})
}

func (o *Orchestrator) finish(seq uint64, ch chan event.Event, final event.Event) {
	o.setState(seq, StateIdle)
	event.Emit(ch, final)
}

func (o *Orchestrator) setState(seq uint64, s State) {
	o.mu.Lock()
	if o.runSeq == seq {
		o.state = s
	}
	o.mu.Unlock()
}
