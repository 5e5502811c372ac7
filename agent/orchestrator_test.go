package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	turnkit "github.com/stephencalder/turnkit"
	"github.com/stephencalder/turnkit/event"
	"github.com/stephencalder/turnkit/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBackend replays one canned stream body per StreamTurn call.
type scriptedBackend struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (b *scriptedBackend) StreamTurn(ctx context.Context, turns []turnkit.Turn, tools []turnkit.Tool, systemPrompt string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.calls >= len(b.responses) {
		return nil, errors.New("no scripted response left")
	}
	body := b.responses[b.calls]
	b.calls++
	return io.NopCloser(strings.NewReader(body)), nil
}

func (b *scriptedBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// blockingBackend streams its data, then blocks until the request context
// is cancelled.
type blockingBackend struct {
	data string
}

func (b *blockingBackend) StreamTurn(ctx context.Context, turns []turnkit.Turn, tools []turnkit.Tool, systemPrompt string) (io.ReadCloser, error) {
	return io.NopCloser(&blockingReader{ctx: ctx, data: []byte(b.data)}), nil
}

type blockingReader struct {
	ctx  context.Context
	data []byte
	pos  int
}

func (r *blockingReader) Read(p []byte) (int, error) {
	if r.pos < len(r.data) {
		n := copy(p, r.data[r.pos:])
		r.pos += n
		return n, nil
	}
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

func textStream(parts ...string) string {
	var sb strings.Builder
	for _, part := range parts {
		fmt.Fprintf(&sb, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
	}
	sb.WriteString("data: [DONE]\n")
	return sb.String()
}

func toolCallStream(id, name, args string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "data: {\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":%q,\"function\":{\"name\":%q,\"arguments\":%q}}]}}]}\n\n", id, name, args)
	sb.WriteString("data: [DONE]\n")
	return sb.String()
}

func collect(t *testing.T, events <-chan event.Event) []event.Event {
	t.Helper()
	var out []event.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

func eventTypes(events []event.Event) []event.Type {
	types := make([]event.Type, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestPlainTextTurn(t *testing.T) {
	backend := &scriptedBackend{responses: []string{textStream("Hello", ", world")}}
	orch := New(backend, tool.NewRegistry())

	events, err := orch.StartTurn(context.Background(), "hi")
	require.NoError(t, err)
	all := collect(t, events)

	assert.Contains(t, eventTypes(all), event.RunStart)
	assert.Equal(t, event.RunEnd, all[len(all)-1].Type)

	turns := orch.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, turnkit.RoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Text)
	assert.Equal(t, turnkit.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Hello, world", turns[1].Text)

	assert.Equal(t, StateIdle, orch.State())
	assert.Empty(t, orch.Buffer())
}

func TestToolInvocationAutoExecutes(t *testing.T) {
	var executed bool
	registry := tool.NewRegistry()
	registry.MustRegister(turnkit.Tool{Name: "clock"}, func(context.Context, turnkit.ToolInvocation) (string, error) {
		executed = true
		return "noon", nil
	})

	backend := &scriptedBackend{responses: []string{
		toolCallStream("call_1", "clock", "{}"),
		textStream("It is noon."),
	}}
	orch := New(backend, registry)

	events, err := orch.StartTurn(context.Background(), "what time is it")
	require.NoError(t, err)
	all := collect(t, events)

	assert.True(t, executed)
	assert.Equal(t, 2, backend.callCount())

	types := eventTypes(all)
	assert.Contains(t, types, event.InvocationExecuting)
	assert.Contains(t, types, event.OutcomeReceived)
	assert.NotContains(t, types, event.ConfirmationPending)

	turns := orch.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, turnkit.RoleUser, turns[0].Role)
	require.NotNil(t, turns[1].Invocation)
	assert.Equal(t, "clock", turns[1].Invocation.Name)
	require.NotNil(t, turns[2].Outcome)
	assert.Equal(t, "noon", turns[2].Outcome.Content)
	assert.Equal(t, "call_1", turns[2].Outcome.InvocationID)
	assert.Equal(t, "It is noon.", turns[3].Text)
}

func TestAccompanyingTextPersistsBeforeInvocation(t *testing.T) {
	registry := tool.NewRegistry()
	registry.MustRegister(turnkit.Tool{Name: "clock"}, func(context.Context, turnkit.ToolInvocation) (string, error) {
		return "noon", nil
	})

	mixed := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Let me check.\"}}]}\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_1\",\"function\":{\"name\":\"clock\",\"arguments\":\"{}\"}}]}}]}\n" +
		"data: [DONE]\n"

	backend := &scriptedBackend{responses: []string{mixed, textStream("Noon.")}}
	orch := New(backend, registry)

	events, err := orch.StartTurn(context.Background(), "time?")
	require.NoError(t, err)
	collect(t, events)

	turns := orch.Turns()
	require.Len(t, turns, 5)
	assert.Equal(t, "Let me check.", turns[1].Text)
	require.NotNil(t, turns[2].Invocation)
	require.NotNil(t, turns[3].Outcome)
	assert.Equal(t, "Noon.", turns[4].Text)
}

func TestConfirmationGateApproval(t *testing.T) {
	var executed bool
	registry := tool.NewRegistry()
	registry.MustRegister(turnkit.Tool{Name: "deploy", ConfirmationRequired: true},
		func(context.Context, turnkit.ToolInvocation) (string, error) {
			executed = true
			return "deployed", nil
		})

	backend := &scriptedBackend{responses: []string{
		toolCallStream("call_1", "deploy", "{}"),
		textStream("Done."),
	}}
	orch := New(backend, registry)

	events, err := orch.StartTurn(context.Background(), "deploy it")
	require.NoError(t, err)

	var all []event.Event
	for ev := range events {
		all = append(all, ev)
		if ev.Type == event.ConfirmationPending {
			assert.False(t, executed, "tool must not run before confirmation")
			assert.Equal(t, StateAwaitingConfirmation, orch.State())
			require.NoError(t, orch.Confirm(ev.Invocation.ID))
		}
	}

	assert.True(t, executed)
	types := eventTypes(all)
	assert.Contains(t, types, event.InvocationConfirmed)
	assert.Contains(t, types, event.OutcomeReceived)

	turns := orch.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, "deployed", turns[2].Outcome.Content)
	assert.False(t, turns[2].Outcome.IsError)
}

func TestConfirmationGateRejection(t *testing.T) {
	var executed bool
	registry := tool.NewRegistry()
	registry.MustRegister(turnkit.Tool{Name: "deploy", ConfirmationRequired: true},
		func(context.Context, turnkit.ToolInvocation) (string, error) {
			executed = true
			return "deployed", nil
		})

	backend := &scriptedBackend{responses: []string{
		toolCallStream("call_1", "deploy", "{}"),
		textStream("Understood, not deploying."),
	}}
	orch := New(backend, registry)

	events, err := orch.StartTurn(context.Background(), "deploy it")
	require.NoError(t, err)

	var all []event.Event
	for ev := range events {
		all = append(all, ev)
		if ev.Type == event.ConfirmationPending {
			require.NoError(t, orch.Reject(ev.Invocation.ID, "not in business hours"))
		}
	}

	assert.False(t, executed, "rejected tool must never execute")
	assert.Contains(t, eventTypes(all), event.InvocationRejected)

	turns := orch.Turns()
	toolTurns := 0
	for _, tn := range turns {
		if tn.Role == turnkit.RoleTool {
			toolTurns++
			require.NotNil(t, tn.Outcome)
			assert.True(t, tn.Outcome.IsError)
			assert.Equal(t, "Tool call rejected by user: not in business hours", tn.Outcome.Content)
			assert.Equal(t, "call_1", tn.Outcome.InvocationID)
		}
	}
	assert.Equal(t, 1, toolTurns, "rejection appends exactly one tool turn")

	// The rejection outcome feeds the next generation cycle.
	assert.Equal(t, 2, backend.callCount())
	assert.Equal(t, "Understood, not deploying.", turns[len(turns)-1].Text)
}

func TestConfirmUnknownInvocation(t *testing.T) {
	orch := New(&scriptedBackend{}, tool.NewRegistry())
	assert.Error(t, orch.Confirm("call_missing"))
	assert.Error(t, orch.Reject("call_missing", ""))
}

func TestStartTurnWhileInFlight(t *testing.T) {
	registry := tool.NewRegistry()
	registry.MustRegister(turnkit.Tool{Name: "deploy", ConfirmationRequired: true},
		func(context.Context, turnkit.ToolInvocation) (string, error) { return "", nil })

	backend := &scriptedBackend{responses: []string{
		toolCallStream("call_1", "deploy", "{}"),
		textStream("ok"),
	}}
	orch := New(backend, registry)

	events, err := orch.StartTurn(context.Background(), "deploy")
	require.NoError(t, err)

	for ev := range events {
		if ev.Type == event.ConfirmationPending {
			_, err := orch.StartTurn(context.Background(), "another")
			assert.ErrorIs(t, err, ErrGenerationInFlight)
			require.NoError(t, orch.Confirm(ev.Invocation.ID))
		}
	}
}

func TestCancellationSalvagesPartialText(t *testing.T) {
	partial := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"partial answer\"}}]}\n"
	backend := &blockingBackend{data: partial}
	orch := New(backend, tool.NewRegistry())

	events, err := orch.StartTurn(context.Background(), "tell me everything")
	require.NoError(t, err)

	var all []event.Event
	for ev := range events {
		all = append(all, ev)
		if ev.Type == event.TextDelta {
			orch.Cancel()
		}
	}

	assert.Equal(t, event.RunCancelled, all[len(all)-1].Type)

	turns := orch.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, turnkit.RoleAssistant, turns[1].Role)
	assert.Equal(t, "partial answer", turns[1].Text)
	assert.Equal(t, StateIdle, orch.State())
}

func TestBackendFailureEndsRun(t *testing.T) {
	backend := &scriptedBackend{} // no responses scripted: first call errors
	orch := New(backend, tool.NewRegistry())

	events, err := orch.StartTurn(context.Background(), "hi")
	require.NoError(t, err)
	all := collect(t, events)

	last := all[len(all)-1]
	assert.Equal(t, event.RunError, last.Type)
	assert.Error(t, last.Err)
	assert.Equal(t, StateIdle, orch.State())
}

func TestUnknownToolOutcomeFeedsBack(t *testing.T) {
	backend := &scriptedBackend{responses: []string{
		toolCallStream("call_1", "no_such_tool", "{}"),
		textStream("I cannot do that."),
	}}
	orch := New(backend, tool.NewRegistry())

	events, err := orch.StartTurn(context.Background(), "do the thing")
	require.NoError(t, err)
	collect(t, events)

	turns := orch.Turns()
	require.Len(t, turns, 4)
	require.NotNil(t, turns[2].Outcome)
	assert.True(t, turns[2].Outcome.IsError)
	assert.Equal(t, "Unknown tool: no_such_tool", turns[2].Outcome.Content)
	assert.Equal(t, "I cannot do that.", turns[3].Text)
}

func TestMaxStepsBoundsToolChains(t *testing.T) {
	registry := tool.NewRegistry()
	registry.MustRegister(turnkit.Tool{Name: "again"}, func(context.Context, turnkit.ToolInvocation) (string, error) {
		return "more", nil
	})

	loop := toolCallStream("call_x", "again", "{}")
	backend := &scriptedBackend{responses: []string{loop, loop, loop, loop}}
	orch := New(backend, registry, WithMaxSteps(2))

	events, err := orch.StartTurn(context.Background(), "loop forever")
	require.NoError(t, err)
	all := collect(t, events)

	last := all[len(all)-1]
	assert.Equal(t, event.RunEnd, last.Type)
	assert.Equal(t, "max steps reached", last.Message)
	assert.Equal(t, 2, backend.callCount())
}

func TestSinkObservesEveryMutationInOrder(t *testing.T) {
	var mu sync.Mutex
	var snapshots [][]turnkit.Turn
	sink := turnkit.SinkFunc(func(turns []turnkit.Turn) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, turns)
	})

	registry := tool.NewRegistry()
	registry.MustRegister(turnkit.Tool{Name: "clock"}, func(context.Context, turnkit.ToolInvocation) (string, error) {
		return "noon", nil
	})
	backend := &scriptedBackend{responses: []string{
		toolCallStream("call_1", "clock", "{}"),
		textStream("Noon."),
	}}
	orch := New(backend, registry, WithSink(sink))

	events, err := orch.StartTurn(context.Background(), "time?")
	require.NoError(t, err)
	collect(t, events)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snapshots, 4)
	for i, snap := range snapshots {
		assert.Len(t, snap, i+1, "each notification carries one more turn")
	}
	assert.Equal(t, orch.Turns(), snapshots[len(snapshots)-1])
}

func TestUsageMetering(t *testing.T) {
	body := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"hi\"},\"finish_reason\":\"stop\"}]}\n" +
		"data: {\"choices\":[],\"usage\":{\"prompt_tokens\":7,\"completion_tokens\":3,\"total_tokens\":10}}\n" +
		"data: [DONE]\n"

	var total turnkit.Usage
	meter := turnkit.UsageMeterFunc(func(u turnkit.Usage) { total.Add(u) })

	backend := &scriptedBackend{responses: []string{body}}
	orch := New(backend, tool.NewRegistry(), WithUsageMeter(meter))

	events, err := orch.StartTurn(context.Background(), "hi")
	require.NoError(t, err)
	all := collect(t, events)

	assert.Equal(t, 7, total.InputTokens)
	assert.Equal(t, 3, total.OutputTokens)
	assert.Equal(t, 10, total.TotalTokens)

	var reported *turnkit.Usage
	for _, ev := range all {
		if ev.Type == event.UsageReported {
			reported = ev.Usage
		}
	}
	require.NotNil(t, reported)
	assert.Equal(t, 10, reported.TotalTokens)
}

// sequenceBackend blocks its first stream after one delta, then serves
// canned bodies like scriptedBackend.
type sequenceBackend struct {
	mu    sync.Mutex
	calls int
}

func (b *sequenceBackend) StreamTurn(ctx context.Context, turns []turnkit.Turn, tools []turnkit.Tool, systemPrompt string) (io.ReadCloser, error) {
	b.mu.Lock()
	b.calls++
	n := b.calls
	b.mu.Unlock()

	if n == 1 {
		stale := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"stale\"}}]}\n"
		return io.NopCloser(&blockingReader{ctx: ctx, data: []byte(stale)}), nil
	}
	return io.NopCloser(strings.NewReader(textStream("fresh"))), nil
}

func TestResetDoesNotDisruptSuccessorRun(t *testing.T) {
	backend := &sequenceBackend{}
	orch := New(backend, tool.NewRegistry())

	events1, err := orch.StartTurn(context.Background(), "first")
	require.NoError(t, err)

	// Wait until the first run is mid-stream.
	timeout := time.After(5 * time.Second)
	for sawDelta := false; !sawDelta; {
		select {
		case ev, ok := <-events1:
			require.True(t, ok, "first run ended before streaming")
			sawDelta = ev.Type == event.TextDelta
		case <-timeout:
			t.Fatal("timed out waiting for first delta")
		}
	}
	go func() {
		for range events1 {
		}
	}()

	orch.Reset()

	events2, err := orch.StartTurn(context.Background(), "again")
	require.NoError(t, err)
	all := collect(t, events2)

	// The superseded run must not cancel or pollute its successor.
	assert.Equal(t, event.RunEnd, all[len(all)-1].Type)
	assert.NotContains(t, eventTypes(all), event.RunCancelled)

	turns := orch.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "again", turns[0].Text)
	assert.Equal(t, "fresh", turns[1].Text)
	for _, tn := range turns {
		assert.NotEqual(t, "stale", tn.Text)
	}
	assert.Equal(t, StateIdle, orch.State())
}

func TestCancelDuringToolExecutionRecordsOutcome(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	registry := tool.NewRegistry()
	registry.MustRegister(turnkit.Tool{Name: "slow"}, func(context.Context, turnkit.ToolInvocation) (string, error) {
		close(started)
		<-release
		return "finished", nil
	})

	backend := &scriptedBackend{responses: []string{toolCallStream("call_1", "slow", "{}")}}
	orch := New(backend, registry)

	events, err := orch.StartTurn(context.Background(), "run the slow one")
	require.NoError(t, err)

	var all []event.Event
	done := make(chan struct{})
	go func() {
		for ev := range events {
			all = append(all, ev)
		}
		close(done)
	}()

	<-started
	orch.Cancel()
	close(release)
	<-done

	// The running tool was not interrupted: its outcome lands first, then
	// the run stops without another generation cycle.
	assert.Equal(t, event.RunCancelled, all[len(all)-1].Type)
	outcomeAt, cancelledAt := -1, -1
	for i, ev := range all {
		switch ev.Type {
		case event.OutcomeReceived:
			outcomeAt = i
		case event.RunCancelled:
			cancelledAt = i
		}
	}
	require.GreaterOrEqual(t, outcomeAt, 0)
	assert.Less(t, outcomeAt, cancelledAt)

	assert.Equal(t, 1, backend.callCount())

	turns := orch.Turns()
	require.Len(t, turns, 3)
	require.NotNil(t, turns[2].Outcome)
	assert.Equal(t, "finished", turns[2].Outcome.Content)
	assert.False(t, turns[2].Outcome.IsError)
	assert.Equal(t, StateIdle, orch.State())
}

func TestResetAbandonsPendingConfirmation(t *testing.T) {
	registry := tool.NewRegistry()
	registry.MustRegister(turnkit.Tool{Name: "deploy", ConfirmationRequired: true},
		func(context.Context, turnkit.ToolInvocation) (string, error) { return "", nil })

	backend := &scriptedBackend{responses: []string{toolCallStream("call_1", "deploy", "{}")}}
	orch := New(backend, registry)

	events, err := orch.StartTurn(context.Background(), "deploy")
	require.NoError(t, err)

	for ev := range events {
		if ev.Type == event.ConfirmationPending {
			require.Len(t, orch.PendingConfirmations(), 1)
			orch.Reset()
		}
	}

	assert.Empty(t, orch.PendingConfirmations())
	assert.Empty(t, orch.Turns())
	assert.Equal(t, StateIdle, orch.State())

	// A fresh turn starts cleanly after reset.
	backend.mu.Lock()
	backend.responses = append(backend.responses, textStream("fresh"))
	backend.mu.Unlock()

	events, err = orch.StartTurn(context.Background(), "again")
	require.NoError(t, err)
	collect(t, events)
	require.Len(t, orch.Turns(), 2)
	assert.Equal(t, "fresh", orch.Turns()[1].Text)
}
