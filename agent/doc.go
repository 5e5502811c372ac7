// Package agent drives the turn-taking state machine for one conversation.
//
// The orchestrator cycles Idle → Generating → {Idle | AwaitingConfirmation
// | ExecutingTool} → Generating → Idle. During Generating it consumes the
// backend stream event by event: text deltas accumulate in an observable
// buffer, tool-call fragments feed the assembler, and turn completion
// finalizes zero or more invocations. Invocations flow through the
// confirmation gate (when their tool requires it) and the execution
// gateway; each outcome is appended as a tool turn and generation re-enters
// so the model can react. A cycle ends when a model turn carries no
// invocations.
//
// Cancellation is scoped to one generation cycle: it unblocks the stream
// read at the next opportunity and salvages any partial text as a
// completed assistant turn. Cancelling while awaiting confirmation is a
// no-op; cancelling during tool execution does not interrupt the tool
// itself.
//
//	orch := agent.New(backend, registry,
//	    agent.WithSystemPrompt("You are a helpful assistant."),
//	    agent.WithSink(sink),
//	)
//
//	events, err := orch.StartTurn(ctx, "Schedule lunch with Ada tomorrow")
//	if err != nil { ... }
//	for ev := range events {
//	    switch ev.Type {
//	    case event.TextDelta:
//	        fmt.Print(ev.Delta)
//	    case event.ConfirmationPending:
//	        // surface ev.Invocation, then orch.Confirm(id) or orch.Reject(id, reason)
//	    }
//	}
package agent
