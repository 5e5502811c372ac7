// Package turnkit is the runtime core of a tool-using conversational agent.
//
// It turns a sequence of user turns into model-generated output that may
// interleave free text with externally executed tool calls, while streaming
// partial output to the caller. The root package holds the shared data
// model: turns, tool descriptors, invocations, outcomes, usage counters,
// the collaborator interfaces (ModelBackend, Sink, UsageMeter), and the
// error taxonomy.
//
// The work is split across four subpackages:
//
//   - stream decodes the backend's line-oriented event stream into typed
//     events and reassembles fragmented tool calls into complete
//     invocations.
//   - tool holds the catalog of executable tools and the gateway that
//     runs an invocation and normalizes its outcome.
//   - agent drives the turn-taking state machine: streaming, the
//     confirmation gate, tool execution, recursion after outcomes,
//     cancellation, and partial-output salvage.
//   - backend/openai is a concrete ModelBackend speaking the
//     chat-completions SSE wire.
//
// A minimal conversation looks like:
//
//	registry := tool.NewRegistry()
//	tool.MustBindTo(registry, "clock", "Get the current time", clockHandler)
//
//	orch := agent.New(backend, registry,
//	    agent.WithSystemPrompt("You are a helpful assistant."),
//	    agent.WithSink(mySink),
//	)
//
//	events, err := orch.StartTurn(ctx, "What time is it?")
//	for ev := range events {
//	    // render deltas, answer confirmation prompts, ...
//	}
package turnkit
