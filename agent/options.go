package agent

import (
	"log/slog"

	turnkit "github.com/stephencalder/turnkit"
	"github.com/stephencalder/turnkit/tool"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSystemPrompt sets the system prompt sent with every backend request.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) {
		o.systemPrompt = prompt
	}
}

// WithSink sets the collaborator notified after every turn-list mutation.
func WithSink(s turnkit.Sink) Option {
	return func(o *Orchestrator) {
		o.sink = s
	}
}

// WithUsageMeter sets the collaborator receiving token usage counters.
func WithUsageMeter(m turnkit.UsageMeter) Option {
	return func(o *Orchestrator) {
		o.meter = m
	}
}

// WithGateway replaces the default execution gateway. Use this to attach
// gateway options such as handler timeouts or a settings store.
func WithGateway(g *tool.Gateway) Option {
	return func(o *Orchestrator) {
		o.gateway = g
	}
}

// WithLogger sets the structured logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithMaxSteps bounds the number of generation cycles a single user turn
// may trigger, guarding against unbounded tool-use chains. Default is 10;
// zero means unlimited.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) {
		o.maxSteps = n
	}
}
