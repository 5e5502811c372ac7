package turnkit

import (
	"context"
	"io"
)

// ModelBackend produces a live response stream for a turn history. The
// returned reader yields the line-oriented wire format consumed by
// stream.Parser; the caller closes it. Implementations must honor ctx:
// cancelling it unblocks in-flight reads on the returned stream.
type ModelBackend interface {
	StreamTurn(ctx context.Context, turns []Turn, tools []Tool, systemPrompt string) (io.ReadCloser, error)
}

// Sink is notified after every mutation of a conversation's turn list.
// It is invoked synchronously and in order: a sink never observes turn
// N+1 before turn N.
type Sink interface {
	OnTurnsChanged(turns []Turn)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(turns []Turn)

// OnTurnsChanged calls f(turns).
func (f SinkFunc) OnTurnsChanged(turns []Turn) { f(turns) }

// UsageMeter receives token usage counters whenever a model turn reports
// them. Usage is never attached to a turn itself.
type UsageMeter interface {
	RecordUsage(u Usage)
}

// UsageMeterFunc adapts a function to the UsageMeter interface.
type UsageMeterFunc func(u Usage)

// RecordUsage calls f(u).
func (f UsageMeterFunc) RecordUsage(u Usage) { f(u) }
