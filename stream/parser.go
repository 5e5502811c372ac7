package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	turnkit "github.com/stephencalder/turnkit"
)

const (
	dataPrefix    = "data: "
	doneSentinel  = "[DONE]"
	commentPrefix = ":"
)

// Parser incrementally decodes the backend's line-oriented event stream
// ("data: <json>" lines terminated by "data: [DONE]") into typed events.
// It never buffers the full response: each Next call reads just far enough
// to produce one event.
//
// Completion signals (a finish marker, a trailing usage-only payload, the
// [DONE] sentinel, or stream closure) are latched and folded into a single
// EventTurnComplete, emitted exactly once as the final event. This keeps
// the event sequence well-formed even on the include_usage wire shape,
// where usage counters trail the finish marker as their own payload.
type Parser struct {
	scanner *bufio.Scanner

	queue     []Event
	usage     *turnkit.Usage
	finished  bool
	completed bool
	done      bool
}

// NewParser creates a Parser reading from r. The caller retains ownership
// of r and closes it after the parser is exhausted.
func NewParser(r io.Reader) *Parser {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &Parser{scanner: scanner}
}

// Next returns the next event in the stream. It returns io.EOF once the
// stream is exhausted, a *turnkit.TransportError on a read failure, and
// ctx.Err() when ctx is cancelled. Cancellation is checked on every read
// iteration, not only at event boundaries.
//
// Single malformed lines are skipped: the wire is line-delimited and
// isolated corruption must not abort generation.
func (p *Parser) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			p.done = true
			return Event{}, err
		}

		if len(p.queue) > 0 {
			ev := p.queue[0]
			p.queue = p.queue[1:]
			return ev, nil
		}

		if p.done {
			return Event{}, io.EOF
		}

		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				p.done = true
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return Event{}, err
				}
				return Event{}, &turnkit.TransportError{Cause: err}
			}
			// Stream closed without the end sentinel.
			return p.complete()
		}

		line := strings.TrimRight(p.scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		payload := strings.TrimPrefix(line, dataPrefix)
		if payload == doneSentinel {
			return p.complete()
		}

		var ch chunk
		if err := json.Unmarshal([]byte(payload), &ch); err != nil {
			continue
		}
		p.ingest(&ch)
	}
}

// complete emits the single terminal EventTurnComplete and marks the
// parser exhausted.
func (p *Parser) complete() (Event, error) {
	p.done = true
	if p.completed {
		return Event{}, io.EOF
	}
	p.completed = true
	return Event{Type: EventTurnComplete, Usage: p.usage}, nil
}

// ingest translates one decoded payload into queued events and latched
// completion state.
func (p *Parser) ingest(ch *chunk) {
	if ch.Usage != nil {
		p.usage = &turnkit.Usage{
			InputTokens:  ch.Usage.PromptTokens,
			OutputTokens: ch.Usage.CompletionTokens,
			TotalTokens:  ch.Usage.TotalTokens,
		}
	}

	for _, choice := range ch.Choices {
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			p.queue = append(p.queue, Event{Type: EventTextDelta, Text: *choice.Delta.Content})
		}
		for _, tc := range choice.Delta.ToolCalls {
			p.queue = append(p.queue, Event{Type: EventToolCallFragment, Fragment: &Fragment{
				Index:          tc.Index,
				ID:             tc.ID,
				Name:           tc.Function.Name,
				ArgumentsDelta: tc.Function.Arguments,
			}})
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			p.finished = true
		}
	}

	// A finish marker alone may still be followed by a usage-only payload,
	// so the terminal event waits for usage, the sentinel, or closure.
	if p.finished && p.usage != nil && !p.completed {
		p.completed = true
		p.queue = append(p.queue, Event{Type: EventTurnComplete, Usage: p.usage})
	}
}

// Wire shapes for the chat-completions streaming protocol.

type chunk struct {
	Choices []chunkChoice `json:"choices"`
	Usage   *chunkUsage   `json:"usage"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chunkDelta struct {
	Content   *string         `json:"content"`
	ToolCalls []chunkToolCall `json:"tool_calls"`
}

type chunkToolCall struct {
	Index    int           `json:"index"`
	ID       string        `json:"id"`
	Function chunkFunction `json:"function"`
}

type chunkFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chunkUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
