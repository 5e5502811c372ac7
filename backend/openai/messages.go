package openai

import (
	"encoding/json"

	turnkit "github.com/stephencalder/turnkit"
)

// Request wire shapes for the chat-completions endpoint.

type request struct {
	Model         string         `json:"model"`
	Messages      []wireMessage  `json:"messages"`
	Tools         []wireTool     `json:"tools,omitempty"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireToolSpec `json:"function"`
}

type wireToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// toWireMessages maps the turn history onto chat-completions messages.
// Adjacent assistant invocation turns collapse into a single assistant
// message carrying multiple tool_calls, which is what the wire expects when
// one model turn requested several tools.
func toWireMessages(systemPrompt string, turns []turnkit.Turn) []wireMessage {
	messages := make([]wireMessage, 0, len(turns)+1)
	if systemPrompt != "" {
		messages = append(messages, wireMessage{Role: "system", Content: systemPrompt})
	}

	for i := 0; i < len(turns); i++ {
		t := turns[i]
		switch {
		case t.Role == turnkit.RoleAssistant && t.Invocation != nil:
			msg := wireMessage{Role: "assistant"}
			for ; i < len(turns) && turns[i].Role == turnkit.RoleAssistant && turns[i].Invocation != nil; i++ {
				msg.ToolCalls = append(msg.ToolCalls, toWireToolCall(*turns[i].Invocation))
			}
			i--
			messages = append(messages, msg)

		case t.Role == turnkit.RoleTool && t.Outcome != nil:
			messages = append(messages, wireMessage{
				Role:       "tool",
				Content:    t.Outcome.Content,
				ToolCallID: t.Outcome.InvocationID,
			})

		default:
			messages = append(messages, wireMessage{Role: string(t.Role), Content: t.Text})
		}
	}
	return messages
}

func toWireToolCall(inv turnkit.ToolInvocation) wireToolCall {
	args := inv.RawArguments
	if args == "" {
		if data, err := json.Marshal(inv.Arguments); err == nil {
			args = string(data)
		} else {
			args = "{}"
		}
	}
	return wireToolCall{
		ID:   inv.ID,
		Type: "function",
		Function: wireFunction{
			Name:      inv.Name,
			Arguments: args,
		},
	}
}

func toWireTools(tools []turnkit.Tool) []wireTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, wireTool{
			Type: "function",
			Function: wireToolSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
