package turnkit

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a turn in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry in a conversation's history. Exactly one of Text,
// Invocation, or Outcome carries the content:
//
//   - system/user/assistant turns carry Text,
//   - assistant turns may instead carry an Invocation,
//   - tool turns always carry an Outcome.
//
// Turns are append-only; the orchestrator is the sole mutator of a
// conversation's turn list.
type Turn struct {
	// ID is a unique identifier for the turn.
	ID string `json:"id"`

	Role Role `json:"role"`

	// Text is the textual content for text-bearing turns.
	Text string `json:"text,omitempty"`

	// Invocation is a tool call requested by the model.
	// Only populated when Role is RoleAssistant.
	Invocation *ToolInvocation `json:"invocation,omitempty"`

	// Outcome is the result of executing an invocation.
	// Only populated when Role is RoleTool.
	Outcome *ToolOutcome `json:"outcome,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// GenerateTurnID creates a unique turn identifier.
func GenerateTurnID() string {
	return "turn-" + uuid.New().String()
}

// NewUserTurn creates a user turn with the given text.
func NewUserTurn(text string) Turn {
	return Turn{ID: GenerateTurnID(), Role: RoleUser, Text: text, Timestamp: time.Now()}
}

// NewAssistantTurn creates an assistant turn with the given text.
func NewAssistantTurn(text string) Turn {
	return Turn{ID: GenerateTurnID(), Role: RoleAssistant, Text: text, Timestamp: time.Now()}
}

// NewInvocationTurn creates an assistant turn carrying a tool invocation.
func NewInvocationTurn(inv ToolInvocation) Turn {
	return Turn{ID: GenerateTurnID(), Role: RoleAssistant, Invocation: &inv, Timestamp: time.Now()}
}

// NewOutcomeTurn creates a tool turn carrying an execution outcome.
func NewOutcomeTurn(out ToolOutcome) Turn {
	return Turn{ID: GenerateTurnID(), Role: RoleTool, Outcome: &out, Timestamp: time.Now()}
}

// Usage contains token accounting for one model turn.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// Add accumulates another usage record into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}
