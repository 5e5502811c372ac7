package turnkit

import "encoding/json"

// Tool describes a capability the model may invoke.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string
	// Description explains what the tool does (helps the model decide when to use it).
	Description string
	// Parameters is a JSON Schema object defining the tool's arguments.
	Parameters json.RawMessage
	// ConfirmationRequired marks tools that must clear the confirmation
	// gate before execution. Read-only or pre-approved tools leave it unset.
	ConfirmationRequired bool
}

// ToolInvocation is a fully assembled request from the model to execute a
// tool. It is created by the fragment assembler once a model turn completes
// and is immutable thereafter.
type ToolInvocation struct {
	// ID is a unique identifier for this invocation (used to match outcomes
	// and confirmation decisions).
	ID string `json:"id"`
	// Name is the name of the tool to invoke.
	Name string `json:"name"`
	// Arguments is the decoded argument object. Never nil; empty when the
	// streamed argument text did not parse as a JSON object.
	Arguments map[string]any `json:"arguments"`
	// RawArguments is the argument text exactly as streamed, preserved for
	// replaying the invocation to the backend.
	RawArguments string `json:"rawArguments,omitempty"`
}

// ToolOutcome is the result of executing (or rejecting) an invocation.
type ToolOutcome struct {
	// InvocationID matches the ID of the corresponding ToolInvocation.
	InvocationID string `json:"invocationId"`
	// Content is the result text returned to the model.
	Content string `json:"content"`
	// IsError indicates the outcome represents a failure.
	IsError bool `json:"isError,omitempty"`
	// PermissionDenied is set only when the failure was permission-related.
	// Implies IsError.
	PermissionDenied bool `json:"permissionDenied,omitempty"`
}
