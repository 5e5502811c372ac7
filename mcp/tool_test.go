package mcp

import (
	"encoding/json"
	"testing"

	turnkit "github.com/stephencalder/turnkit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMCPTool(t *testing.T) {
	in := turnkit.Tool{
		Name:        "search",
		Description: "Search the web",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`),
	}

	out := ToMCPTool(in)
	assert.Equal(t, "search", out.Name)
	assert.Equal(t, "Search the web", out.Description)
	assert.JSONEq(t, string(in.Parameters), string(out.RawInputSchema))
}

func TestFromMCPToolDefaultsToConfirmation(t *testing.T) {
	in := mcp.Tool{
		Name:           "remote_thing",
		Description:    "A remote tool",
		RawInputSchema: json.RawMessage(`{"type":"object"}`),
	}

	out := FromMCPTool(in)
	assert.Equal(t, "remote_thing", out.Name)
	assert.True(t, out.ConfirmationRequired)
	assert.JSONEq(t, `{"type":"object"}`, string(out.Parameters))
}

func TestToCallToolRequest(t *testing.T) {
	req := ToCallToolRequest(turnkit.ToolInvocation{
		ID:        "call_1",
		Name:      "search",
		Arguments: map[string]any{"q": "golang"},
	})

	assert.Equal(t, "search", req.Params.Name)
	args, ok := req.Params.Arguments.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "golang", args["q"])
}

func TestTextFromResult(t *testing.T) {
	assert.Empty(t, TextFromResult(nil))

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: "line one"},
			mcp.TextContent{Type: "text", Text: "line two"},
		},
	}
	assert.Equal(t, "line one\nline two", TextFromResult(result))
}

func TestTextFromResultStructured(t *testing.T) {
	result := &mcp.CallToolResult{
		StructuredContent: map[string]any{"count": 2},
	}
	assert.JSONEq(t, `{"count":2}`, TextFromResult(result))
}
