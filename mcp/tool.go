// Package mcp bridges the tool catalog and the Model Context Protocol in
// both directions:
//
//   - Server: expose a tool.Registry as an MCP server so MCP clients can
//     discover and call the catalog's tools.
//   - Client: connect to MCP servers and register their tools into a
//     catalog, so the orchestrator can invoke them like local tools.
package mcp

import (
	"encoding/json"
	"strings"

	turnkit "github.com/stephencalder/turnkit"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToMCPTool converts a catalog tool descriptor to an MCP tool. The
// Parameters JSON schema is used as the MCP tool's raw input schema.
func ToMCPTool(t turnkit.Tool) mcp.Tool {
	return mcp.NewToolWithRawSchema(t.Name, t.Description, t.Parameters)
}

// FromMCPTool converts an MCP tool to a catalog descriptor. Remote tools
// default to requiring confirmation: the catalog has no visibility into
// what a remote server's tool does.
func FromMCPTool(t mcp.Tool) turnkit.Tool {
	var schema json.RawMessage
	if len(t.RawInputSchema) > 0 {
		schema = t.RawInputSchema
	} else if data, err := json.Marshal(t.InputSchema); err == nil {
		schema = data
	}

	return turnkit.Tool{
		Name:                 t.Name,
		Description:          t.Description,
		Parameters:           schema,
		ConfirmationRequired: true,
	}
}

// ToCallToolRequest converts an invocation to an MCP call request.
func ToCallToolRequest(inv turnkit.ToolInvocation) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      inv.Name,
			Arguments: inv.Arguments,
		},
	}
}

// TextFromResult extracts the text content of an MCP call result,
// concatenating text parts and marshaling anything else as JSON.
func TextFromResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	var parts []string
	for _, c := range result.Content {
		switch content := c.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		default:
			if data, err := json.Marshal(content); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	if result.StructuredContent != nil {
		if data, err := json.Marshal(result.StructuredContent); err == nil {
			parts = append(parts, string(data))
		}
	}
	return strings.Join(parts, "\n")
}
