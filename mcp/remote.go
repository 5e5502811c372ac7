package mcp

import (
	"context"
	"fmt"

	turnkit "github.com/stephencalder/turnkit"
	"github.com/stephencalder/turnkit/tool"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Remote is a connection to an MCP server whose tools can be registered
// into a catalog. Calls are proxied over the MCP session.
type Remote struct {
	client *client.Client
	tools  []turnkit.Tool
}

// Connect starts an MCP server as a subprocess and opens a stdio session.
func Connect(ctx context.Context, command string, env []string, args ...string) (*Remote, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("mcp: create client: %w", err)
	}
	return connect(ctx, c)
}

// ConnectSSE opens an SSE session to an already-running MCP server.
func ConnectSSE(ctx context.Context, baseURL string) (*Remote, error) {
	c, err := client.NewSSEMCPClient(baseURL)
	if err != nil {
		return nil, fmt.Errorf("mcp: create SSE client: %w", err)
	}
	return connect(ctx, c)
}

func connect(ctx context.Context, c *client.Client) (*Remote, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("mcp: start client: %w", err)
	}

	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "turnkit-mcp-client",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp: initialize session: %w", err)
	}

	r := &Remote{client: c}
	if err := r.Refresh(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp: list tools: %w", err)
	}
	return r, nil
}

// Close closes the connection to the MCP server.
func (r *Remote) Close() error {
	return r.client.Close()
}

// Refresh fetches the server's current tool list.
func (r *Remote) Refresh(ctx context.Context) error {
	result, err := r.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return err
	}

	tools := make([]turnkit.Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools = append(tools, FromMCPTool(t))
	}
	r.tools = tools
	return nil
}

// Tools returns the descriptors fetched from the server.
func (r *Remote) Tools() []turnkit.Tool {
	out := make([]turnkit.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Execute proxies one invocation to the remote server.
func (r *Remote) Execute(ctx context.Context, inv turnkit.ToolInvocation) (string, error) {
	result, err := r.client.CallTool(ctx, ToCallToolRequest(inv))
	if err != nil {
		return "", err
	}
	text := TextFromResult(result)
	if result != nil && result.IsError {
		return "", fmt.Errorf("mcp: %s", text)
	}
	return text, nil
}

// RegisterInto adds every remote tool to the catalog, proxying execution
// through this connection.
func (r *Remote) RegisterInto(registry *tool.Registry) error {
	for _, t := range r.tools {
		handler := func(ctx context.Context, inv turnkit.ToolInvocation) (string, error) {
			return r.Execute(ctx, inv)
		}
		if err := registry.Register(t, handler); err != nil {
			return err
		}
	}
	return nil
}
