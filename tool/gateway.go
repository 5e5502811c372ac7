package tool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	turnkit "github.com/stephencalder/turnkit"
	"github.com/stephencalder/turnkit/store"
)

// Gateway executes complete invocations against the catalog and normalizes
// every outcome: unknown tools, handler failures, and permission denials
// all come back as ToolOutcome values, never as errors to the caller. The
// model reacts to failed outcomes in the next generation cycle, which is
// the dominant recovery strategy throughout the core.
//
// The gateway does not prompt for confirmation; it trusts the
// orchestrator's gating decision. It also does not retry: retry policy,
// if any, belongs to the tool implementation.
type Gateway struct {
	registry *Registry
	settings *store.Store
	logger   *slog.Logger
	timeout  time.Duration
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithHandlerTimeout sets a per-invocation timeout. Default is 30 seconds;
// zero disables it.
func WithHandlerTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// WithSettings attaches a settings store that handlers can read through
// SettingsFromContext. Caller-wide defaults influencing tool behavior are
// passed here explicitly rather than read from ambient globals.
func WithSettings(s *store.Store) GatewayOption {
	return func(g *Gateway) {
		g.settings = s
	}
}

// WithLogger sets the structured logger. Default is slog.Default().
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = l
	}
}

// NewGateway creates a Gateway over the given catalog.
func NewGateway(registry *Registry, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		registry: registry,
		logger:   slog.Default(),
		timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Execute runs one invocation and returns its outcome. It always completes;
// all failure is encoded in the outcome.
func (g *Gateway) Execute(ctx context.Context, inv turnkit.ToolInvocation) turnkit.ToolOutcome {
	reg, ok := g.registry.Resolve(inv.Name)
	if !ok {
		g.logger.Warn("unknown tool invoked", "tool", inv.Name, "invocation", inv.ID)
		return turnkit.ToolOutcome{
			InvocationID: inv.ID,
			Content:      fmt.Sprintf("Unknown tool: %s", inv.Name),
			IsError:      true,
		}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if g.settings != nil {
		ctx = ContextWithSettings(ctx, g.settings)
	}

	start := time.Now()
	content, err := reg.Handler(ctx, inv)
	elapsed := time.Since(start)

	if err != nil {
		denied := turnkit.IsPermissionDenied(err)
		g.logger.Warn("tool execution failed",
			"tool", inv.Name, "invocation", inv.ID,
			"elapsed", elapsed, "permission_denied", denied, "error", err)
		return turnkit.ToolOutcome{
			InvocationID:     inv.ID,
			Content:          err.Error(),
			IsError:          true,
			PermissionDenied: denied,
		}
	}

	g.logger.Debug("tool executed", "tool", inv.Name, "invocation", inv.ID, "elapsed", elapsed)
	return turnkit.ToolOutcome{
		InvocationID: inv.ID,
		Content:      content,
	}
}

type settingsKey struct{}

// ContextWithSettings returns a context carrying the settings store.
func ContextWithSettings(ctx context.Context, s *store.Store) context.Context {
	return context.WithValue(ctx, settingsKey{}, s)
}

// SettingsFromContext retrieves the settings store attached by the gateway,
// or nil when none was configured.
func SettingsFromContext(ctx context.Context) *store.Store {
	if v := ctx.Value(settingsKey{}); v != nil {
		return v.(*store.Store)
	}
	return nil
}
