package tool

import (
	"context"

	turnkit "github.com/stephencalder/turnkit"
)

// Handler executes a tool invocation and returns the result text. The
// context supports cancellation and timeout. Returning an error marks the
// outcome as failed; wrap turnkit.ErrPermissionDenied for permission
// failures so the gateway classifies them accordingly.
type Handler func(ctx context.Context, inv turnkit.ToolInvocation) (string, error)

// TypedHandler executes an invocation whose arguments have been unmarshaled
// into T.
type TypedHandler[T any] func(ctx context.Context, args T) (string, error)
