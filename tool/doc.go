// Package tool holds the catalog of executable tools and the gateway that
// runs invocations.
//
// A Registry maps tool names to descriptors and handlers. Tools are
// declared with plain handlers or bound from typed functions, with their
// parameter schemas generated from struct tags:
//
//	registry := tool.NewRegistry()
//	tool.MustBindTo(registry, "clock", "Get the current time",
//	    func(ctx context.Context, args ClockArgs) (string, error) {
//	        return time.Now().Format(time.RFC3339), nil
//	    })
//
// The Gateway executes a complete invocation against the registry and
// normalizes the result into a ToolOutcome. Failures never escape to the
// caller as errors; they become error outcomes that flow back into the
// conversation so the model can react to them. Permission-related failures
// (handlers wrapping turnkit.ErrPermissionDenied) are classified
// separately from generic execution errors.
package tool
