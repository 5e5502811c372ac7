package tool

import (
	"context"
	"encoding/json"

	turnkit "github.com/stephencalder/turnkit"
)

// Bind creates a tool descriptor and handler from a typed function. The
// JSON schema for the tool's parameters is generated from struct tags on T.
//
//	type TranslateArgs struct {
//	    Text string `json:"text" desc:"Text to translate" required:"true"`
//	    To   string `json:"to" desc:"Target language" required:"true"`
//	}
//
//	t, h, err := tool.Bind("translate", "Translate text between languages",
//	    func(ctx context.Context, args TranslateArgs) (string, error) {
//	        return translated, nil
//	    })
func Bind[T any](name, description string, fn TypedHandler[T]) (turnkit.Tool, Handler, error) {
	schema, err := turnkit.SchemaFor[T]()
	if err != nil {
		return turnkit.Tool{}, nil, err
	}

	t := turnkit.Tool{
		Name:        name,
		Description: description,
		Parameters:  schema,
	}

	handler := func(ctx context.Context, inv turnkit.ToolInvocation) (string, error) {
		args, err := decodeArgs[T](inv)
		if err != nil {
			return "", err
		}
		return fn(ctx, args)
	}

	return t, handler, nil
}

// MustBind is like Bind but panics on error. Useful in initialization code
// where a bad tool definition should be fatal.
func MustBind[T any](name, description string, fn TypedHandler[T]) (turnkit.Tool, Handler) {
	t, h, err := Bind(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t, h
}

// BindTo creates a tool from a typed function and registers it directly.
func BindTo[T any](r *Registry, name, description string, fn TypedHandler[T]) error {
	t, h, err := Bind(name, description, fn)
	if err != nil {
		return err
	}
	return r.Register(t, h)
}

// MustBindTo is like BindTo but panics on error.
func MustBindTo[T any](r *Registry, name, description string, fn TypedHandler[T]) {
	if err := BindTo(r, name, description, fn); err != nil {
		panic(err)
	}
}

// decodeArgs unmarshals an invocation's arguments into T. The raw streamed
// text is preferred when present; the decoded map is a fallback for
// invocations constructed programmatically.
func decodeArgs[T any](inv turnkit.ToolInvocation) (T, error) {
	var args T

	raw := []byte(inv.RawArguments)
	if len(raw) == 0 {
		var err error
		raw, err = json.Marshal(inv.Arguments)
		if err != nil {
			return args, err
		}
	}

	if err := json.Unmarshal(raw, &args); err != nil {
		return args, err
	}
	return args, nil
}
