package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	turnkit "github.com/stephencalder/turnkit"
	"github.com/stephencalder/turnkit/tool"
)

// ClockArgs are the arguments for the clock tool.
type ClockArgs struct {
	Timezone string `json:"timezone" desc:"IANA timezone name, e.g. America/New_York. Defaults to the configured timezone."`
	Format   string `json:"format" desc:"Go time layout string. Defaults to RFC3339."`
}

// CalculatorArgs are the arguments for the calculator tool.
type CalculatorArgs struct {
	Operation string  `json:"operation" desc:"Arithmetic operation to perform" enum:"add,subtract,multiply,divide,power" required:"true"`
	A         float64 `json:"a" desc:"First operand" required:"true"`
	B         float64 `json:"b" desc:"Second operand" required:"true"`
}

// WriteFileArgs are the arguments for the write_file tool.
type WriteFileArgs struct {
	Path    string `json:"path" desc:"File path relative to the working directory" required:"true"`
	Content string `json:"content" desc:"Content to write" required:"true"`
}

// buildRegistry assembles the demo tool catalog. The write_file tool is
// gated behind user confirmation since it mutates the filesystem.
func buildRegistry() *tool.Registry {
	registry := tool.NewRegistry()

	registry.MustRegister(tool.MustBind[ClockArgs](
		"clock",
		"Get the current date and time.",
		clockHandler,
	))

	registry.MustRegister(tool.MustBind[CalculatorArgs](
		"calculator",
		"Perform basic arithmetic on two numbers.",
		calculatorHandler,
	))

	writeFile, writeHandler := tool.MustBind[WriteFileArgs](
		"write_file",
		"Write content to a file in the working directory.",
		writeFileHandler,
	)
	writeFile.ConfirmationRequired = true
	registry.MustRegister(writeFile, writeHandler)

	return registry
}

func clockHandler(ctx context.Context, args ClockArgs) (string, error) {
	tz := args.Timezone
	format := args.Format

	if settings := tool.SettingsFromContext(ctx); settings != nil {
		if tz == "" {
			tz = settings.GetString("clock.timezone")
		}
		if format == "" {
			format = settings.GetString("clock.format")
		}
	}
	if format == "" {
		format = time.RFC3339
	}

	now := time.Now()
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
		}
		now = now.In(loc)
	}
	return now.Format(format), nil
}

func calculatorHandler(_ context.Context, args CalculatorArgs) (string, error) {
	var result float64
	switch args.Operation {
	case "add":
		result = args.A + args.B
	case "subtract":
		result = args.A - args.B
	case "multiply":
		result = args.A * args.B
	case "divide":
		if args.B == 0 {
			return "", fmt.Errorf("division by zero")
		}
		result = args.A / args.B
	case "power":
		result = math.Pow(args.A, args.B)
	default:
		return "", fmt.Errorf("unknown operation %q", args.Operation)
	}
	return fmt.Sprintf("%g", result), nil
}

func writeFileHandler(_ context.Context, args WriteFileArgs) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	target := filepath.Clean(filepath.Join(cwd, args.Path))
	if target != cwd && !strings.HasPrefix(target, cwd+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the working directory: %w", args.Path, turnkit.ErrPermissionDenied)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, []byte(args.Content), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(args.Content), args.Path), nil
}
