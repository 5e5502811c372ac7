// Command chat is an interactive terminal client for a turnkit
// conversation. It streams assistant text as it arrives, prompts for
// approval when a gated tool is invoked, and reports token usage when
// the session ends.
//
// Configuration comes from environment variables (a .env file is loaded
// if present) and an optional YAML profile pointed to by TURNKIT_PROFILE.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	turnkit "github.com/stephencalder/turnkit"
	"github.com/stephencalder/turnkit/agent"
	"github.com/stephencalder/turnkit/backend/openai"
	"github.com/stephencalder/turnkit/event"
	"github.com/stephencalder/turnkit/store"
	"github.com/stephencalder/turnkit/tool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	registry := buildRegistry()
	applyConfirmOverrides(registry, cfg.ConfirmTools)

	settings := store.NewFrom(cfg.Settings)
	gateway := tool.NewGateway(registry,
		tool.WithSettings(settings),
		tool.WithLogger(logger),
	)

	backendOpts := []openai.Option{openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		backendOpts = append(backendOpts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens > 0 {
		backendOpts = append(backendOpts, openai.WithMaxTokens(cfg.MaxTokens))
	}
	backend := openai.New(cfg.APIKey, backendOpts...)

	meter := &sessionMeter{}

	agentOpts := []agent.Option{
		agent.WithSystemPrompt(cfg.SystemPrompt),
		agent.WithGateway(gateway),
		agent.WithUsageMeter(meter),
		agent.WithLogger(logger),
		agent.WithMaxSteps(cfg.MaxSteps),
	}
	if cfg.Transcript != "" {
		agentOpts = append(agentOpts, agent.WithSink(transcriptSink(cfg.Transcript)))
	}

	orch := agent.New(backend, registry, agentOpts...)

	fmt.Printf("turnkit chat (model %s, tools: %s)\n", cfg.Model, strings.Join(registry.Names(), ", "))
	fmt.Println("Type a message, or /quit to exit. Ctrl+C cancels a running turn.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigCh {
			orch.Cancel()
		}
	}()

	stdin := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !stdin.Scan() {
			break
		}
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}
		if line == "/reset" {
			orch.Reset()
			fmt.Println("(conversation cleared)")
			continue
		}

		events, err := orch.StartTurn(context.Background(), line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		consume(orch, events, stdin)
	}

	total := meter.Total()
	fmt.Printf("\nsession usage: %d input + %d output = %d tokens\n",
		total.InputTokens, total.OutputTokens, total.TotalTokens)
	return nil
}

// consume drains one run's event channel, rendering text and driving the
// confirmation prompt.
func consume(orch *agent.Orchestrator, events <-chan event.Event, stdin *bufio.Scanner) {
	for ev := range events {
		switch ev.Type {
		case event.TextDelta:
			fmt.Print(ev.Delta)

		case event.ConfirmationPending:
			inv := ev.Invocation
			fmt.Printf("\n[tool %s wants to run with %s]\napprove? [y/N] ", inv.Name, formatArgs(*inv))
			approved := false
			if stdin.Scan() {
				answer := strings.ToLower(strings.TrimSpace(stdin.Text()))
				approved = answer == "y" || answer == "yes"
			}
			if approved {
				if err := orch.Confirm(inv.ID); err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
			} else {
				if err := orch.Reject(inv.ID, ""); err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
			}

		case event.InvocationExecuting:
			fmt.Printf("\n[running %s]\n", ev.Invocation.Name)

		case event.OutcomeReceived:
			if ev.Outcome.IsError {
				fmt.Printf("[%s failed: %s]\n", ev.Invocation.Name, ev.Outcome.Content)
			}

		case event.RunError:
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", ev.Err)

		case event.RunCancelled:
			fmt.Println("\n(cancelled)")

		case event.RunEnd:
			fmt.Println()
			if ev.Message != "" {
				fmt.Printf("(%s)\n", ev.Message)
			}
		}
	}
}

// applyConfirmOverrides forces confirmation on the named tools.
func applyConfirmOverrides(registry *tool.Registry, names []string) {
	for _, name := range names {
		reg, ok := registry.Resolve(name)
		if !ok {
			slog.Warn("confirmTools names unknown tool", "tool", name)
			continue
		}
		reg.Tool.ConfirmationRequired = true
		registry.Unregister(name)
		registry.MustRegister(reg.Tool, reg.Handler)
	}
}

func formatArgs(inv turnkit.ToolInvocation) string {
	if inv.RawArguments != "" {
		return inv.RawArguments
	}
	data, err := json.Marshal(inv.Arguments)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// transcriptSink writes the full turn list as JSON after every mutation.
// Losing a write is tolerable for a demo transcript, so errors only log.
func transcriptSink(path string) turnkit.SinkFunc {
	return func(turns []turnkit.Turn) {
		data, err := json.MarshalIndent(turns, "", "  ")
		if err != nil {
			slog.Warn("transcript marshal failed", "error", err)
			return
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			slog.Warn("transcript write failed", "path", path, "error", err)
		}
	}
}

// sessionMeter accumulates token usage across the session.
type sessionMeter struct {
	mu    sync.Mutex
	total turnkit.Usage
}

func (m *sessionMeter) RecordUsage(u turnkit.Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total.Add(u)
}

func (m *sessionMeter) Total() turnkit.Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
