package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the chat CLI configuration, loaded from environment
// variables with an optional YAML profile layered on top.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
	MaxSteps   int
	Timeout    time.Duration
	LogLevel   string
	Transcript string

	// Profile-provided fields.
	SystemPrompt string
	ConfirmTools []string
	Settings     map[string]any
}

// Profile is the YAML profile file shape (TURNKIT_PROFILE).
type Profile struct {
	Model        string         `yaml:"model"`
	SystemPrompt string         `yaml:"systemPrompt"`
	ConfirmTools []string       `yaml:"confirmTools"`
	Settings     map[string]any `yaml:"settings"`
}

// LoadConfig loads configuration from environment variables.
// It loads a .env file if present (silent fail if not found).
func LoadConfig() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		BaseURL:      getEnvOrDefault("TURNKIT_BASE_URL", ""),
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		Model:        getEnvOrDefault("TURNKIT_MODEL", "gpt-4o-mini"),
		MaxTokens:    getEnvIntOrDefault("TURNKIT_MAX_TOKENS", 0),
		MaxSteps:     getEnvIntOrDefault("TURNKIT_MAX_STEPS", 10),
		Timeout:      getEnvDurationOrDefault("TURNKIT_TIMEOUT", 5*time.Minute),
		LogLevel:     getEnvOrDefault("TURNKIT_LOG_LEVEL", "warn"),
		Transcript:   os.Getenv("TURNKIT_TRANSCRIPT"),
		SystemPrompt: "You are a helpful assistant.",
	}

	if path := os.Getenv("TURNKIT_PROFILE"); path != "" {
		if err := cfg.applyProfile(path); err != nil {
			return nil, err
		}
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return cfg, nil
}

func (c *Config) applyProfile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("profile %s: %w", path, err)
	}

	if p.Model != "" {
		c.Model = p.Model
	}
	if p.SystemPrompt != "" {
		c.SystemPrompt = p.SystemPrompt
	}
	c.ConfirmTools = p.ConfirmTools
	c.Settings = p.Settings
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
