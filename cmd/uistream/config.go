package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// config is the server configuration. It is read from an optional YAML
	// file and then overridden by command line flags.
	config struct {
		HTTP      httpConfig      `yaml:"http"`
		Agent     agentConfig     `yaml:"agent"`
		Anthropic anthropicConfig `yaml:"anthropic"`
		Redis     redisConfig     `yaml:"redis"`
		Limits    limitsConfig    `yaml:"limits"`
	}

	httpConfig struct {
		Addr              string        `yaml:"addr"`
		ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	}

	agentConfig struct {
		// Backend is "echo" or "anthropic".
		Backend string `yaml:"backend"`
	}

	anthropicConfig struct {
		Model          string  `yaml:"model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
		ThinkingBudget int64   `yaml:"thinking_budget"`
		System         string  `yaml:"system"`
		// APIKey is normally left empty and read from ANTHROPIC_API_KEY.
		APIKey string `yaml:"api_key"`
		// Tools must list every tool that appears in client histories.
		Tools []toolConfig `yaml:"tools"`
	}

	toolConfig struct {
		Name        string         `yaml:"name"`
		Description string         `yaml:"description"`
		InputSchema map[string]any `yaml:"input_schema"`
	}

	redisConfig struct {
		// Addr enables the Pulse stream mirror when set.
		Addr         string `yaml:"addr"`
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		StreamMaxLen int    `yaml:"stream_max_len"`
		// Retention is how long a mirrored stream stays readable after the
		// response ends.
		Retention time.Duration `yaml:"retention"`
	}

	limitsConfig struct {
		// RequestsPerSecond bounds chat request admission. Zero disables it.
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		// TokensPerMinute enables the adaptive agent limiter when positive.
		TokensPerMinute    float64 `yaml:"tokens_per_minute"`
		MaxTokensPerMinute float64 `yaml:"max_tokens_per_minute"`
	}
)

const (
	backendEcho      = "echo"
	backendAnthropic = "anthropic"
)

func defaultConfig() config {
	return config{
		HTTP:      httpConfig{Addr: "localhost:8080", ReadHeaderTimeout: 60 * time.Second},
		Agent:     agentConfig{Backend: backendEcho},
		Anthropic: anthropicConfig{Model: "claude-sonnet-4-5", MaxTokens: 4096},
		Redis:     redisConfig{Retention: 10 * time.Minute},
		Limits:    limitsConfig{RequestsPerSecond: 5, Burst: 10},
	}
}

// loadConfig returns the defaults overlaid with the YAML file at path, if
// any. Unknown keys are rejected.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

func (c config) validate() error {
	switch c.Agent.Backend {
	case backendEcho:
	case backendAnthropic:
		if c.Anthropic.APIKey == "" {
			return errors.New("anthropic backend requires ANTHROPIC_API_KEY")
		}
	default:
		return fmt.Errorf("unknown agent backend %q", c.Agent.Backend)
	}
	if c.HTTP.Addr == "" {
		return errors.New("http address is required")
	}
	if c.Limits.RequestsPerSecond < 0 || c.Limits.TokensPerMinute < 0 {
		return errors.New("limits must not be negative")
	}
	if c.Redis.Retention < 0 {
		return errors.New("redis retention must not be negative")
	}
	return nil
}

// override applies the non-empty command line values.
func (c *config) override(addr, backend, model, redisAddr string) {
	if addr != "" {
		c.HTTP.Addr = addr
	}
	if backend != "" {
		c.Agent.Backend = backend
	}
	if model != "" {
		c.Anthropic.Model = model
	}
	if redisAddr != "" {
		c.Redis.Addr = redisAddr
	}
}
