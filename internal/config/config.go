// Package config loads the banking assistant configuration from a YAML file
// with environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Banking BankingConfig `yaml:"banking"`
	Prompts PromptsConfig `yaml:"prompts"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// LLMConfig configures the model provider. Provider credentials come from
// the environment (ANTHROPIC_API_KEY, OPENAI_API_KEY, OLLAMA_HOST) and are
// read by the provider layer, never from this file.
type LLMConfig struct {
	// Model may carry a provider prefix, e.g. "anthropic/claude-sonnet-4-5"
	// or "ollama/llama3".
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// BankingConfig configures the middleware backend client.
type BankingConfig struct {
	// Mode selects the backend: "mock" or "real".
	Mode      string   `yaml:"mode"`
	BaseURL   string   `yaml:"base_url"`
	Secret    string   `yaml:"secret"`
	ChannelID string   `yaml:"channel_id"`
	Timeout   Duration `yaml:"timeout"`
}

// PromptsConfig configures system prompt loading.
type PromptsConfig struct {
	Dir     string   `yaml:"dir"`
	Domains []string `yaml:"domains"`
}

// SessionConfig configures session lifecycle behavior.
type SessionConfig struct {
	AuthTTL Duration `yaml:"auth_ttl"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ShutdownTimeout: Duration(10 * time.Second),
		},
		LLM: LLMConfig{
			Model:     "anthropic/claude-sonnet-4-5",
			MaxTokens: 1024,
		},
		Banking: BankingConfig{
			Mode:      "mock",
			ChannelID: "102",
			Timeout:   Duration(30 * time.Second),
		},
		Prompts: PromptsConfig{
			Dir:     "config/prompts",
			Domains: []string{"account", "authentication", "mobile"},
		},
		Session: SessionConfig{
			AuthTTL: Duration(15 * time.Minute),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, layered over the defaults, then applies
// environment overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays secret material from the environment. Secrets belong in
// the environment, not in the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("BANKING_API_SECRET"); v != "" {
		c.Banking.Secret = v
	}
	if v := os.Getenv("BANKING_API_URL"); v != "" {
		c.Banking.BaseURL = v
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	}
	switch c.Banking.Mode {
	case "mock":
	case "real":
		if c.Banking.BaseURL == "" {
			return fmt.Errorf("banking.base_url is required in real mode")
		}
		if c.Banking.Secret == "" {
			return fmt.Errorf("banking.secret is required in real mode (set BANKING_API_SECRET)")
		}
	default:
		return fmt.Errorf("banking.mode must be \"mock\" or \"real\", got %q", c.Banking.Mode)
	}
	if c.Session.AuthTTL <= 0 {
		return fmt.Errorf("session.auth_ttl must be positive")
	}
	return nil
}
