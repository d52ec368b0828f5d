// Package config holds all docjudge configuration. Config is loaded from a
// YAML file, overlaid with environment variables, and handed to components
// as plain values; nothing below the CLI reads ambient state.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Docs    DocsConfig    `yaml:"docs"`
	Rules   RulesConfig   `yaml:"rules"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
	History HistoryConfig `yaml:"history"`
}

// DocsConfig selects the documents to evaluate.
type DocsConfig struct {
	Roots      []string `yaml:"roots"`
	Extensions []string `yaml:"extensions"`
}

// RulesConfig locates the rule documents.
type RulesConfig struct {
	Dir string `yaml:"dir"`
}

// OracleConfig configures the LLM transport.
type OracleConfig struct {
	Provider string `yaml:"provider"` // gemini, anthropic
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"` // Go duration string
}

// EngineConfig bounds the evaluation engine.
type EngineConfig struct {
	FileConcurrency int `yaml:"file_concurrency"`
	RuleConcurrency int `yaml:"rule_concurrency"`
	MaxAttempts     int `yaml:"max_attempts"`
	BackoffBaseMS   int `yaml:"backoff_base_ms"`
	BackoffJitterMS int `yaml:"backoff_jitter_ms"`
}

// LoggingConfig configures the zap sink.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// HistoryConfig enables the run-history store when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Docs: DocsConfig{
			Roots:      []string{"."},
			Extensions: []string{".md"},
		},
		Rules: RulesConfig{
			Dir: "rules",
		},
		Oracle: OracleConfig{
			Provider: "gemini",
		},
		Engine: EngineConfig{
			FileConcurrency: 100,
			RuleConcurrency: 50,
			MaxAttempts:     3,
			BackoffBaseMS:   300,
			BackoffJitterMS: 200,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads the config file at path, falling back to defaults when path
// is empty or missing, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overlays environment variables. Provider API keys set
// the provider only when the config did not choose one explicitly; an
// explicit DOCJUDGE_PROVIDER always wins.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.Oracle.APIKey == "" {
		c.Oracle.APIKey = key
		if c.Oracle.Provider == "" {
			c.Oracle.Provider = "gemini"
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && c.Oracle.APIKey == "" {
		c.Oracle.APIKey = key
		if c.Oracle.Provider == "" || c.Oracle.Provider == "gemini" {
			c.Oracle.Provider = "anthropic"
		}
	}
	if v := os.Getenv("DOCJUDGE_PROVIDER"); v != "" {
		c.Oracle.Provider = v
	}
	if v := os.Getenv("DOCJUDGE_API_KEY"); v != "" {
		c.Oracle.APIKey = v
	}
	if v := os.Getenv("DOCJUDGE_MODEL"); v != "" {
		c.Oracle.Model = v
	}
	if v := os.Getenv("DOCJUDGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DOCJUDGE_HISTORY"); v != "" {
		c.History.Path = v
	}
}

func (c *Config) validate() error {
	if c.Engine.FileConcurrency < 1 {
		return fmt.Errorf("engine.file_concurrency must be >= 1, got %d", c.Engine.FileConcurrency)
	}
	if c.Engine.RuleConcurrency < 1 {
		return fmt.Errorf("engine.rule_concurrency must be >= 1, got %d", c.Engine.RuleConcurrency)
	}
	if c.Engine.MaxAttempts < 1 {
		return fmt.Errorf("engine.max_attempts must be >= 1, got %d", c.Engine.MaxAttempts)
	}
	if c.Oracle.Timeout != "" {
		if _, err := time.ParseDuration(c.Oracle.Timeout); err != nil {
			return fmt.Errorf("oracle.timeout is not a valid duration: %w", err)
		}
	}
	return nil
}

// OracleTimeout returns the parsed oracle timeout, or zero when unset.
func (c *Config) OracleTimeout() time.Duration {
	if c.Oracle.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Oracle.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// BackoffBase returns the retry backoff base as a duration.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Engine.BackoffBaseMS) * time.Millisecond
}

// BackoffJitter returns the retry backoff jitter as a duration.
func (c *Config) BackoffJitter() time.Duration {
	return time.Duration(c.Engine.BackoffJitterMS) * time.Millisecond
}
