// ABOUTME: Configuration loading and parsing for pharma-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pharma-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Agent    AgentConfig    `yaml:"agent"`
	Sessions SessionsConfig `yaml:"sessions"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// CatalogConfig holds pharmacy catalog source configuration.
// The catalog is either a remote HTTP API (base_url) or a local
// SQLite database (database_path). When both are set the database wins.
type CatalogConfig struct {
	BaseURL      string `yaml:"base_url"`
	DatabasePath string `yaml:"database_path"`
	RetryCount   int    `yaml:"retry_count"`

	Timeout    time.Duration `yaml:"-"`
	RetryDelay time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TimeoutRaw    string `yaml:"timeout"`
	RetryDelayRaw string `yaml:"retry_delay"`
}

// AgentConfig holds LLM collaborator configuration
type AgentConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	APIBase     string  `yaml:"api_base"`
	APIKeyEnv   string  `yaml:"api_key_env"`
}

// SessionsConfig holds session memory timing configuration
type SessionsConfig struct {
	Timeout       time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TimeoutRaw       string `yaml:"timeout"`
	SweepIntervalRaw string `yaml:"sweep_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Catalog.BaseURL == "" && c.Catalog.DatabasePath == "" {
		return fmt.Errorf("catalog.base_url or catalog.database_path is required")
	}

	if c.Sessions.Timeout <= 0 {
		return fmt.Errorf("sessions.timeout must be positive")
	}

	return nil
}

// applyDefaults fills in values for fields the config file omitted.
func applyDefaults(cfg *Config) {
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 30 * time.Second
	}
	if cfg.Catalog.RetryCount == 0 {
		cfg.Catalog.RetryCount = 3
	}
	if cfg.Catalog.RetryDelay == 0 {
		cfg.Catalog.RetryDelay = time.Second
	}
	if cfg.Sessions.Timeout == 0 {
		cfg.Sessions.Timeout = 30 * time.Minute
	}
	if cfg.Sessions.SweepInterval == 0 {
		cfg.Sessions.SweepInterval = time.Minute
	}
	if cfg.Agent.Model == "" {
		cfg.Agent.Model = "gpt-4o-mini"
	}
	if cfg.Agent.MaxTokens == 0 {
		cfg.Agent.MaxTokens = 500
	}
	if cfg.Agent.APIKeyEnv == "" {
		cfg.Agent.APIKeyEnv = "OPENAI_API_KEY"
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Catalog.TimeoutRaw != "" {
		cfg.Catalog.Timeout, err = time.ParseDuration(cfg.Catalog.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing catalog.timeout %q: %w", cfg.Catalog.TimeoutRaw, err)
		}
	}

	if cfg.Catalog.RetryDelayRaw != "" {
		cfg.Catalog.RetryDelay, err = time.ParseDuration(cfg.Catalog.RetryDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing catalog.retry_delay %q: %w", cfg.Catalog.RetryDelayRaw, err)
		}
	}

	if cfg.Sessions.TimeoutRaw != "" {
		cfg.Sessions.Timeout, err = time.ParseDuration(cfg.Sessions.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing sessions.timeout %q: %w", cfg.Sessions.TimeoutRaw, err)
		}
	}

	if cfg.Sessions.SweepIntervalRaw != "" {
		cfg.Sessions.SweepInterval, err = time.ParseDuration(cfg.Sessions.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing sessions.sweep_interval %q: %w", cfg.Sessions.SweepIntervalRaw, err)
		}
	}

	return nil
}
