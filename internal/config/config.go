// Package config loads the studyscout configuration from a YAML file
// with ${VAR} environment substitution.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything the studyscout binary needs to run.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	UI     UIConfig     `yaml:"ui"`
}

// ServerConfig describes the chat-history backend.
type ServerConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	// TimeoutSec bounds ordinary API calls.
	TimeoutSec int `yaml:"timeout_sec"`
	// SummarizeTimeoutSec bounds AI summarization, which runs through
	// an LLM server-side and can take much longer.
	SummarizeTimeoutSec int `yaml:"summarize_timeout_sec"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"` // debug, info, warn, error (default: info)
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	NoAltScreen bool `yaml:"no_alt_screen"`
}

// Default returns a config with every default applied and no backend
// credentials.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Server.URL == "" {
		c.Server.URL = "http://localhost:8080"
	}
	if c.Server.TimeoutSec <= 0 {
		c.Server.TimeoutSec = 15
	}
	if c.Server.SummarizeTimeoutSec <= 0 {
		c.Server.SummarizeTimeoutSec = 120
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.Server.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server.url must be an absolute URL, got %q", c.Server.URL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("server.url scheme must be http or https, got %q", parsed.Scheme)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// ok
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
