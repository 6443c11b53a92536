// Package config loads the gateway's runtime configuration from a YAML file
// with FIELDLINE_* environment overrides. The loaded value is immutable by
// convention: it is built once in main and passed into constructors, never
// consulted through a global.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the root runtime configuration.
type Config struct {
	Gateway   GatewayConfig   `koanf:"gateway"`
	Provider  ProviderConfig  `koanf:"provider"`
	Limits    LimitsConfig    `koanf:"limits"`
	Session   SessionConfig   `koanf:"session"`
	Dialog    DialogConfig    `koanf:"dialog"`
	Directory DirectoryConfig `koanf:"directory"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// GatewayConfig configures the webhook HTTP listener.
type GatewayConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// ProviderConfig configures both webhook source validation and the outbound
// send API.
type ProviderConfig struct {
	// ProductID and PhoneID must match the declared identifiers on every
	// inbound webhook; mismatches are dropped as unauthorized.
	ProductID string `koanf:"product_id"`
	PhoneID   string `koanf:"phone_id"`

	SendURL string `koanf:"send_url"`
	APIKey  string `koanf:"api_key"`
}

// LimitsConfig configures per-sender rate limiting.
type LimitsConfig struct {
	MaxMessages   int `koanf:"max_messages"`
	WindowSeconds int `koanf:"window_seconds"`
}

// Window returns the configured window length.
func (c LimitsConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// SessionConfig configures conversation session lifetime.
type SessionConfig struct {
	TTLSeconds int `koanf:"ttl_seconds"`
}

// TTL returns the configured session lifetime.
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// DialogConfig configures the recognized keyword sets and the alias table.
type DialogConfig struct {
	DataRequestKeywords []string          `koanf:"data_request_keywords"`
	HelpKeywords        []string          `koanf:"help_keywords"`
	CancelKeywords      []string          `koanf:"cancel_keywords"`
	Aliases             map[string]string `koanf:"aliases"`
}

// DirectoryConfig configures the SQLite directory adapter.
type DirectoryConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `koanf:"format"`
	Level     string `koanf:"level"`
	AddSource bool   `koanf:"add_source"`
}

// Default returns the configuration shipped when the file is silent.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{Host: "0.0.0.0", Port: 8790},
		Limits:  LimitsConfig{MaxMessages: 10, WindowSeconds: 300},
		Session: SessionConfig{TTLSeconds: 600},
		Directory: DirectoryConfig{
			Path: filepath.Join("data", "directory.db"),
		},
		Logging: LoggingConfig{Format: "text", Level: "info"},
	}
}

// Validate checks the fields the gateway cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Provider.ProductID) == "" {
		return fmt.Errorf("provider.product_id is required")
	}
	if strings.TrimSpace(c.Provider.PhoneID) == "" {
		return fmt.Errorf("provider.phone_id is required")
	}
	if strings.TrimSpace(c.Provider.SendURL) == "" {
		return fmt.Errorf("provider.send_url is required")
	}
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		return fmt.Errorf("provider.api_key is required")
	}
	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("gateway.port %d is out of range", c.Gateway.Port)
	}
	if c.Limits.MaxMessages < 0 {
		return fmt.Errorf("limits.max_messages must be non-negative")
	}
	if c.Limits.WindowSeconds < 0 {
		return fmt.Errorf("limits.window_seconds must be non-negative")
	}
	if c.Session.TTLSeconds < 0 {
		return fmt.Errorf("session.ttl_seconds must be non-negative")
	}
	return nil
}

// FindPath resolves the active config file location.
//
// Precedence is FIELDLINE_CONFIG first, then cwd-local fallback paths. An
// empty string with nil error means no file exists and defaults apply.
func FindPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("FIELDLINE_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("FIELDLINE_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "fieldline.yaml"),
		filepath.Join(cwd, "config", "fieldline.yaml"),
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
