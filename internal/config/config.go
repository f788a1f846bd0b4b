// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads the passkey server configuration from a YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// Duration wraps time.Duration for YAML values like "60s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete server configuration
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	RP      passkey.Config `yaml:"rp"`
	Session SessionConfig  `yaml:"session"`
	Stores  StoresConfig   `yaml:"stores"`
	Logging LoggingConfig  `yaml:"logging"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Health  HealthConfig   `yaml:"health"`
}

// ServerConfig contains server-level settings
type ServerConfig struct {
	Host            string    `yaml:"host"`
	Port            int       `yaml:"port"`
	ReadTimeout     Duration  `yaml:"read_timeout"`
	WriteTimeout    Duration  `yaml:"write_timeout"`
	ShutdownTimeout Duration  `yaml:"shutdown_timeout"`
	TLS             TLSConfig `yaml:"tls"`
}

// SessionConfig controls the signed session marker issued after login
type SessionConfig struct {
	// Secret is the HMAC key for the marker JWT. A random per-process key
	// is generated when empty.
	Secret     string   `yaml:"secret"`
	Lifetime   Duration `yaml:"lifetime"`
	CookieName string   `yaml:"cookie_name"`
	Secure     bool     `yaml:"secure"`
}

// StoresConfig controls the in-memory credential and challenge stores
type StoresConfig struct {
	UserCapacity    int      `yaml:"user_capacity"`
	UserIdleTTL     Duration `yaml:"user_idle_ttl"`
	ChallengeTTL    Duration `yaml:"challenge_ttl"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HealthConfig controls health check endpoints
type HealthConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		RP: passkey.Config{
			RPID:          "localhost",
			RPDisplayName: "Passkey Server",
			RPOrigins:     []string{"http://localhost:8080"},
		},
		Session: SessionConfig{
			Lifetime:   Duration(24 * time.Hour),
			CookieName: "passkey_session",
		},
		Stores: StoresConfig{
			UserCapacity:    passkey.DefaultUserCapacity,
			UserIdleTTL:     Duration(passkey.DefaultUserIdleTTL),
			ChallengeTTL:    Duration(passkey.DefaultChallengeTTL),
			CleanupInterval: Duration(time.Minute),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Health: HealthConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from a YAML file and applies environment variable
// overrides. Missing fields fall back to Default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - Config file path is provided by admin/user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("PASSKEY_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PASSKEY_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			log.Printf("Warning: invalid PASSKEY_PORT value %q, using default %d: %v",
				portStr, cfg.Server.Port, err)
		} else if port < 1 || port > 65535 {
			log.Printf("Warning: invalid PASSKEY_PORT value %q (out of range 1-65535), using default %d",
				portStr, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}

	if rpID := os.Getenv("PASSKEY_RP_ID"); rpID != "" {
		cfg.RP.RPID = rpID
	}
	if rpName := os.Getenv("PASSKEY_RP_DISPLAY_NAME"); rpName != "" {
		cfg.RP.RPDisplayName = rpName
	}
	if origins := os.Getenv("PASSKEY_RP_ORIGINS"); origins != "" {
		cfg.RP.RPOrigins = strings.Split(origins, ",")
		for i := range cfg.RP.RPOrigins {
			cfg.RP.RPOrigins[i] = strings.TrimSpace(cfg.RP.RPOrigins[i])
		}
	}

	if secret := os.Getenv("PASSKEY_SESSION_SECRET"); secret != "" {
		cfg.Session.Secret = secret
	}

	if level := os.Getenv("PASSKEY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("PASSKEY_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when TLS is enabled")
		}
	}

	if c.RP.RPID == "" {
		return fmt.Errorf("rp.id must be specified")
	}
	if len(c.RP.RPOrigins) == 0 {
		return fmt.Errorf("at least one rp.origins entry must be specified")
	}

	if c.Stores.UserCapacity < 1 {
		return fmt.Errorf("stores.user_capacity must be positive: %d", c.Stores.UserCapacity)
	}
	if c.Stores.ChallengeTTL.Std() <= 0 {
		return fmt.Errorf("stores.challenge_ttl must be positive: %s", c.Stores.ChallengeTTL.Std())
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}
