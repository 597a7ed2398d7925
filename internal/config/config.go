// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads gateway configuration from a YAML file and the
// environment. Environment variables use the A2A_GATEWAY prefix with
// underscores for nesting, e.g. A2A_GATEWAY_SERVER_ADDR.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ZPlayground/zhipu-end-device-agent-service/server"
)

// Config is the root gateway configuration.
type Config struct {
	Server   ServerConfig         `mapstructure:"server"`
	Agent    AgentConfig          `mapstructure:"agent"`
	Push     PushConfig           `mapstructure:"push"`
	Poll     PollConfig           `mapstructure:"poll"`
	Database DatabaseConfig       `mapstructure:"database"`
	Agents   []server.AgentConfig `mapstructure:"agents"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Address returns the listen address in host:port form.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AgentConfig describes the gateway's own agent card.
type AgentConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Version     string `mapstructure:"version"`
	URL         string `mapstructure:"url"`
}

// PushConfig configures push notification delivery and receipt.
type PushConfig struct {
	// CallbackURL is the externally reachable webhook URL registered
	// with remote agents. Empty disables push and falls back to polling.
	CallbackURL string `mapstructure:"callback_url"`

	// Secret signs webhook tokens and notification bodies.
	Secret string `mapstructure:"secret"`

	// TokenTTL bounds the lifetime of minted webhook tokens.
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// PollConfig configures the polling fallback for delegated tasks.
type PollConfig struct {
	Interval           time.Duration `mapstructure:"interval"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	StalenessThreshold time.Duration `mapstructure:"staleness_threshold"`
}

// DatabaseConfig configures the optional database-backed task store.
// An empty DSN selects the in-memory store.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load reads configuration from the file at path, overlaid with
// environment variables. An empty path skips the file and loads from
// the environment alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("A2A_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("agent.name", "end-device-agent")
	v.SetDefault("agent.version", "1.0.0")
	v.SetDefault("poll.interval", 2*time.Second)
	v.SetDefault("poll.max_attempts", 30)
	v.SetDefault("poll.staleness_threshold", 5*time.Second)
	v.SetDefault("push.token_ttl", 24*time.Hour)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
