// Package config provides configuration types for filegate.
//
// Configuration is file-based (filegate.yaml) with environment overrides
// (FILEGATE_SERVER_PORT and so on) and CLI flag overrides applied by the
// start command.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the top-level configuration for filegate.
type Config struct {
	// Server configures the TCP listener and per-connection behavior.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Repository configures the directory files are served from.
	Repository RepositoryConfig `yaml:"repository" mapstructure:"repository"`

	// Metrics configures the optional Prometheus/health HTTP listener.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// DevMode enables development features (debug logging).
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// ServerConfig configures the TCP server.
type ServerConfig struct {
	// Host is the interface to bind. Defaults to "127.0.0.1".
	Host string `yaml:"host" mapstructure:"host" validate:"required"`

	// Port is the TCP port to listen on. Defaults to 5000.
	Port int `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`

	// MaxClients is the number of concurrent client slots (Client01..ClientNN).
	// Defaults to 3.
	MaxClients int `yaml:"max_clients" mapstructure:"max_clients" validate:"gte=1,lte=99"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	// Defaults to "info" if empty. DevMode=true overrides to "debug".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// IdleTimeout closes a connection that sends nothing, or accepts no
	// bytes of a reply, for this long (e.g. "10m"). Empty disables it.
	IdleTimeout string `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"omitempty,duration"`

	// DrainTimeout bounds how long shutdown waits for active sessions.
	// Defaults to "5s".
	DrainTimeout string `yaml:"drain_timeout" mapstructure:"drain_timeout" validate:"omitempty,duration"`

	// MaxLineBytes bounds a single command line. Defaults to 65536.
	MaxLineBytes int `yaml:"max_line_bytes" mapstructure:"max_line_bytes" validate:"gte=0"`
}

// RepositoryConfig configures the served directory.
type RepositoryConfig struct {
	// Dir is the repository directory. Created on start if missing.
	// Defaults to "./repo".
	Dir string `yaml:"dir" mapstructure:"dir" validate:"required"`

	// ChunkSize is the file streaming buffer size in bytes. Defaults to 65536.
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size" validate:"gte=512,lte=16777216"`
}

// MetricsConfig configures the observability endpoint.
type MetricsConfig struct {
	// Addr is the HTTP listen address for /metrics and /health
	// (e.g. "127.0.0.1:9090"). Empty disables the endpoint.
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// SetDevDefaults applies development overrides. Applied before validation.
func (c *Config) SetDevDefaults() {
	if !c.DevMode {
		return
	}
	c.Server.LogLevel = "debug"
}

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	// Bind to localhost only unless told otherwise.
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.MaxClients == 0 {
		c.Server.MaxClients = 3
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.DrainTimeout == "" {
		c.Server.DrainTimeout = "5s"
	}
	if c.Server.MaxLineBytes == 0 {
		c.Server.MaxLineBytes = 64 * 1024
	}

	if c.Repository.Dir == "" {
		c.Repository.Dir = "./repo"
	}
	if c.Repository.ChunkSize == 0 {
		c.Repository.ChunkSize = 64 * 1024
	}
}

// ListenAddr returns the host:port the TCP server binds.
func (c *ServerConfig) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IdleTimeoutDuration returns the parsed idle timeout; zero when disabled.
// Validate guarantees the string parses.
func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	return parseDurationOrZero(c.IdleTimeout)
}

// DrainTimeoutDuration returns the parsed drain timeout.
func (c *ServerConfig) DrainTimeoutDuration() time.Duration {
	return parseDurationOrZero(c.DrainTimeout)
}

func parseDurationOrZero(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
