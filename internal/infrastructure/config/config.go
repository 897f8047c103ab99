package config

import (
	"fmt"
	"net"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/chipflow/command-proxy/internal/domain/policy"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Security  SecurityConfig
	Admin     AdminConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds proxy listener configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"3001" validate:"required,numeric"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"0s" validate:"gte=0"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"0" validate:"gte=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gte=0"`
}

// BackendConfig holds the command server address.
type BackendConfig struct {
	Host    string        `envconfig:"BACKEND_HOST" default:"localhost" validate:"required"`
	Port    string        `envconfig:"BACKEND_PORT" default:"3000" validate:"required,numeric"`
	Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"0s" validate:"gte=0"`
}

// SecurityConfig holds the allow-lists. PolicyFile, when set, replaces the
// list values at load time.
type SecurityConfig struct {
	AllowedCommands   []string `envconfig:"ALLOWED_COMMANDS" default:"workbench.action.terminal.openUrlLink,simpleBrowser.api.open"`
	URLCommands       []string `envconfig:"URL_COMMANDS" default:"workbench.action.terminal.openUrlLink,simpleBrowser.api.open"`
	AllowedOrigins    []string `envconfig:"ALLOWED_ORIGINS" default:"https://configurator.chipflow.io,https://configurator.chipflow-infra.com"`
	AllowedURLDomains []string `envconfig:"ALLOWED_URL_DOMAINS" default:"docs.chipflow.io,configurator.chipflow.io,github.com,chipflow.io"`
	StrictOriginMatch bool     `envconfig:"STRICT_ORIGIN_MATCH" default:"false"`
	PolicyFile        string   `envconfig:"POLICY_FILE"`
}

// AdminConfig holds the health/metrics listener configuration.
type AdminConfig struct {
	Addr    string `envconfig:"ADMIN_ADDR" default:"127.0.0.1:3002" validate:"required_if=Enabled true,omitempty,hostname_port"`
	Enabled bool   `envconfig:"ADMIN_ENABLED" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"10" validate:"gte=1"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"20" validate:"gte=1"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"false"`
	Global            bool `envconfig:"RATE_LIMIT_GLOBAL" default:"false"` // one bucket for all clients
}

var validate = validator.New()

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	spec := policy.DefaultSpec()
	return &Config{
		Server: ServerConfig{
			Port:            "3001",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
		},
		Backend: BackendConfig{
			Host: "localhost",
			Port: "3000",
		},
		Security: SecurityConfig{
			AllowedCommands:   spec.Commands,
			URLCommands:       spec.URLCommands,
			AllowedOrigins:    spec.Origins,
			AllowedURLDomains: spec.URLDomains,
		},
		Admin: AdminConfig{
			Addr:    "127.0.0.1:3002",
			Enabled: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
			Enabled:           false,
		},
	}
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ListenAddr returns the proxy listen address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// BackendAddr returns the backend host:port.
func (c *Config) BackendAddr() string {
	return net.JoinHostPort(c.Backend.Host, c.Backend.Port)
}

// PolicySpec returns the allow-lists, read from the policy file when one is
// configured.
func (c *Config) PolicySpec() (policy.Spec, error) {
	if c.Security.PolicyFile != "" {
		return LoadPolicyFile(c.Security.PolicyFile)
	}
	return policy.Spec{
		Commands:          c.Security.AllowedCommands,
		URLCommands:       c.Security.URLCommands,
		Origins:           c.Security.AllowedOrigins,
		URLDomains:        c.Security.AllowedURLDomains,
		StrictOriginMatch: c.Security.StrictOriginMatch,
	}, nil
}

// AllowLists builds the immutable allow-lists for this configuration.
func (c *Config) AllowLists() (*policy.AllowLists, error) {
	spec, err := c.PolicySpec()
	if err != nil {
		return nil, err
	}
	lists, err := policy.New(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build allow-lists: %w", err)
	}
	return lists, nil
}
