// ABOUTME: Configuration loading and parsing for csgw-server and csgw-admin
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete csgw-server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Platform   PlatformConfig   `yaml:"platform"`
	Agent      AgentConfig      `yaml:"agent"`
	Business   BusinessConfig   `yaml:"business"`
	Queue      QueueConfig      `yaml:"queue"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Retry      RetryConfig      `yaml:"retry"`
	Transport  TransportConfig  `yaml:"transport"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the admin control surface's listen address and the
// secret it uses to verify bearer JWTs.
type ServerConfig struct {
	AdminAddr string `yaml:"admin_addr"`
	JWTSecret string `yaml:"jwt_secret"`
}

// PlatformConfig addresses the upstream e-commerce platform's HTTP and
// WebSocket endpoints (§6.1-6.2's wire contract).
type PlatformConfig struct {
	HTTPBaseURL   string `yaml:"http_base_url"`
	WSBaseURL     string `yaml:"ws_base_url"`
	ClientVersion string `yaml:"client_version"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AgentConfig configures the external conversational agent backend.
type AgentConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	BotID    string `yaml:"bot_id"`
}

// BusinessConfig holds the HH:MM business-hours window.
type BusinessConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// QueueConfig bounds the per-account queue.
type QueueConfig struct {
	MaxSize int `yaml:"max_size"`
}

// ConsumerConfig bounds per-account concurrent dispatchers.
type ConsumerConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// DispatcherConfig configures per-user dispatcher idle shutdown.
type DispatcherConfig struct {
	IdleSeconds int           `yaml:"idle_seconds"`
	IdleTimeout time.Duration `yaml:"-"`
}

// RetryConfig configures the platform client's retry/backoff policy.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseMs      int     `yaml:"base_ms"`
	Factor      float64 `yaml:"factor"`
}

// TransportConfig configures WebSocket keepalive.
type TransportConfig struct {
	PingSeconds        int `yaml:"ping_seconds"`
	PongTimeoutSeconds int `yaml:"pong_timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults per the configuration's recognized-options table.
const (
	DefaultQueueMaxSize          = 1000
	DefaultConsumerMaxConcurrent = 10
	DefaultDispatcherIdleSeconds = 30
	DefaultRetryMaxAttempts      = 3
	DefaultRetryBaseMs           = 1000
	DefaultRetryFactor           = 2.0
	DefaultTransportPingSeconds  = 30
	DefaultTransportPongTimeout  = 90
)

// Load reads a configuration file from the given path, expands ${VAR}
// environment references, applies defaults for anything left unset, and
// derives the dispatcher idle timeout duration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)
	cfg.Dispatcher.IdleTimeout = time.Duration(cfg.Dispatcher.IdleSeconds) * time.Second

	return &cfg, nil
}

// applyDefaults fills in fields the YAML document left unset.
func applyDefaults(cfg *Config) {
	if cfg.Queue.MaxSize == 0 {
		cfg.Queue.MaxSize = DefaultQueueMaxSize
	}
	if cfg.Consumer.MaxConcurrent == 0 {
		cfg.Consumer.MaxConcurrent = DefaultConsumerMaxConcurrent
	}
	if cfg.Dispatcher.IdleSeconds == 0 {
		cfg.Dispatcher.IdleSeconds = DefaultDispatcherIdleSeconds
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if cfg.Retry.BaseMs == 0 {
		cfg.Retry.BaseMs = DefaultRetryBaseMs
	}
	if cfg.Retry.Factor == 0 {
		cfg.Retry.Factor = DefaultRetryFactor
	}
	if cfg.Transport.PingSeconds == 0 {
		cfg.Transport.PingSeconds = DefaultTransportPingSeconds
	}
	if cfg.Transport.PongTimeoutSeconds == 0 {
		cfg.Transport.PongTimeoutSeconds = DefaultTransportPongTimeout
	}
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable value, or an empty string if unset.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
