// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and default application

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  admin_addr: "0.0.0.0:8090"
  jwt_secret: "test-secret-value"

database:
  path: "./test.db"

platform:
  http_base_url: "https://platform.example.com"
  ws_base_url: "wss://platform.example.com/ws"
  client_version: "1.2.3"

agent:
  endpoint: "https://agent.example.com"
  token: "secret"
  bot_id: "bot-123"

business:
  start: "09:00"
  end: "21:00"

queue:
  max_size: 500

consumer:
  max_concurrent: 5

dispatcher:
  idle_seconds: 45

retry:
  max_attempts: 4
  base_ms: 2000
  factor: 1.5

transport:
  ping_seconds: 20
  pong_timeout_seconds: 60

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.AdminAddr != "0.0.0.0:8090" {
		t.Errorf("Server.AdminAddr = %q, want %q", cfg.Server.AdminAddr, "0.0.0.0:8090")
	}
	if cfg.Server.JWTSecret != "test-secret-value" {
		t.Errorf("Server.JWTSecret = %q, want %q", cfg.Server.JWTSecret, "test-secret-value")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Platform.HTTPBaseURL != "https://platform.example.com" || cfg.Platform.WSBaseURL != "wss://platform.example.com/ws" || cfg.Platform.ClientVersion != "1.2.3" {
		t.Errorf("Platform = %+v, unexpected", cfg.Platform)
	}
	if cfg.Agent.Endpoint != "https://agent.example.com" || cfg.Agent.Token != "secret" || cfg.Agent.BotID != "bot-123" {
		t.Errorf("Agent = %+v, unexpected", cfg.Agent)
	}
	if cfg.Business.Start != "09:00" || cfg.Business.End != "21:00" {
		t.Errorf("Business = %+v, unexpected", cfg.Business)
	}
	if cfg.Queue.MaxSize != 500 {
		t.Errorf("Queue.MaxSize = %d, want 500", cfg.Queue.MaxSize)
	}
	if cfg.Consumer.MaxConcurrent != 5 {
		t.Errorf("Consumer.MaxConcurrent = %d, want 5", cfg.Consumer.MaxConcurrent)
	}
	if cfg.Dispatcher.IdleSeconds != 45 {
		t.Errorf("Dispatcher.IdleSeconds = %d, want 45", cfg.Dispatcher.IdleSeconds)
	}
	if cfg.Dispatcher.IdleTimeout != 45*time.Second {
		t.Errorf("Dispatcher.IdleTimeout = %v, want 45s", cfg.Dispatcher.IdleTimeout)
	}
	if cfg.Retry.MaxAttempts != 4 || cfg.Retry.BaseMs != 2000 || cfg.Retry.Factor != 1.5 {
		t.Errorf("Retry = %+v, unexpected", cfg.Retry)
	}
	if cfg.Transport.PingSeconds != 20 || cfg.Transport.PongTimeoutSeconds != 60 {
		t.Errorf("Transport = %+v, unexpected", cfg.Transport)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, unexpected", cfg.Logging)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "./test.db"
agent:
  endpoint: "https://agent.example.com"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Queue.MaxSize != DefaultQueueMaxSize {
		t.Errorf("Queue.MaxSize = %d, want default %d", cfg.Queue.MaxSize, DefaultQueueMaxSize)
	}
	if cfg.Consumer.MaxConcurrent != DefaultConsumerMaxConcurrent {
		t.Errorf("Consumer.MaxConcurrent = %d, want default %d", cfg.Consumer.MaxConcurrent, DefaultConsumerMaxConcurrent)
	}
	if cfg.Dispatcher.IdleSeconds != DefaultDispatcherIdleSeconds {
		t.Errorf("Dispatcher.IdleSeconds = %d, want default %d", cfg.Dispatcher.IdleSeconds, DefaultDispatcherIdleSeconds)
	}
	if cfg.Retry.MaxAttempts != DefaultRetryMaxAttempts {
		t.Errorf("Retry.MaxAttempts = %d, want default %d", cfg.Retry.MaxAttempts, DefaultRetryMaxAttempts)
	}
	if cfg.Retry.Factor != DefaultRetryFactor {
		t.Errorf("Retry.Factor = %v, want default %v", cfg.Retry.Factor, DefaultRetryFactor)
	}
	if cfg.Transport.PingSeconds != DefaultTransportPingSeconds {
		t.Errorf("Transport.PingSeconds = %d, want default %d", cfg.Transport.PingSeconds, DefaultTransportPingSeconds)
	}
	if cfg.Transport.PongTimeoutSeconds != DefaultTransportPongTimeout {
		t.Errorf("Transport.PongTimeoutSeconds = %d, want default %d", cfg.Transport.PongTimeoutSeconds, DefaultTransportPongTimeout)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_AGENT_TOKEN", "token-from-env")

	path := writeConfig(t, `
database:
  path: "./test.db"
agent:
  endpoint: "https://agent.example.com"
  token: "${TEST_AGENT_TOKEN}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Agent.Token != "token-from-env" {
		t.Errorf("Agent.Token = %q, want %q", cfg.Agent.Token, "token-from-env")
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	os.Unsetenv("UNSET_VAR_FOR_TEST")

	path := writeConfig(t, `
database:
  path: "./test.db"
agent:
  token: "${UNSET_VAR_FOR_TEST}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Agent.Token != "" {
		t.Errorf("Agent.Token = %q, want empty string for unset env var", cfg.Agent.Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `
database:
  path "missing colon"
`)

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single env var", input: "${FOO}", expected: "bar"},
		{name: "env var with surrounding text", input: "prefix-${FOO}-suffix", expected: "prefix-bar-suffix"},
		{name: "multiple env vars", input: "${FOO}/${BAZ}", expected: "bar/qux"},
		{name: "no env vars", input: "no-vars-here", expected: "no-vars-here"},
		{name: "unset env var", input: "${UNSET_VAR}", expected: ""},
		{name: "empty string", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
