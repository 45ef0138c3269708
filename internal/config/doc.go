// Package config handles configuration loading for csgw-server.
//
// # Overview
//
// Configuration is loaded from a single YAML file with environment
// variable expansion. Unset numeric options fall back to documented
// defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	agent:
//	  token: "${CSGW_AGENT_TOKEN}"
//
// Syntax: ${VAR_NAME}.
//
// # Configuration Sections
//
//	server:
//	  admin_addr: "0.0.0.0:8090"
//
//	database:
//	  path: "/var/lib/csgw/gateway.db"
//
//	agent:
//	  endpoint: "https://agent.example.com"
//	  token: "${CSGW_AGENT_TOKEN}"
//	  bot_id: "bot-123"
//
//	business:
//	  start: "09:00"
//	  end: "21:00"
//
//	queue:
//	  max_size: 1000
//
//	consumer:
//	  max_concurrent: 10
//
//	dispatcher:
//	  idle_seconds: 30
//
//	retry:
//	  max_attempts: 3
//	  base_ms: 1000
//	  factor: 2.0
//
//	transport:
//	  ping_seconds: 30
//	  pong_timeout_seconds: 90
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load("/etc/csgw/gateway.yaml")
package config
