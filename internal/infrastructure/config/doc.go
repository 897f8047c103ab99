// Package config provides 12-factor configuration management for the command proxy.
//
// Configuration is loaded from environment variables with defaults that
// reproduce the built-in allow-lists. CLI flags can override environment
// variables for development flexibility.
//
// Configuration Sections:
//   - Server: proxy listener settings (port, host, read timeout, body cap)
//   - Backend: command server address and round-trip timeout
//   - Security: command, origin and URL-domain allow-lists
//   - Admin: health and metrics listener
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Policy Files:
//
// POLICY_FILE replaces the Security allow-lists with the contents of a YAML,
// TOML or JSON file, selected by extension:
//
//	allowed_commands: [simpleBrowser.api.open]
//	url_commands: [simpleBrowser.api.open]
//	allowed_origins: [https://configurator.chipflow.io]
//	allowed_url_domains: [docs.chipflow.io]
//	strict_origin_match: false
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	lists, err := cfg.AllowLists()
//
// Environment Variables:
//   - PORT, HOST, READ_TIMEOUT, MAX_BODY_BYTES, SHUTDOWN_TIMEOUT
//   - BACKEND_HOST, BACKEND_PORT, BACKEND_TIMEOUT
//   - ALLOWED_COMMANDS, URL_COMMANDS, ALLOWED_ORIGINS, ALLOWED_URL_DOMAINS
//   - STRICT_ORIGIN_MATCH, POLICY_FILE
//   - ADMIN_ADDR, ADMIN_ENABLED
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED, RATE_LIMIT_GLOBAL
package config
