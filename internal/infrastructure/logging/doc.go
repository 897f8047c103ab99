// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Log Levels:
//   - Debug: Successful proxied requests
//   - Info: Lifecycle events and rejected requests
//   - Warn: Security violations
//   - Error: Backend failures and 5xx responses
//
// Security violations are written through SecurityViolation so every
// rejection carries the same reason, origin and request_id fields.
//
// Example Usage:
//
//	logger, err := logging.New(logging.DefaultConfig())
//	router.Use(logging.Middleware(logger))
//	logger.SecurityViolation("Unauthorized origin", origin, requestID)
package logging
