// Package http provides the HTTP handlers of the command proxy.
//
// Proxy listener:
//   - POST /execute: validate, then relay to the command server
//   - anything else: 405 {"success":false,"error":"Method not allowed"}
//
// Preflights are answered by middleware.CORS before any handler runs.
//
// Response codes from Execute:
//   - 403 JSON with the rejection reason (origin, JSON, command, URL)
//   - 413 JSON when the body exceeds the configured limit
//   - 502 text/plain "Bad Gateway" when the backend cannot be reached
//   - otherwise the backend's status, headers and streamed body
//
// Admin listener:
//   - GET /health: liveness and backend address
//   - GET /metrics: Prometheus exposition
//   - GET /policy: the active allow-lists
//
// Example Usage:
//
//	handlers := http.NewHandlers(validator, client, logger, metrics, http.Options{})
//	router.POST(http.ExecutePath, handlers.Execute)
//	router.NoRoute(handlers.MethodNotAllowed)
//	router.NoMethod(handlers.MethodNotAllowed)
package http
