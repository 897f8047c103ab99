// Package middleware provides the HTTP middleware in front of the command
// endpoint.
//
// Middleware stack includes:
//   - RequestID: X-Request-ID correlation, generated with google/uuid
//   - RateLimit: Per-IP token bucket rate limiting (optional)
//   - CORS: Origin resolution and preflight answers
//
// CORS resolves the origin from Origin, falling back to Referer, and stores
// it on the context for handlers (see Origin). Preflights are answered here
// and never reach a handler:
//   - trusted origin: 200 with Access-Control-Allow-* headers
//   - anything else: 403 "Forbidden origin"
//
// Rate Limiting:
//   - Per-IP tracking with idle cleanup
//   - Token bucket algorithm
//   - Configurable RPS and burst capacity
//   - Global rate limiting option
//
// Example Usage:
//
//	router.Use(middleware.RequestID())
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig(lists)))
package middleware
