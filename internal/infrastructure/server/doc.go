// Package server assembles the command proxy from its parts.
//
// This package orchestrates all components:
//   - Allow-lists from configuration or a policy file
//   - Backend forwarder for the command server
//   - Proxy router with the middleware stack
//   - Admin router for health, metrics and policy
//
// Middleware order on the proxy router:
//
//	Recovery → RequestID → metrics → access log → [rate limit] → CORS
//
// Server Lifecycle:
//  1. Build the logger from configuration
//  2. Load and log the allow-lists
//  3. Setup routes and middleware
//  4. Start proxy and admin listeners
//  5. Graceful shutdown on signal
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
