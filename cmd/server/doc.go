// Package main is the entry point for the command proxy.
//
// The proxy sits between browser pages and a local command server and only
// forwards requests that pass its allow-lists:
//
//	Browser (trusted origin) → command proxy :3001 → command server :3000
//	Operator                 → admin :3002 (/health, /metrics, /policy)
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Optional policy file for the allow-lists
//
// Usage:
//
//	# Defaults: listen on 0.0.0.0:3001, forward to localhost:3000
//	./server
//
//	# Custom backend and policy
//	./server -port 8080 -backend 127.0.0.1:4000 -policy /etc/command-proxy/policy.yaml
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
