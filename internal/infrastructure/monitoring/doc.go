/*
Package monitoring provides metrics collection for the command proxy.

# Overview

This package implements Prometheus-based metrics on a private registry,
tracking HTTP traffic, validation rejections, CORS preflights and calls to
the command server.

# Features

- HTTP request metrics (latency, throughput, size) labelled by route
- Rejections by reason (Unauthorized origin, Invalid JSON, ...)
- Preflight outcomes (allowed, denied)
- Backend latency and errors
- Uptime, Go runtime and process collectors

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics)
	// ... call the backend ...
	timer.Stop()

# Metrics Endpoint

The registry is served on the admin listener, never on the proxy port:

	admin.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
