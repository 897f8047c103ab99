package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/chipflow/command-proxy/internal/infrastructure/config"
	"github.com/chipflow/command-proxy/internal/infrastructure/server"
)

func main() {
	// Parse flags
	port := flag.String("port", "", "Proxy listen port (overrides PORT)")
	backendAddr := flag.String("backend", "", "Command server host:port (overrides BACKEND_HOST/BACKEND_PORT)")
	policyFile := flag.String("policy", "", "Allow-list policy file, .yaml/.toml/.json (overrides POLICY_FILE)")
	dev := flag.Bool("dev", false, "Development mode (colored logs, debug level)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override environment
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *backendAddr != "" {
		host, p, err := net.SplitHostPort(*backendAddr)
		if err != nil {
			log.Fatalf("Invalid -backend %q: %v", *backendAddr, err)
		}
		cfg.Backend.Host = host
		cfg.Backend.Port = p
	}
	if *policyFile != "" {
		cfg.Security.PolicyFile = *policyFile
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create server
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		if err != nil {
			_ = srv.Close()
			log.Fatalf("Server error: %v", err)
		}
	}
}
