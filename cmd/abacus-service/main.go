// Package main provides the entry point for abacus-service.
//
// abacus-service hosts calculator sessions behind:
// - REST API for programmatic access
// - WebSocket keypad per session
// - MCP tools over stdio or HTTP
//
// Usage:
//
//	abacus-service                    Start the service (default)
//	abacus-service serve              Start the service
//	abacus-service version            Show version
//	abacus-service status             Show service status
//	abacus-service stop               Stop the running service
//	abacus-service mcp                Start MCP server (stdio mode)
package main

import (
	"fmt"
	"os"

	"github.com/ternarybob/abacus/internal/api"
	"github.com/ternarybob/abacus/internal/config"
	"github.com/ternarybob/abacus/internal/logger"
	"github.com/ternarybob/abacus/internal/mcp"
	"github.com/ternarybob/abacus/internal/profiles"
	"github.com/ternarybob/abacus/internal/service"
	"github.com/ternarybob/abacus/pkg/session"
)

// version is set via -ldflags at build time
var version = "dev"

func main() {
	// Set version in API package
	api.SetVersion(version)

	if len(os.Args) < 2 {
		// Default: start service
		if err := cmdServe(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var err error
	switch os.Args[1] {
	case "serve", "start":
		err = cmdServe()
	case "version", "-v", "--version":
		cmdVersion()
	case "status":
		err = cmdStatus()
	case "stop":
		err = cmdStop()
	case "mcp", "mcp-server":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`abacus-service - Calculator session service

Usage:
  abacus-service [command]

Commands:
  serve         Start the service (default)
  version       Show version information
  status        Show service status
  stop          Stop the running service
  mcp           Start MCP server (stdio mode)
  help          Show this help

Environment:
  ABACUS_CONFIG     Path to the config file (optional)

Configuration:
  Config file: ~/.abacus-service/config.yaml (or $APPDATA/abacus-service on Windows)

Examples:
  abacus-service                                  Start the service
  curl -XPOST localhost:8430/sessions             Open a session
  curl -XPOST localhost:8430/sessions/ID/keys \
       -d '{"sequence":"2 + 3 × 4 ="}'             Press keys
  curl -XPOST localhost:8430/eval -d '{"expression":"2+3*4"}'`)
}

func cmdVersion() {
	fmt.Printf("abacus-service version %s\n", version)
}

// build wires the profile registry and session store from config.
func build(cfg *config.Config) (*profiles.Registry, *session.Store) {
	registry := profiles.NewRegistry()
	if cfg.Calculator.KeymapFile != "" {
		registry.SetKeymapFile(cfg.Calculator.KeymapFile)
	}
	store := session.NewStore(registry.Factory(cfg.Calculator.DefaultProfile))
	return registry, store
}

func cmdServe() error {
	// Load configuration
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Check if already running
	if running, pid := service.IsRunning(cfg); running {
		return fmt.Errorf("service already running (PID %d)", pid)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger.SetupLogger(cfg, logger.ModeService)
	defer logger.Stop()

	registry, store := build(cfg)
	if _, err := registry.Get(cfg.Calculator.DefaultProfile); err != nil && cfg.Calculator.ProfilesFile == "" {
		return fmt.Errorf("calculator.default_profile: %w", err)
	}

	// Create API server
	apiServer := api.NewServer(cfg, store, registry)
	if cfg.MCP.Enabled {
		apiServer.MountMCP(mcp.NewServer(store, registry, cfg.Calculator.DefaultProfile, version).HTTPHandler())
	}

	// Create daemon
	daemon := service.NewDaemon(cfg, store, registry)

	// Start service
	if err := daemon.Start(apiServer.Handler()); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Printf("abacus-service v%s started on %s\n", version, daemon.Addr())
	fmt.Printf("API: http://%s/sessions\n", daemon.Addr())
	if cfg.MCP.Enabled {
		fmt.Printf("MCP: http://%s/mcp\n", daemon.Addr())
	}

	// Wait for shutdown signal
	daemon.Wait()

	return nil
}

func cmdStatus() error {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	running, pid := service.IsRunning(cfg)
	if running {
		fmt.Printf("abacus-service: running (PID %d)\n", pid)
		fmt.Printf("Address: %s\n", cfg.Address())
	} else {
		fmt.Println("abacus-service: stopped")
	}

	return nil
}

func cmdStop() error {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	running, pid := service.IsRunning(cfg)
	if !running {
		fmt.Println("abacus-service is not running")
		return nil
	}

	fmt.Printf("Stopping abacus-service (PID %d)...\n", pid)
	if err := service.StopRunning(cfg); err != nil {
		return err
	}

	fmt.Println("abacus-service stopped")
	return nil
}

func cmdMCP() error {
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[abacus-service] Warning: %v, using defaults\n", err)
		cfg = config.DefaultConfig()
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger.SetupLogger(cfg, logger.ModeStdio)
	defer logger.Stop()

	registry, store := build(cfg)
	if cfg.Calculator.ProfilesFile != "" {
		if err := registry.LoadFile(cfg.Calculator.ProfilesFile); err != nil {
			fmt.Fprintf(os.Stderr, "[abacus-service] Warning: %v\n", err)
		}
	}

	srv := mcp.NewServer(store, registry, cfg.Calculator.DefaultProfile, version)
	return service.ServeWithJanitor(cfg, store, srv.ServeStdio)
}
