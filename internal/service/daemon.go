// Package service provides the abacus-service lifecycle: HTTP listener,
// PID file, idle-session janitor and profile catalog watcher.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ternarybob/abacus/internal/config"
	"github.com/ternarybob/abacus/internal/logger"
	"github.com/ternarybob/abacus/internal/profiles"
	"github.com/ternarybob/abacus/pkg/session"
)

// Daemon manages the service lifecycle.
type Daemon struct {
	cfg      *config.Config
	store    *session.Store
	registry *profiles.Registry

	server   *http.Server
	listener net.Listener
	watcher  *profiles.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	stopCh    chan struct{}
	stoppedCh chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewDaemon creates a new daemon instance.
func NewDaemon(cfg *config.Config, store *session.Store, registry *profiles.Registry) *Daemon {
	return &Daemon{
		cfg:       cfg,
		store:     store,
		registry:  registry,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start binds the listener and starts serving handler, the janitor and,
// when a catalog file is configured, the profile watcher.
func (d *Daemon) Start(handler http.Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("daemon already running")
	}

	// Ensure directories exist
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ln, err := net.Listen("tcp", d.cfg.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", d.cfg.Address(), err)
	}
	d.listener = ln

	if err := d.writePID(); err != nil {
		ln.Close()
		return fmt.Errorf("write PID: %w", err)
	}

	if err := d.startWatcher(); err != nil {
		// The built-in profiles still work without the catalog.
		logger.GetLogger().Warn().Err(err).Str("path", d.cfg.Calculator.ProfilesFile).Msg("Profile watcher not started")
	}

	d.server = &http.Server{
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		logger.GetLogger().Info().Str("address", ln.Addr().String()).Msg("Starting server")
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Error().Err(err).Msg("Server error")
		}
	}()
	go func() {
		defer d.wg.Done()
		RunJanitor(ctx, d.store, d.cfg.Calculator.SessionIdle, d.cfg.Calculator.PruneInterval)
	}()

	d.running = true
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

func (d *Daemon) startWatcher() error {
	path := d.cfg.Calculator.ProfilesFile
	if path == "" || d.registry == nil {
		return nil
	}

	if err := d.registry.LoadFile(path); err != nil {
		return err
	}

	w, err := profiles.NewWatcher(d.registry, path)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return err
	}
	d.watcher = w
	return nil
}

// Wait waits for the daemon to stop, handling signals.
func (d *Daemon) Wait() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.GetLogger().Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	case <-d.stopCh:
		logger.GetLogger().Info().Msg("Stop requested, shutting down")
	}

	d.shutdown()
}

// Stop signals the daemon to stop and waits for shutdown.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	select {
	case <-d.stopCh:
	default:
		close(d.stopCh)
	}
	d.mu.Unlock()

	<-d.stoppedCh
}

// shutdown performs graceful shutdown.
func (d *Daemon) shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.server.Shutdown(ctx); err != nil {
		logger.GetLogger().Warn().Err(err).Msg("Server shutdown error")
	}
	d.cancel()
	d.wg.Wait()

	if d.watcher != nil {
		d.watcher.Stop()
	}

	d.removePID()

	d.running = false
	close(d.stoppedCh)
	logger.GetLogger().Info().Msg("Service stopped")
}

// RunJanitor prunes sessions idle for longer than idle every interval
// until ctx is cancelled. A non-positive idle or interval disables it.
func RunJanitor(ctx context.Context, store *session.Store, idle, interval time.Duration) {
	if idle <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ids := store.Prune(idle); len(ids) > 0 {
				logger.GetLogger().Info().Strs("ids", ids).Msgf("Pruned %d idle sessions", len(ids))
			}
		}
	}
}

// ServeWithJanitor runs serve with the idle-session janitor alongside it,
// stopping the janitor once serve returns.
func ServeWithJanitor(cfg *config.Config, store *session.Store, serve func() error) error {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		RunJanitor(ctx, store, cfg.Calculator.SessionIdle, cfg.Calculator.PruneInterval)
	}()

	err := serve()
	cancel()
	wg.Wait()
	return err
}

// writePID writes the current process PID to a file.
func (d *Daemon) writePID() error {
	pidPath := d.cfg.PIDPath()
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(pidPath), 0755); err != nil {
		return fmt.Errorf("create PID directory: %w", err)
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644)
}

// removePID removes the PID file.
func (d *Daemon) removePID() {
	_ = os.Remove(d.cfg.PIDPath())
}

// IsRunning checks if a daemon is already running.
func IsRunning(cfg *config.Config) (bool, int) {
	pidPath := cfg.PIDPath()

	data, err := os.ReadFile(pidPath)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0
	}

	// Check if process exists by sending signal 0
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}

	if err := process.Signal(syscall.Signal(0)); err != nil {
		// Process doesn't exist, clean up stale PID file
		_ = os.Remove(pidPath)
		return false, 0
	}

	return true, pid
}

// StopRunning stops a running daemon.
func StopRunning(cfg *config.Config) error {
	running, pid := IsRunning(cfg)
	if !running {
		return fmt.Errorf("daemon not running")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	// Send SIGTERM
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	// Wait for process to exit
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if running, _ := IsRunning(cfg); !running {
			return nil
		}
	}

	// Force kill if still running
	if err := process.Kill(); err != nil {
		return fmt.Errorf("kill process: %w", err)
	}

	// Clean up PID file
	_ = os.Remove(cfg.PIDPath())

	return nil
}
