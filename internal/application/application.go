package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/deployconf/internal/api"
	"github.com/eugenenazirov/deployconf/internal/chaincheck"
	"github.com/eugenenazirov/deployconf/internal/config"
	"github.com/eugenenazirov/deployconf/internal/resolver"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	record   resolver.Record
	findings []chaincheck.Finding
	logger   *zap.Logger
	server   *http.Server
	listener net.Listener
}

// New wires the resolved record, its offline findings and a live prober into
// the HTTP API. env is the snapshot rec was resolved from.
func New(cfg config.Config, rec resolver.Record, env resolver.Environment, logger *zap.Logger) *App {
	findings := chaincheck.Inspect(rec, env)
	for _, f := range findings {
		logger.Debug("configuration finding",
			zap.String("field", f.Field),
			zap.String("severity", string(f.Severity)),
			zap.String("message", f.Message),
		)
	}

	handler := api.NewHandler(rec,
		api.WithFindings(findings),
		api.WithProber(chaincheck.NewProber(cfg.ProbeTimeout)),
	)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		record:   rec,
		findings: findings,
		logger:   logger,
		server:   NewServer(cfg, BuildRootHandler(apiRouter)),
	}
}

// BuildRootHandler mounts the API under /api/ and answers everything else
// with 404.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.NotFoundHandler())
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start binds the configured address and serves in a goroutine. Binding
// happens before Start returns, so Addr is valid afterwards.
func (a *App) Start() error {
	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	a.listener = ln

	a.logger.Info("server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("network", a.record.NetworkName),
		zap.Int64("chain_id", a.record.ChainID),
		zap.Int("findings", len(a.findings)),
	)
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound listen address, or the configured one before Start.
func (a *App) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.server.Addr
}

// Shutdown drains in-flight requests until ctx expires, then closes the
// remaining connections.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := a.server.Close(); closeErr != nil {
			return fmt.Errorf("force close: %w", closeErr)
		}
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Findings returns the offline inspection results computed at startup.
func (a *App) Findings() []chaincheck.Finding {
	return a.findings
}

// Record returns the resolved record the server exposes.
func (a *App) Record() resolver.Record {
	return a.record
}
