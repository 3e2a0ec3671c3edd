// Package main is the entry point for the petrol logbook API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pkordes/petrol-logbook/internal/auth"
	"github.com/pkordes/petrol-logbook/internal/config"
	"github.com/pkordes/petrol-logbook/internal/handler"
	"github.com/pkordes/petrol-logbook/internal/metrics"
	"github.com/pkordes/petrol-logbook/internal/repo"
	"github.com/pkordes/petrol-logbook/internal/service"
	"github.com/pkordes/petrol-logbook/internal/session"
	"github.com/pkordes/petrol-logbook/pkg/logging"
	"github.com/pkordes/petrol-logbook/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		// Use the default logger before ours is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	// --- Metrics ----------------------------------------------------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Storage ----------------------------------------------------------
	ctx := context.Background()
	store, err := repo.Open(ctx, repo.Options{
		Backend:     repo.Backend(cfg.StoreBackend),
		DataDir:     cfg.DataDir,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		slog.Error("failed to open record store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("record store ready", "backend", cfg.StoreBackend)

	// --- Services ---------------------------------------------------------
	opts := []service.Option{service.WithLogger(logger), service.WithMetrics(m)}
	records := service.NewRecordService(store.Records, opts...)
	exports := service.NewExportService(records, opts...)

	sessions := session.NewManager(cfg.SessionTTL, nil)
	authSvc := service.NewAuthService(
		auth.NewPasswordAuthenticator(cfg.Users),
		auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL),
		sessions,
		opts...,
	)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepSessions(sweepCtx, sessions, cfg.SessionTTL/4)

	// --- Router -----------------------------------------------------------
	srv := handler.NewServer(records, authSvc, exports,
		handler.WithLogger(logger),
		handler.WithMetrics(m),
		handler.WithOpenAPI(spec.OpenAPI),
	)
	router := handler.NewRouter(srv, handler.RouterConfig{
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// WriteTimeout leaves room for rendering a PDF export.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr, "users", len(cfg.Users))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		return
	}
	slog.Info("server stopped")
}

// sweepSessions drops expired sessions every interval until ctx is done.
func sweepSessions(ctx context.Context, sessions *session.Manager, interval time.Duration) {
	if interval < time.Minute {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := sessions.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
