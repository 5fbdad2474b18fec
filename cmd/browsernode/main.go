// Command browsernode runs the Playwright-backed worker that the control
// plane's dispatcher calls over HTTP when BROWSER_CLUSTER_MODE=remote. It
// owns no database or Redis connection of its own.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xxrenzhe/syncsocial/internal/browsernode/action"
	"github.com/xxrenzhe/syncsocial/internal/browsernode/httpapi"
	"github.com/xxrenzhe/syncsocial/internal/browsernode/session"
	"github.com/xxrenzhe/syncsocial/internal/config"
	"github.com/xxrenzhe/syncsocial/internal/httpserver"
	"github.com/xxrenzhe/syncsocial/internal/telemetry"
	"github.com/xxrenzhe/syncsocial/pkg/workerclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	metrics := telemetry.NewMetricsRegistry()

	router := chi.NewRouter()
	router.Use(httpserver.RequestID)
	router.Use(httpserver.Logger(logger))
	router.Use(httpserver.Metrics)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type", "x-internal-token", "X-Request-ID"},
		MaxAge:         300,
	}))
	router.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))

	handler := &httpapi.Handler{
		Sessions: session.NewManager(cfg.BrowserHeadless, cfg.NoVNCPublicURL),
		Actions:  &action.Executor{Headless: cfg.BrowserHeadless},
		Logger:   logger,
	}
	handler.Mount(router, workerclient.HashInternalToken(cfg.BrowserNodeInternalToken))

	srv := &http.Server{
		Addr:    cfg.ListenAddr(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting browser node", "addr", cfg.ListenAddr())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutting down browser node", "error", err)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("browser node server exited", "error", err)
		}
	}
}
