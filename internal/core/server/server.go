// Package server assembles the HTTP surface and runs it until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/geodesio/cellcover/internal/core/config"
	"github.com/geodesio/cellcover/internal/core/health"
	"github.com/geodesio/cellcover/internal/core/middleware"
	"github.com/geodesio/cellcover/internal/core/router"
	"github.com/geodesio/cellcover/internal/service"
)

func NewRouter(cfg config.Config, log *zerolog.Logger, svc *service.Service, ready health.ReadinessReporter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(log))
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/covering", router.HandleCovering(log, svc))
	r.Get("/encode", router.HandleEncode(log, svc))
	r.Get("/nearby", router.HandleNearby(log, svc))
	return r
}

// Run serves until ctx is cancelled, then drains with a 10s grace period.
func Run(ctx context.Context, cfg config.Config, log *zerolog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	log.Info().Msg("http server stopped")
	return nil
}
