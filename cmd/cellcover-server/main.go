package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/geodesio/cellcover/internal/core/config"
	"github.com/geodesio/cellcover/internal/core/health"
	"github.com/geodesio/cellcover/internal/core/observability"
	"github.com/geodesio/cellcover/internal/core/server"
	"github.com/geodesio/cellcover/internal/ingest"
	ingestkafka "github.com/geodesio/cellcover/internal/ingest/kafka"
	"github.com/geodesio/cellcover/internal/logger"
	"github.com/geodesio/cellcover/internal/service"
	"github.com/geodesio/cellcover/internal/store/redisstore"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	log := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "cellcover",
	}, os.Stdout)

	observability.ExposeBuildInfo(Version)
	log.Info().
		Str("addr", cfg.Addr).
		Str("version", Version).
		Str("engine", cfg.Engine).
		Msg("starting cellcover")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := service.New(cfg, &log)

	var store *redisstore.Store
	if cfg.StoreEnabled || cfg.Ingest.Enabled {
		s, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			log.Error().Err(err).Str("addr", cfg.RedisAddr).Msg("redis connect failed")
			return 1
		}
		defer func() {
			if err := s.Close(); err != nil {
				log.Error().Err(err).Msg("redis close")
			}
		}()
		store = s
		svc.WithStore(store)
	}

	var ready health.ReadinessReporter = health.Always{}
	if cfg.Ingest.Enabled {
		indexer := ingest.NewIndexer(svc, store, svc.Engines())
		runner := ingestkafka.New(cfg.Ingest, indexer, &log)
		if err := runner.Start(ctx); err != nil {
			log.Error().Err(err).Msg("ingest runner start failed")
			return 1
		}
		defer runner.Stop()
		ready = runner
	}

	handler := server.NewRouter(cfg, &log, svc, ready)
	if err := server.Run(ctx, cfg, &log, handler); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		return 1
	}
	log.Info().Msg("server stopped")
	return 0
}
