package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirychukyurii/mission-control/internal/api"
	"github.com/kirychukyurii/mission-control/internal/cache"
	"github.com/kirychukyurii/mission-control/internal/config"
	"github.com/kirychukyurii/mission-control/internal/healthcheck"
	"github.com/kirychukyurii/mission-control/internal/logger"
	"github.com/kirychukyurii/mission-control/internal/repository"
	"github.com/kirychukyurii/mission-control/internal/service"
	"github.com/kirychukyurii/mission-control/internal/view"
	"github.com/kirychukyurii/mission-control/pkg/httpserver"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// Bootstrap logger until the configured one is available
	log := logger.New()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load configuration",
			"error", err.Error(),
		)
		os.Exit(1)
	}

	log = logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)

	log.Info("configuration loaded",
		"source", cfg.Source.Type,
		"views", len(cfg.Views),
	)

	// Create job source
	source, err := repository.NewSource(cfg.Source, log)
	if err != nil {
		log.Error("failed to create job source",
			"source", cfg.Source.Type,
			"error", err.Error(),
		)
		os.Exit(1)
	}

	// Share source snapshots between concurrent dashboard polls
	source = repository.NewCachedSource(source, cache.New(cfg.Cache.TTL), cfg.Cache.TTL, log)

	// Create etcd view repository
	var viewRepo repository.ViewRepository
	if cfg.Etcd.Enabled {
		etcdRepo, err := repository.NewEtcdRepository(cfg.Etcd, log)
		if err != nil {
			log.Error("failed to create etcd repository",
				"error", err.Error(),
			)
			os.Exit(1)
		}
		defer etcdRepo.Close()

		viewRepo = etcdRepo
		log.Info("etcd client initialized",
			"endpoints", cfg.Etcd.Endpoints,
		)
	}

	views := view.NewStore(cfg.Views, viewRepo, log)

	// Create service
	svc := service.NewDashboardService(source, views, cfg.Source.Type, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create and start health checker
	healthChecker := healthcheck.NewChecker(&cfg.HealthCheck, source, cfg.Source.Type, log)
	if cfg.HealthCheck.Enabled {
		svc.SetHealthChecker(healthChecker)
	}
	healthChecker.Start(ctx)

	// Create HTTP handler
	handler := api.NewHandler(svc, cfg.Server.BasePath, log)

	// Create HTTP server
	srv := httpserver.New(
		cfg.Server.Addr,
		handler.Router(),
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		log,
	)

	log.Info("starting mission-control service")

	if err := srv.Run(ctx); err != nil {
		log.Error("server error",
			"error", err.Error(),
		)
	}

	// Graceful shutdown
	log.Info("shutting down health checker")
	stop()
	healthChecker.Stop()

	log.Info("shutdown complete")
}
