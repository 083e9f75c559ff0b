package main

import (
	"context"
	"os"
	"time"

	"riparto/internal/amqp"
	"riparto/internal/backend"
	"riparto/internal/cache"
	"riparto/internal/calculator"
	"riparto/internal/cli"
	apphttp "riparto/internal/http"
	applog "riparto/internal/log"
	"riparto/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	logger.Info("Starting riparto server", "port", cfg.Port)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// AMQP is optional: without it recomputes run in-process.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, recomputes will run in-process", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled, recomputes will run in-process")
	}

	exporter, err := backend.NewExporter(context.Background(), backend.ConfigFromApp(cfg))
	if err != nil {
		logger.Error("Failed to initialize export backend", "error", err)
		os.Exit(1)
	}

	resultCache := cache.NewLRUCache[map[string]*calculator.UnitResult](cfg.CacheSize, cfg.CacheTTL)
	dist := services.NewDistributionService(repo, resultCache, publisher, exporter)

	serverCfg := apphttp.DefaultServerConfig()
	serverCfg.Port = cfg.Port
	srv := apphttp.NewServer(serverCfg, repo, dist, resultCache)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
