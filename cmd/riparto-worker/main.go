package main

import (
	"context"
	"os"
	"time"

	"riparto/internal/amqp"
	"riparto/internal/cache"
	"riparto/internal/calculator"
	"riparto/internal/cli"
	applog "riparto/internal/log"
	"riparto/internal/services"
	"riparto/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting riparto-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	resultCache := cache.NewLRUCache[map[string]*calculator.UnitResult](cfg.CacheSize, cfg.CacheTTL)
	dist := services.NewDistributionService(repo, resultCache, amqpClient, nil)
	recomputeWorker := worker.NewRecomputeWorker(dist, cfg.RecomputeTimeout)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Recover from requests lost while the worker was down.
	if err := recomputeWorker.StartupRecompute(ctx); err != nil {
		logger.Error("Startup recompute failed", "error", err)
	}

	if err := amqpClient.ConsumeRecomputeRequests(ctx, func(msg *amqp.RecomputeRequestMessage) error {
		return recomputeWorker.HandleRecomputeRequest(ctx, msg)
	}); err != nil && err != context.Canceled {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
