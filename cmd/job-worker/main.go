// Package main 异步任务执行器入口（job-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mam-search-api/internal/config"
	"mam-search-api/internal/infrastructure/messaging"
	"mam-search-api/internal/wire"
	"mam-search-api/pkg/logger"
	"mam-search-api/pkg/tracer"
)

const (
	monitorInterval   = time.Minute
	dlqAlertThreshold = 100
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	streamCfg := cfg.Messaging.RedisStream
	backoff := messaging.DefaultBackoffConfig()
	if streamCfg.RetryBackoff.Initial > 0 {
		backoff = messaging.BackoffConfig{
			Initial:    streamCfg.RetryBackoff.Initial,
			Max:        streamCfg.RetryBackoff.Max,
			Multiplier: streamCfg.RetryBackoff.Multiplier,
		}
	}

	consumer := messaging.NewConsumer(worker.RedisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamMediaJobs,
		Group:         messaging.GroupWithPrefix(streamCfg.ConsumerGroupPrefix, messaging.ConsumerGroupJobWorker),
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  streamCfg.BlockTimeout,
		ClaimInterval: streamCfg.ClaimInterval,
		RetryLimit:    streamCfg.RetryLimit,
		Backoff:       backoff,
	})
	consumer.RegisterHandler(messaging.MessageTypeFaceIndex, worker.Indexer.HandleMessage)

	if err := consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go consumer.Monitor(ctx, monitorInterval, dlqAlertThreshold)

	log := logger.FromContext(ctx)
	log.Info("job-worker started", "stream", string(messaging.StreamMediaJobs))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("job-worker shutting down")
	consumer.Stop()
	cancel()
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
