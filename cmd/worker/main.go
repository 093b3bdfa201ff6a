package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/xelth-com/berrycheck/internal/app"
	"github.com/xelth-com/berrycheck/internal/config"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Queue.RedisAddr == "" {
		log.Fatalf("REDIS_ADDR is required for the worker")
	}

	appLog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer appLog.Sync()

	a, err := app.New(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr: cfg.Queue.RedisAddr,
	}, asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
	})
	processor := queue.NewProcessor(a.Reports, appLog)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	appLog.Info("worker started", "redis", cfg.Queue.RedisAddr, "concurrency", cfg.Queue.Concurrency)
	if err := server.Run(mux); err != nil {
		appLog.Error("worker stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}
