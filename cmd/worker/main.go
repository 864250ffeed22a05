package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/app"
	"github.com/ClipToZip/hackaton-soat11-videoprc/internal/infra/config"
	"github.com/ClipToZip/hackaton-soat11-videoprc/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting video-processor", zap.String("transport", cfg.Transport))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	fatalOnErr(err, "build application")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("video-processor started, consuming messages")

	if err := a.Run(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	log.Info("video-processor stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
