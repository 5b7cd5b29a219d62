package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/pdmews/internal/bootstrap"
	"github.com/turtacn/pdmews/internal/config"
	"github.com/turtacn/pdmews/internal/infrastructure/monitoring"
	"github.com/turtacn/pdmews/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// Logger for startup
	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info"})
	if err != nil {
		log.Fatalf("Failed to create startup logger: %v", err)
	}

	// Load config
	cfg, v, err := config.LoadConfig(*configPath, startupLogger)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	config.WatchLogLevel(v, appLogger, appLogger.SetLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := bootstrap.Build(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize components", err)
	}

	jobDone := make(chan struct{})
	if cfg.Risk.ReevaluationEnabled {
		go func() {
			defer close(jobDone)
			container.Job.Run(ctx)
		}()
	} else {
		close(jobDone)
	}

	srv := container.Router()
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(ctx, "HTTP server failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info(context.Background(), "Shutting down", logger.String("reason", context.Cause(ctx).Error()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown failed", err)
	}
	select {
	case <-jobDone:
	case <-shutdownCtx.Done():
		appLogger.Warn(shutdownCtx, "Re-evaluation sweep still running at shutdown deadline")
	}
	if err := container.Close(); err != nil {
		appLogger.Error(shutdownCtx, "Failed to release resources", err)
	}
}
