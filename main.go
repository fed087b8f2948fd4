package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"props-bible/config"
	"props-bible/core/appbootstrap"
	"props-bible/core/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger := utils.NewLoggerTo(os.Stdout, cfg.AppEnv)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := appbootstrap.InitRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("init: %v", err)
	}
	defer rt.Close()

	rt.StartBackground(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- rt.Server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Errorf("server: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rt.Server.Stop(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown: %v", err)
	}
	if err := rt.StopBackground(shutdownCtx); err != nil {
		logger.Errorf("background shutdown: %v", err)
	}
}
