// Package main runs the local dev backend for taskpad.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskpad/internal/devserver"
	"taskpad/internal/logger"
)

func main() {
	logger.Init()
	cfg := devserver.Load()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	application, err := devserver.New(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize devserver", map[string]any{
			"error": err.Error(),
		})
	}

	go func() {
		if err := application.Run(); err != nil {
			logger.Fatal("http server failed", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	logger.Info("devserver started", map[string]any{
		"port": cfg.AppPort,
	})

	<-ctx.Done()

	logger.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", map[string]any{
			"error": err.Error(),
		})
	}

	logger.Info("devserver stopped cleanly", nil)
}
