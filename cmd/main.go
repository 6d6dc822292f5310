package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lecternfm/lectern-backend/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		application.Log.Info("shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), application.Cfg.ShutdownGrace)
		defer cancel()
		if err := application.Shutdown(ctx); err != nil {
			application.Log.Warn("graceful shutdown failed", "error", err)
		}
		<-errCh
	case err := <-errCh:
		if err != nil {
			application.Log.Error("server exited", "error", err)
			application.Close()
			os.Exit(1)
		}
	}
}
