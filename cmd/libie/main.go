package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Darrma23/Libie-Api/core"
)

func main() {
	cfg, err := core.NewConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	gateway, err := core.NewGateway(cfg)
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := gateway.Initialize(ctx); err != nil {
		log.Fatalf("initialize: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- gateway.Start(ctx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		gateway.Logger.Info("Signal received, shutting down", map[string]interface{}{
			"signal": sig.String(),
		})
	case err := <-errCh:
		if err != nil {
			log.Fatalf("serve: %v", err)
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := gateway.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
