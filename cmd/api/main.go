package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Apurer/replenishment-engine/internal/app/api"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := api.Run(ctx); err != nil {
		log.Fatalf("replenishment API stopped: %v", err)
	}
}
