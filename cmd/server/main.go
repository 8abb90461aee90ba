package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"framepickr/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	err = application.Run(ctx)
	application.Close()
	if err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
