package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"potholewatch/internal/app"
)

func main() {
	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx)
	if err := application.Close(); err != nil {
		log.Printf("Failed to close cleanly: %v", err)
	}
	if runErr != nil {
		log.Fatalf("Failed to start server: %v", runErr)
	}
}
