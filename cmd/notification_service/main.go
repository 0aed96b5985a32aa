package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/orderflow/fulfillment_system/internal/app/notification"
	"github.com/orderflow/fulfillment_system/internal/config"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

func main() {
	cfg := config.InitConfig()

	log := logger.NewSlogLogger(logger.SlogEnvironment(cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := notification.Run(ctx, log, &cfg); err != nil {
		log.Error("notification service stopped", logger.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("notification service stopped")
}
