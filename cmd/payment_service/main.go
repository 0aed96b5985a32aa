package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/orderflow/fulfillment_system/internal/app/payment"
	"github.com/orderflow/fulfillment_system/internal/config"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

func main() {
	cfg := config.InitConfig()

	log := logger.NewSlogLogger(logger.SlogEnvironment(cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := payment.Run(ctx, log, &cfg); err != nil {
		log.Error("payment service stopped", logger.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("payment service stopped")
}
