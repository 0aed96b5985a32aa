package notification

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/orderflow/fulfillment_system/internal/config"
	"github.com/orderflow/fulfillment_system/internal/consumer"
	notificationConsumers "github.com/orderflow/fulfillment_system/internal/consumers/notification"
	"github.com/orderflow/fulfillment_system/internal/idempotency"
	notificationRepository "github.com/orderflow/fulfillment_system/internal/repository/notification"
	"github.com/orderflow/fulfillment_system/pkg/brokers/rabbitmq"
	"github.com/orderflow/fulfillment_system/pkg/databases/postgres"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

// Run wires the notification service. A bus connect failure at startup
// leaves the process idling instead of crash-looping; a restart with the
// bus back picks the queue up where it left off.
func Run(ctx context.Context, log logger.Logger, cfg *config.Config) error {
	const op = "app.notification.Run"

	db, err := postgres.NewPostgresDB(ctx, log, config.PostgresDSN(&cfg.Notification.Postgres))
	if err != nil {
		return fmt.Errorf("%s: connect to postgres: %w", op, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error(op, logger.String("close postgres error", closeErr.Error()))
		}
	}()

	ledger := idempotency.NewLedger(log, db.GetDB())
	notificationRepo := notificationRepository.NewNotificationRepository(log, db.GetDB(), ledger)

	busClient, err := rabbitmq.NewClient(cfg.RabbitMQ.URL, log)
	if err != nil {
		return idleWithoutBus(ctx, log, err)
	}
	defer func() {
		if closeErr := busClient.Close(); closeErr != nil {
			log.Error(op, logger.String("close bus client error", closeErr.Error()))
		}
	}()

	if err = busClient.DeclareExchanges(); err != nil {
		return idleWithoutBus(ctx, log, err)
	}

	orderCreated := consumer.New(
		log,
		busClient,
		notificationConsumers.Queue(),
		notificationConsumers.NewOrderCreatedHandler(log, notificationRepo, ledger).Handlers(),
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return orderCreated.Run(gCtx)
	})

	return g.Wait()
}

// idleWithoutBus keeps a consumer-only process alive when the bus is
// unreachable at startup, blocking until shutdown.
func idleWithoutBus(ctx context.Context, log logger.Logger, busErr error) error {
	const op = "app.notification.idleWithoutBus"

	log.Error(op, logger.String("bus unavailable, consumer not started", busErr.Error()))

	<-ctx.Done()
	return nil
}
