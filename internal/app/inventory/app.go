package inventory

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	httpapp "github.com/orderflow/fulfillment_system/internal/app/http"
	"github.com/orderflow/fulfillment_system/internal/config"
	"github.com/orderflow/fulfillment_system/internal/consumer"
	inventoryConsumers "github.com/orderflow/fulfillment_system/internal/consumers/inventory"
	product_http "github.com/orderflow/fulfillment_system/internal/delivery/http/product"
	"github.com/orderflow/fulfillment_system/internal/idempotency"
	inventoryRepository "github.com/orderflow/fulfillment_system/internal/repository/inventory"
	"github.com/orderflow/fulfillment_system/pkg/brokers/rabbitmq"
	"github.com/orderflow/fulfillment_system/pkg/databases/postgres"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Run wires the inventory service: product HTTP API, the reservation
// consumer and the compensation consumer. A bus connect failure at startup
// disables the consumers but keeps the HTTP API serving.
func Run(ctx context.Context, log logger.Logger, cfg *config.Config) error {
	const op = "app.inventory.Run"

	db, err := postgres.NewPostgresDB(ctx, log, config.PostgresDSN(&cfg.Inventory.Postgres))
	if err != nil {
		return fmt.Errorf("%s: connect to postgres: %w", op, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error(op, logger.String("close postgres error", closeErr.Error()))
		}
	}()

	ledger := idempotency.NewLedger(log, db.GetDB())
	inventoryRepo := inventoryRepository.NewInventoryRepository(log, db.GetDB(), ledger)

	handler := product_http.NewHandler(log, inventoryRepo)
	httpServer := httpapp.NewApp(log, handler.InitRoutes(), cfg.Inventory.HTTP.Port)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(httpServer.Run)
	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return httpServer.Stop(shutdownCtx)
	})

	clients := startConsumers(gCtx, g, log, cfg, inventoryRepo, ledger)
	defer func() {
		for _, client := range clients {
			if closeErr := client.Close(); closeErr != nil {
				log.Error(op, logger.String("close bus client error", closeErr.Error()))
			}
		}
	}()

	return g.Wait()
}

func startConsumers(
	ctx context.Context,
	g *errgroup.Group,
	log logger.Logger,
	cfg *config.Config,
	inventoryRepo *inventoryRepository.Repository,
	ledger *idempotency.Ledger,
) []*rabbitmq.Client {
	const op = "app.inventory.startConsumers"

	var clients []*rabbitmq.Client

	ordersClient, err := rabbitmq.NewClient(cfg.RabbitMQ.URL, log)
	if err != nil {
		log.Error(op, logger.String("bus unavailable, consumers not started", err.Error()))
		return nil
	}
	clients = append(clients, ordersClient)

	if err = ordersClient.DeclareExchanges(); err != nil {
		log.Error(op, logger.String("declare exchanges error", err.Error()))
		return clients
	}

	orderCreated := consumer.New(
		log,
		ordersClient,
		inventoryConsumers.OrdersQueue(),
		inventoryConsumers.NewOrderCreatedHandler(log, inventoryRepo, ledger, ordersClient).Handlers(),
	)
	g.Go(func() error {
		return orderCreated.Run(ctx)
	})

	paymentFailedClient, err := rabbitmq.NewClient(cfg.RabbitMQ.URL, log)
	if err != nil {
		log.Error(op, logger.String("compensation consumer not started", err.Error()))
		return clients
	}
	clients = append(clients, paymentFailedClient)

	paymentFailed := consumer.New(
		log,
		paymentFailedClient,
		inventoryConsumers.PaymentFailedQueue(),
		inventoryConsumers.NewPaymentFailedHandler(log, inventoryRepo, ledger).Handlers(),
	)
	g.Go(func() error {
		return paymentFailed.Run(ctx)
	})

	return clients
}
