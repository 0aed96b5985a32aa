package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	httpapp "github.com/orderflow/fulfillment_system/internal/app/http"
	"github.com/orderflow/fulfillment_system/internal/cache_impl"
	"github.com/orderflow/fulfillment_system/internal/clients/products"
	"github.com/orderflow/fulfillment_system/internal/clients/users"
	"github.com/orderflow/fulfillment_system/internal/config"
	"github.com/orderflow/fulfillment_system/internal/consumer"
	orderConsumers "github.com/orderflow/fulfillment_system/internal/consumers/order"
	order_http "github.com/orderflow/fulfillment_system/internal/delivery/http/order"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/internal/idempotency"
	"github.com/orderflow/fulfillment_system/internal/outbox"
	orderRepository "github.com/orderflow/fulfillment_system/internal/repository/order"
	createService "github.com/orderflow/fulfillment_system/internal/services/order/create"
	getService "github.com/orderflow/fulfillment_system/internal/services/order/get"
	"github.com/orderflow/fulfillment_system/pkg/brokers/rabbitmq"
	"github.com/orderflow/fulfillment_system/pkg/databases/postgres"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

const (
	cacheSize = 256
	cacheTTL  = 10 * time.Minute

	shutdownTimeout = 5 * time.Second
)

// Run wires the order service: HTTP API, outbox relay and the two saga
// consumers. A bus connect failure at startup disables the asynchronous
// parts but keeps the HTTP API serving.
func Run(ctx context.Context, log logger.Logger, cfg *config.Config) error {
	const op = "app.order.Run"

	db, err := postgres.NewPostgresDB(ctx, log, config.PostgresDSN(&cfg.Order.Postgres))
	if err != nil {
		return fmt.Errorf("%s: connect to postgres: %w", op, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error(op, logger.String("close postgres error", closeErr.Error()))
		}
	}()

	outboxRepo := outbox.New(log, db.GetDB())
	ledger := idempotency.NewLedger(log, db.GetDB())
	orderRepo := orderRepository.NewOrderRepository(log, db.GetDB(), outboxRepo, ledger)

	cache := cache_impl.NewCache(
		expirable.NewLRU[uuid.UUID, *models.Order](cacheSize, nil, cacheTTL),
		log,
	)

	createSvc := createService.New(
		log,
		cache,
		orderRepo,
		users.NewClient(cfg.Order.UserServiceURL),
		products.NewClient(cfg.Order.ProductServiceURL),
	)
	getSvc := getService.New(log, cache, orderRepo)

	handler := order_http.NewHandler(log, createSvc, getSvc)
	httpServer := httpapp.NewApp(log, handler.InitRoutes(), cfg.Order.HTTP.Port)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(httpServer.Run)
	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return httpServer.Stop(shutdownCtx)
	})

	clients := startBusWorkers(gCtx, g, log, cfg, outboxRepo, orderRepo, ledger)
	defer func() {
		for _, client := range clients {
			if closeErr := client.Close(); closeErr != nil {
				log.Error(op, logger.String("close bus client error", closeErr.Error()))
			}
		}
	}()

	return g.Wait()
}

// startBusWorkers connects one client per worker. When the bus is down the
// workers are skipped and the returned slice holds whatever did connect;
// the HTTP API is unaffected.
func startBusWorkers(
	ctx context.Context,
	g *errgroup.Group,
	log logger.Logger,
	cfg *config.Config,
	outboxRepo *outbox.Repository,
	orderRepo *orderRepository.Repository,
	ledger *idempotency.Ledger,
) []*rabbitmq.Client {
	const op = "app.order.startBusWorkers"

	var clients []*rabbitmq.Client

	relayClient, err := rabbitmq.NewClient(cfg.RabbitMQ.URL, log)
	if err != nil {
		log.Error(op, logger.String("bus unavailable, relay and consumers not started", err.Error()))
		return nil
	}
	clients = append(clients, relayClient)

	if err = relayClient.DeclareExchanges(); err != nil {
		log.Error(op, logger.String("declare exchanges error", err.Error()))
		return clients
	}

	relay := outbox.NewRelay(log, outboxRepo, relayClient, cfg.Order.Outbox.PollInterval, cfg.Order.Outbox.BatchSize)
	g.Go(func() error {
		return relay.Run(ctx)
	})

	paymentEventsClient, err := rabbitmq.NewClient(cfg.RabbitMQ.URL, log)
	if err != nil {
		log.Error(op, logger.String("payment events consumer not started", err.Error()))
		return clients
	}
	clients = append(clients, paymentEventsClient)

	paymentEvents := consumer.New(
		log,
		paymentEventsClient,
		orderConsumers.PaymentEventsQueue(),
		orderConsumers.NewPaymentEventsHandler(log, orderRepo, ledger).Handlers(),
	)
	g.Go(func() error {
		return paymentEvents.Run(ctx)
	})

	inventoryEventsClient, err := rabbitmq.NewClient(cfg.RabbitMQ.URL, log)
	if err != nil {
		log.Error(op, logger.String("inventory events consumer not started", err.Error()))
		return clients
	}
	clients = append(clients, inventoryEventsClient)

	inventoryEvents := consumer.New(
		log,
		inventoryEventsClient,
		orderConsumers.InventoryEventsQueue(),
		orderConsumers.NewInventoryEventsHandler(log, orderRepo, ledger).Handlers(),
	)
	g.Go(func() error {
		return inventoryEvents.Run(ctx)
	})

	return clients
}
