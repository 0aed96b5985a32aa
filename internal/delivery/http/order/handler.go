package order_http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orderflow/fulfillment_system/internal/delivery/http/order/create"
	"github.com/orderflow/fulfillment_system/internal/delivery/http/order/get"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type OrderCreator interface {
	Create(ctx context.Context, order *models.Order) (string, error)
}

type OrderGetter interface {
	OrderByUUID(ctx context.Context, orderUUID uuid.UUID) (*models.Order, error)
	OrdersByUserUUID(ctx context.Context, userUUID uuid.UUID) ([]models.Order, error)
}

type Handler struct {
	log logger.Logger

	orderCreator OrderCreator
	orderGetter  OrderGetter
}

func NewHandler(log logger.Logger, orderCreator OrderCreator, orderGetter OrderGetter) *Handler {
	return &Handler{
		log:          log,
		orderCreator: orderCreator,
		orderGetter:  orderGetter,
	}
}

func (h *Handler) InitRoutes() http.Handler {
	mux := chi.NewRouter()

	createHandler := create.NewHandler(h.log, h.orderCreator)
	getHandler := get.NewHandler(h.log, h.orderGetter)

	mux.Route("/orders", func(r chi.Router) {
		r.Post("/", createHandler.Create)
		r.Get("/", getHandler.ByUser)
		r.Get("/{order_uuid}", getHandler.ByUUID)
	})

	return mux
}
