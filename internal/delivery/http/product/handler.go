package product_http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orderflow/fulfillment_system/internal/delivery/http/product/get"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type ProductGetter interface {
	Product(ctx context.Context, productUUID uuid.UUID) (*models.Product, error)
}

type Handler struct {
	log logger.Logger

	productGetter ProductGetter
}

func NewHandler(log logger.Logger, productGetter ProductGetter) *Handler {
	return &Handler{
		log:           log,
		productGetter: productGetter,
	}
}

func (h *Handler) InitRoutes() http.Handler {
	mux := chi.NewRouter()

	getHandler := get.NewHandler(h.log, h.productGetter)

	mux.Get("/products/{product_uuid}", getHandler.ByUUID)

	return mux
}
