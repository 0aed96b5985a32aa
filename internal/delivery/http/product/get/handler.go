package get

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orderflow/fulfillment_system/internal/domain/models"
	internalErrors "github.com/orderflow/fulfillment_system/internal/lib/errors"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type productGetter interface {
	Product(ctx context.Context, productUUID uuid.UUID) (*models.Product, error)
}

type Handler struct {
	log logger.Logger

	productGetter productGetter
}

func NewHandler(log logger.Logger, productGetter productGetter) *Handler {
	return &Handler{
		log:           log,
		productGetter: productGetter,
	}
}

func (h *Handler) ByUUID(w http.ResponseWriter, r *http.Request) {
	productUUID, err := uuid.Parse(chi.URLParam(r, "product_uuid"))
	if err != nil {
		http.Error(w, "invalid product_uuid", http.StatusBadRequest)
		return
	}

	product, err := h.productGetter.Product(r.Context(), productUUID)
	if err != nil {
		if errors.Is(err, internalErrors.ErrProductNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		h.log.Error("failed to get product", logger.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err = json.NewEncoder(w).Encode(product); err != nil {
		h.log.Error("failed to encode response", logger.String("error", err.Error()))
	}
}
