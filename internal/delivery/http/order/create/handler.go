package create

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/orderflow/fulfillment_system/internal/domain/models"
	internalErrors "github.com/orderflow/fulfillment_system/internal/lib/errors"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type orderCreator interface {
	Create(ctx context.Context, order *models.Order) (string, error)
}

type Handler struct {
	log logger.Logger

	orderCreator orderCreator
}

func NewHandler(log logger.Logger, orderCreator orderCreator) *Handler {
	return &Handler{
		log:          log,
		orderCreator: orderCreator,
	}
}

// Create rejects pre-saga validation failures synchronously; everything
// after the order row commits surfaces asynchronously as status changes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var request CreateOrderRequest

	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		h.log.Error("failed to decode request", logger.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err = request.validateRequest(); err != nil {
		h.log.Error("failed to validate request", logger.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order := request.toDTO()
	orderUUID, err := h.orderCreator.Create(r.Context(), &order)
	if err != nil {
		if errors.Is(err, internalErrors.ErrUserNotFound) || errors.Is(err, internalErrors.ErrProductNotFound) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		h.log.Error("failed to create order", logger.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err = json.NewEncoder(w).Encode(
		map[string]string{
			"order_uuid": orderUUID,
			"status":     string(models.OrderStatusPending),
		},
	); err != nil {
		h.log.Error("failed to encode response", logger.String("error", err.Error()))
	}
}
