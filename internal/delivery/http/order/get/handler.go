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

type orderGetter interface {
	OrderByUUID(ctx context.Context, orderUUID uuid.UUID) (*models.Order, error)
	OrdersByUserUUID(ctx context.Context, userUUID uuid.UUID) ([]models.Order, error)
}

type Handler struct {
	log logger.Logger

	orderGetter orderGetter
}

func NewHandler(log logger.Logger, orderGetter orderGetter) *Handler {
	return &Handler{
		log:         log,
		orderGetter: orderGetter,
	}
}

func (h *Handler) ByUUID(w http.ResponseWriter, r *http.Request) {
	orderUUID, err := uuid.Parse(chi.URLParam(r, "order_uuid"))
	if err != nil {
		http.Error(w, "invalid order_uuid", http.StatusBadRequest)
		return
	}

	order, err := h.orderGetter.OrderByUUID(r.Context(), orderUUID)
	if err != nil {
		if errors.Is(err, internalErrors.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		h.log.Error("failed to get order", logger.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, order)
}

func (h *Handler) ByUser(w http.ResponseWriter, r *http.Request) {
	userUUID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	orders, err := h.orderGetter.OrdersByUserUUID(r.Context(), userUUID)
	if err != nil {
		h.log.Error("failed to get orders", logger.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, orders)
}

func writeJSON(w http.ResponseWriter, log logger.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", logger.String("error", err.Error()))
	}
}
