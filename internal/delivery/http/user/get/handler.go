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

type userGetter interface {
	User(ctx context.Context, userUUID uuid.UUID) (*models.User, error)
}

type Handler struct {
	log logger.Logger

	userGetter userGetter
}

func NewHandler(log logger.Logger, userGetter userGetter) *Handler {
	return &Handler{
		log:        log,
		userGetter: userGetter,
	}
}

func (h *Handler) ByUUID(w http.ResponseWriter, r *http.Request) {
	userUUID, err := uuid.Parse(chi.URLParam(r, "user_uuid"))
	if err != nil {
		http.Error(w, "invalid user_uuid", http.StatusBadRequest)
		return
	}

	user, err := h.userGetter.User(r.Context(), userUUID)
	if err != nil {
		if errors.Is(err, internalErrors.ErrUserNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		h.log.Error("failed to get user", logger.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err = json.NewEncoder(w).Encode(user); err != nil {
		h.log.Error("failed to encode response", logger.String("error", err.Error()))
	}
}
