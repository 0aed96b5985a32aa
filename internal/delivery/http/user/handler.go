package user_http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orderflow/fulfillment_system/internal/delivery/http/user/get"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

type UserGetter interface {
	User(ctx context.Context, userUUID uuid.UUID) (*models.User, error)
}

type Handler struct {
	log logger.Logger

	userGetter UserGetter
}

func NewHandler(log logger.Logger, userGetter UserGetter) *Handler {
	return &Handler{
		log:        log,
		userGetter: userGetter,
	}
}

func (h *Handler) InitRoutes() http.Handler {
	mux := chi.NewRouter()

	getHandler := get.NewHandler(h.log, h.userGetter)

	mux.Get("/users/{user_uuid}", getHandler.ByUUID)

	return mux
}
