package user

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	httpapp "github.com/orderflow/fulfillment_system/internal/app/http"
	"github.com/orderflow/fulfillment_system/internal/config"
	user_http "github.com/orderflow/fulfillment_system/internal/delivery/http/user"
	userRepository "github.com/orderflow/fulfillment_system/internal/repository/user"
	"github.com/orderflow/fulfillment_system/pkg/databases/postgres"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

// Run wires the user service, a plain HTTP lookup API with no bus side.
func Run(ctx context.Context, log logger.Logger, cfg *config.Config) error {
	const op = "app.user.Run"

	db, err := postgres.NewPostgresDB(ctx, log, config.PostgresDSN(&cfg.User.Postgres))
	if err != nil {
		return fmt.Errorf("%s: connect to postgres: %w", op, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error(op, logger.String("close postgres error", closeErr.Error()))
		}
	}()

	userRepo := userRepository.NewUserRepository(log, db.GetDB())

	handler := user_http.NewHandler(log, userRepo)
	httpServer := httpapp.NewApp(log, handler.InitRoutes(), cfg.User.HTTP.Port)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(httpServer.Run)
	g.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return httpServer.Stop(shutdownCtx)
	})

	return g.Wait()
}
