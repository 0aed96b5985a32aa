package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orderflow/fulfillment_system/pkg/logger"
)

func TestIdleWithoutBusBlocksUntilShutdown(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- idleWithoutBus(ctx, log, errors.New("dial tcp: connection refused"))
	}()

	select {
	case err := <-done:
		t.Fatalf("returned before shutdown: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("did not return after shutdown")
	}
}
