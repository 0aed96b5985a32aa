package create

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/fulfillment_system/internal/delivery/http/order/mocks"
	"github.com/orderflow/fulfillment_system/internal/domain/models"
	internalErrors "github.com/orderflow/fulfillment_system/internal/lib/errors"
	"github.com/orderflow/fulfillment_system/pkg/logger"
)

func TestCreateOrder(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	creator := mocks.NewMockOrderCreator(ctl)
	h := NewHandler(log, creator)

	userUUID := uuid.New()
	productUUID := uuid.New()
	orderUUID := uuid.New()

	expectedOrder := models.Order{
		UserUUID: userUUID,
		Items: []models.OrderItem{
			{ProductUUID: productUUID, Quantity: 2},
		},
	}

	creator.EXPECT().
		Create(gomock.Any(), &expectedOrder).
		Return(orderUUID.String(), nil)

	reqBody := fmt.Sprintf(`
		{
			"user_uuid": %q,
			"items": [
				{
					"product_uuid": %q,
					"quantity": 2
				}
			]
		}
	`, userUUID, productUUID)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(reqBody))
	defer req.Body.Close()

	req.Header.Set("Content-Type", "application/json")

	h.Create(rec, req)

	res := rec.Result()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	expected := fmt.Sprintf("{\"order_uuid\":%q,\"status\":\"pending\"}\n", orderUUID)
	require.Equal(t, expected, string(data))
}

func TestCreateOrderUnknownUser(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	creator := mocks.NewMockOrderCreator(ctl)
	h := NewHandler(log, creator)

	creator.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return("", fmt.Errorf("services.order.create.Create: %w", internalErrors.ErrUserNotFound))

	reqBody := fmt.Sprintf(`
		{
			"user_uuid": %q,
			"items": [
				{
					"product_uuid": %q,
					"quantity": 1
				}
			]
		}
	`, uuid.New(), uuid.New())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(reqBody))
	defer req.Body.Close()

	h.Create(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Result().StatusCode)
}

func TestCreateOrderInvalidBody(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	// The creator must not be reached on a validation failure.
	creator := mocks.NewMockOrderCreator(ctl)
	h := NewHandler(log, creator)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{"user_uuid":"nope","items":[]}`))
	defer req.Body.Close()

	h.Create(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Result().StatusCode)
}
