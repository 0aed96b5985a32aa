package products

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	internalErrors "github.com/orderflow/fulfillment_system/internal/lib/errors"
)

const requestTimeout = 3 * time.Second

// Client fetches current product prices from the inventory service. Order
// creation uses the price at creation time, not a client-supplied one.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type productResponse struct {
	ProductUUID uuid.UUID `json:"product_uuid"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
}

func (c *Client) Price(ctx context.Context, productUUID uuid.UUID) (float64, error) {
	const op = "clients.products.Price"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/products/%s", c.baseURL, productUUID), nil)
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: do request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: product %s: %w", op, productUUID, internalErrors.ErrProductNotFound)
	}

	var product productResponse
	if err = json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return 0, fmt.Errorf("%s: decode response: %w", op, err)
	}

	return product.Price, nil
}
