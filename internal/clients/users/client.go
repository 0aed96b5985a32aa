package users

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	internalErrors "github.com/orderflow/fulfillment_system/internal/lib/errors"
)

const requestTimeout = 3 * time.Second

// Client checks user existence against the user service. A failure here
// rejects order creation synchronously; no event is emitted.
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

func (c *Client) Exists(ctx context.Context, userUUID uuid.UUID) error {
	const op = "clients.users.Exists"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s", c.baseURL, userUUID), nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w", op, internalErrors.ErrUserNotFound)
	}

	return nil
}
