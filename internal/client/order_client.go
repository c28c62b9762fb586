package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/roamsim/esim-platform/reconcile-service/internal/models"
)

// ErrOrderNotFound distinguishes "the backend answered and knows nothing
// about this order" from a transport failure. The resumption router treats
// it as terminal; the generic poller retries both alike.
var ErrOrderNotFound = errors.New("order not found")

// OrderClient reads order records from the order service.
type OrderClient struct {
	baseURL     string
	internalKey string
	httpClient  *http.Client
}

func NewOrderClient(baseURL, internalKey string) *OrderClient {
	return &OrderClient{
		baseURL:     baseURL,
		internalKey: internalKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetOrder fetches one order by id.
func (c *OrderClient) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/internal/orders/"+orderID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-Internal-Secret", c.internalKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order-service returned status %d", resp.StatusCode)
	}

	var order models.Order
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("decode response: %w (body: %s)", err, string(respBody))
	}

	return &order, nil
}
