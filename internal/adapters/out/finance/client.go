// Package finance is the HTTP client for the finance collaborator. Both
// calls are fire-and-forget from the caller's perspective: the order's state
// transition has already committed, so a failure here is reported but never
// rolled back.
package finance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ordering/internal/core/domain/model/order"
	"ordering/internal/core/domain/services"
	"ordering/internal/core/ports"
	"ordering/internal/pkg/errs"
)

const defaultTimeout = 5 * time.Second

// NewOrderRequest is the body of the new-order notification.
type NewOrderRequest struct {
	Order   order.Snapshot  `json:"order"`
	Charges services.Charges `json:"charges"`
}

var _ ports.FinanceGateway = (*Client)(nil)

// Client implements ports.FinanceGateway against the collaborator's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errs.NewValueIsRequiredError("baseURL")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With("component", "finance_client"),
	}, nil
}

// NotifyOrderPaid posts the paid order with its charge breakdown.
func (c *Client) NotifyOrderPaid(ctx context.Context, snapshot order.Snapshot, charges services.Charges) error {
	body := NewOrderRequest{Order: snapshot, Charges: charges}
	endpoint := c.baseURL + "/api/v1/orders"

	if err := c.post(ctx, endpoint, body, snapshot.ID); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Notified finance of paid order",
		"order_id", snapshot.ID, "total", charges.Total)
	return nil
}

// NotifyOrderClosed posts the close notification for a closed order.
func (c *Client) NotifyOrderClosed(ctx context.Context, orderID string) error {
	endpoint := fmt.Sprintf("%s/api/v1/orders/%s/close", c.baseURL, orderID)

	if err := c.post(ctx, endpoint, nil, orderID); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Notified finance of closed order", "order_id", orderID)
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, body any, orderID string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errs.NewDownstreamCallFailureError(endpoint, orderID, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return errs.NewDownstreamCallFailureError(endpoint, orderID, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.NewDownstreamCallFailureError(endpoint, orderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errs.NewDownstreamCallFailureError(endpoint, orderID,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return nil
}
