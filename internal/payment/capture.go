package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fieldmarket/marketplace/pkg/httpclient"
)

// CaptureClient confirms an order total with the payment gateway after
// placement commits. Capture is confirmation, not authorization; a failed
// capture is retried out of band and never unwinds the placed order.
type CaptureClient interface {
	Capture(ctx context.Context, orderID string, amount int64) error
}

// GatewayClient calls the payment gateway over HTTP behind a circuit
// breaker, so a struggling gateway cannot pile up placement latency.
type GatewayClient struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// NewGatewayClient creates a gateway-backed capture client.
func NewGatewayClient(client *httpclient.CircuitBreakerClient, baseURL string, logger *slog.Logger) *GatewayClient {
	return &GatewayClient{client: client, baseURL: baseURL, logger: logger}
}

type captureRequest struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}

// Capture posts the order total to the gateway's capture endpoint.
func (g *GatewayClient) Capture(ctx context.Context, orderID string, amount int64) error {
	body, err := json.Marshal(captureRequest{OrderID: orderID, Amount: amount})
	if err != nil {
		return fmt.Errorf("marshal capture request: %w", err)
	}

	resp, err := g.client.Post(ctx, g.baseURL+"/v1/captures", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("capture payment for order %s: %w", orderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("capture payment for order %s: gateway returned %d", orderID, resp.StatusCode)
	}

	g.logger.InfoContext(ctx, "payment captured",
		slog.String("order_id", orderID),
		slog.Int64("amount", amount),
	)

	return nil
}
