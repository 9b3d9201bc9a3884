package client

import (
	"context"
	"net/http"
)

// HealthResponse represents the health check response of inventd.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Health checks the server health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.get(ctx, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Ready checks if the server is ready.
func (c *Client) Ready(ctx context.Context) error {
	err := c.get(ctx, "/ready", nil, nil)
	if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusServiceUnavailable {
		apiErr.Message = "server not ready"
	}
	return err
}
