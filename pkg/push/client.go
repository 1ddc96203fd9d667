// Package push wraps the HTTP push gateway the mobile apps register with.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/config"
	pkgerrors "github.com/sparkmeet/sparkmeet-backend/pkg/errors"
)

type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewClient(cfg config.PushConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push endpoint required")
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type pushRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Badge  *int      `json:"badge,omitempty"`
}

// Send posts one push to the gateway, which fans out to the user's devices.
func (c *Client) Send(ctx context.Context, userID uuid.UUID, title, body string, badge *int) error {
	payload, err := json.Marshal(pushRequest{UserID: userID, Title: title, Body: body, Badge: badge})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("push gateway error: %s", resp.Status)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		// 4xx means the request itself is bad; retrying will not help.
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("push gateway rejected request: %s", resp.Status))
	}
	return nil
}
