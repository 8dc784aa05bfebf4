package reqtokensdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// CreateToken issues a new request token.
func (c *SDKClient) CreateToken(ctx context.Context, req CreateTokenRequest) (*CreateTokenResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.doAdminRequest(ctx, http.MethodPost, "/v1/tokens", bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}

	var out CreateTokenResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetToken returns the stored state of a token.
func (c *SDKClient) GetToken(ctx context.Context, id string) (*TokenState, error) {
	resp, err := c.doAdminRequest(ctx, http.MethodGet, "/v1/tokens/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}

	var out TokenState
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExpireToken ends a token's validity immediately. Its history is kept.
func (c *SDKClient) ExpireToken(ctx context.Context, id string) (*TokenState, error) {
	resp, err := c.doAdminRequest(ctx, http.MethodPost, "/v1/tokens/"+url.PathEscape(id)+"/expire", nil, nil)
	if err != nil {
		return nil, err
	}

	var out TokenState
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsageLogs returns every recorded attempt to use a token, oldest first.
func (c *SDKClient) ListUsageLogs(ctx context.Context, id string) (*ListUsageLogsResponse, error) {
	resp, err := c.doAdminRequest(ctx, http.MethodGet, "/v1/tokens/"+url.PathEscape(id)+"/logs", nil, nil)
	if err != nil {
		return nil, err
	}

	var out ListUsageLogsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
