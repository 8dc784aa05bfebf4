package reqtokensdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// NotReadyError is returned by GetReadiness when the service answers 503.
// Health holds the report so callers can see which dependency failed.
type NotReadyError struct {
	Health HealthResponse
}

func (e *NotReadyError) Error() string {
	var failing []string
	if c := e.Health.Checks; c != nil {
		if c.Database != "ok" {
			failing = append(failing, "database: "+c.Database)
		}
		if c.Signer != "ok" {
			failing = append(failing, "signer: "+c.Signer)
		}
	}
	if len(failing) == 0 {
		return fmt.Sprintf("reqtoken service not ready (%s)", e.Health.Status)
	}
	return fmt.Sprintf("reqtoken service not ready (%s): %s", e.Health.Status, strings.Join(failing, "; "))
}

// GetLiveness reports whether the process is up. It never consults the
// database or the signer.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetReadiness reports whether the service can verify tokens. A degraded
// service yields a *NotReadyError alongside the report.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		var health HealthResponse
		if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
			return nil, err
		}
		return &health, nil
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil || health.Status == "" {
		return nil, parseErrorResponse(resp, body)
	}
	return &health, &NotReadyError{Health: health}
}
