package reqtokensdk

import (
	"context"
	"net/http"
	"net/url"
)

func (c *SDKClient) tokenPath(path, raw string) string {
	if raw == "" {
		return path
	}
	arg := c.QueryArg
	if arg == "" {
		arg = DefaultQueryArg
	}
	return path + "?" + url.Values{arg: {raw}}.Encode()
}

// WhoAmI calls the optional-token demo endpoint. raw may be empty.
func (c *SDKClient) WhoAmI(ctx context.Context, raw string) (*WhoAmIResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.tokenPath("/v1/whoami", raw), nil, nil)
	if err != nil {
		return nil, err
	}

	var out WhoAmIResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Consume calls the required-token demo endpoint.
func (c *SDKClient) Consume(ctx context.Context, raw string) (*ConsumeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.tokenPath("/v1/consume", raw), nil, nil)
	if err != nil {
		return nil, err
	}

	var out ConsumeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
