package reqtokensdk

import (
	"net/http"
	"strings"
	"time"
)

// DefaultQueryArg is the query string key the service reads tokens from.
const DefaultQueryArg = "rt"

// SDKClient is a client for the request token service.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// AdminToken is sent as a bearer credential on admin API calls.
	AdminToken string

	// QueryArg is the query key used when presenting tokens. Defaults to "rt".
	QueryArg string
}

// NewSDKClient creates a client for the service at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		QueryArg: DefaultQueryArg,
	}
}

// WithAdminToken returns a copy of c that authenticates admin calls with token.
func (c *SDKClient) WithAdminToken(token string) *SDKClient {
	cp := *c
	cp.AdminToken = token
	return &cp
}
