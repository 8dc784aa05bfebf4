package reqtokensdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
)

const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeUnauthorized   = "unauthorized"
	ErrorCodeForbidden      = "forbidden"
	ErrorCodeServerError    = "server_error"
	ErrorCodeRateLimited    = "rate_limit_exceeded"
)

// APIError is a non-2xx response from the service. Servers write it,
// clients get it back from every call that failed at the HTTP level.
type APIError struct {
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Description)
}

// WriteError writes e as a JSON error body.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, ErrorResponse{
		Error:            e.Code,
		ErrorDescription: e.Description,
	})
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "request token not found",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewAPIError creates an APIError with a custom description.
func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// parseErrorResponse turns a non-2xx response into an *APIError. Denial pages
// are plain text, their body becomes the description.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	code := ErrorCodeServerError
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		code = ErrorCodeUnauthorized
	case http.StatusForbidden:
		code = ErrorCodeForbidden
	case http.StatusNotFound:
		code = ErrorCodeNotFound
	case http.StatusTooManyRequests:
		code = ErrorCodeRateLimited
	}

	desc := strings.TrimSpace(string(body))
	if desc == "" {
		desc = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &APIError{StatusCode: resp.StatusCode, Code: code, Description: desc}
}
