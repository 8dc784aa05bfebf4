package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Responses carrying tokens must never be cached by intermediaries.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// StatusRecorder remembers the status code written through it. Handlers that
// never call WriteHeader are recorded as 200.
type StatusRecorder struct {
	http.ResponseWriter

	status      int
	wroteHeader bool
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rw *StatusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *StatusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Status returns the recorded status code.
func (rw *StatusRecorder) Status() int { return rw.status }

// WroteHeader reports whether anything has been sent to the client yet.
func (rw *StatusRecorder) WroteHeader() bool { return rw.wroteHeader }

func (rw *StatusRecorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
