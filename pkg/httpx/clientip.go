package httpx

import (
	"net"
	"net/http"
	"strings"
)

// ParseXFF returns the first address of an X-Forwarded-For chain. The header
// lists the originating client first followed by each proxy hop.
func ParseXFF(header string) string {
	first, _, _ := strings.Cut(header, ",")
	return strings.TrimSpace(first)
}

// ClientIP extracts the client IP address from the request, preferring the
// first X-Forwarded-For hop over the direct peer address.
func ClientIP(r *http.Request) string {
	if ip := ParseXFF(r.Header.Get("X-Forwarded-For")); ip != "" {
		return ip
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
