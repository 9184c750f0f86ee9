package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller's address without the port. Proxy headers are
// only reflected here when the router installed chi's RealIP, which rewrites
// RemoteAddr.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
