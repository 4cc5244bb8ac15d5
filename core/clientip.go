package core

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller address for quota accounting, trusting exactly
// one reverse-proxy hop. The rightmost X-Forwarded-For entry is the one the
// trusted proxy appended; anything further left is client-controlled and
// ignored. Falls back to X-Real-IP, then to the connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		for i := len(parts) - 1; i >= 0; i-- {
			if ip := strings.TrimSpace(parts[i]); ip != "" {
				return ip
			}
		}
	}

	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
