package core

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{"remote addr only", "203.0.113.7:51234", "", "", "203.0.113.7"},
		{"remote addr without port", "203.0.113.7", "", "", "203.0.113.7"},
		{"single forwarded entry", "10.0.0.1:80", "198.51.100.3", "", "198.51.100.3"},
		{"rightmost forwarded entry wins", "10.0.0.1:80", "1.2.3.4, 198.51.100.3", "", "198.51.100.3"},
		{"forwarded entries with spaces", "10.0.0.1:80", " 1.2.3.4 , 198.51.100.3 ", "", "198.51.100.3"},
		{"empty rightmost entry skipped", "10.0.0.1:80", "198.51.100.3,", "", "198.51.100.3"},
		{"real ip fallback", "10.0.0.1:80", "", "198.51.100.9", "198.51.100.9"},
		{"forwarded beats real ip", "10.0.0.1:80", "198.51.100.3", "198.51.100.9", "198.51.100.3"},
		{"ipv6 remote addr", "[2001:db8::1]:443", "", "", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/cuaca", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}

			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
