package core

import (
	"fmt"
	"net/http"
	"strings"
)

// CORSMiddleware creates a CORS middleware handler for the gateway.
// It handles preflight (OPTIONS) requests and adds the appropriate headers
// to responses based on the provided configuration.
//
// Supported origin forms:
//   - "*" for all origins
//   - exact origins ("https://example.com")
//   - wildcard subdomains ("*.example.com")
//   - wildcard ports ("http://localhost:*")
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")

			if isOriginAllowed(origin, config.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)

				if config.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if len(config.AllowedMethods) > 0 {
					w.Header().Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
				}
				if len(config.AllowedHeaders) > 0 {
					w.Header().Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
				}
				if len(config.ExposedHeaders) > 0 {
					w.Header().Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
				}
				if config.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", config.MaxAge))
				}
			}

			// Preflight requests end here.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed implements the origin matching rules. An empty origin
// (same-origin request) never matches; CORS headers are not needed there.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}

		// Wildcard subdomains, e.g. https://*.example.com
		if strings.Contains(allowed, "*.") {
			wildcardIdx := strings.Index(allowed, "*.")
			before := allowed[:wildcardIdx]
			after := allowed[wildcardIdx+2:]

			if !strings.HasPrefix(origin, before) || !strings.HasSuffix(origin, after) {
				continue
			}

			// The part standing in for the wildcard must be a non-empty
			// subdomain; the bare root domain does not match.
			middle := strings.TrimSuffix(origin[len(before):], after)
			if len(middle) > 0 {
				return true
			}
		}

		// Wildcard ports, e.g. http://localhost:*
		if strings.Contains(allowed, ":*") {
			base := strings.Split(allowed, ":*")[0]
			if strings.HasPrefix(origin, base+":") {
				return true
			}
		}
	}

	return false
}
