package core

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// envelopeWriter buffers the response so the attribution field can be
// injected once the downstream handler has finished writing.
type envelopeWriter struct {
	http.ResponseWriter
	statusCode int
	wroteCode  bool
	body       bytes.Buffer
}

func (ew *envelopeWriter) WriteHeader(code int) {
	if !ew.wroteCode {
		ew.statusCode = code
		ew.wroteCode = true
	}
}

func (ew *envelopeWriter) Write(b []byte) (int, error) {
	if !ew.wroteCode {
		ew.statusCode = http.StatusOK
		ew.wroteCode = true
	}
	return ew.body.Write(b)
}

// EnvelopeMiddleware injects the fixed attribution field into every JSON
// object response, regardless of which downstream stage produced it. Non-JSON
// and non-object bodies pass through untouched.
func EnvelopeMiddleware(creator string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ew := &envelopeWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ew, r)

			payload := ew.body.Bytes()
			if isJSONObject(ew.Header().Get("Content-Type"), payload) {
				var obj map[string]interface{}
				if err := json.Unmarshal(payload, &obj); err == nil {
					obj["creator"] = creator
					if injected, err := json.Marshal(obj); err == nil {
						payload = injected
					}
				}
			}

			ew.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			w.WriteHeader(ew.statusCode)
			_, _ = w.Write(payload)
		})
	}
}

func isJSONObject(contentType string, body []byte) bool {
	if !strings.Contains(contentType, "application/json") {
		return false
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
