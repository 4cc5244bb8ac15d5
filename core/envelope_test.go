package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func envelopedHandler(t *testing.T, inner http.HandlerFunc) http.Handler {
	t.Helper()
	return EnvelopeMiddleware("Himejima")(inner)
}

func TestEnvelopeMiddleware_InjectsCreator(t *testing.T) {
	handler := envelopedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"result":"ok"}`))
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/x", nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["creator"] != "Himejima" {
		t.Errorf("creator = %v", body["creator"])
	}
	if body["status"] != true || body["result"] != "ok" {
		t.Errorf("original fields lost: %v", body)
	}

	if cl := rec.Header().Get("Content-Length"); cl != strconv.Itoa(rec.Body.Len()) {
		t.Errorf("Content-Length %s does not match body length %d", cl, rec.Body.Len())
	}
}

func TestEnvelopeMiddleware_AppliesToErrorResponses(t *testing.T) {
	handler := envelopedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint tidak ditemukan")
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["creator"] != "Himejima" {
		t.Errorf("creator missing from error envelope: %v", body)
	}
	if body["status"] != false {
		t.Errorf("status: %v", body["status"])
	}
}

func TestEnvelopeMiddleware_SkipsNonJSON(t *testing.T) {
	handler := envelopedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("pong"))
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))

	if got := rec.Body.String(); got != "pong" {
		t.Errorf("plain body modified: %q", got)
	}
}

func TestEnvelopeMiddleware_SkipsJSONArrays(t *testing.T) {
	handler := envelopedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[1,2,3]`))
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))

	if got := rec.Body.String(); got != `[1,2,3]` {
		t.Errorf("array body modified: %q", got)
	}
}

func TestEnvelopeMiddleware_PreservesStatusCode(t *testing.T) {
	handler := envelopedHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"status":false}`))
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status %d, want 418", rec.Code)
	}
}
