package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HandlerFactory builds a Handler from the options block of a HandlerSpec.
type HandlerFactory func(options map[string]interface{}) (Handler, error)

// HandlerRegistry maps handler kinds to factories. File-based descriptors
// reference kinds by name; embedders can register their own before the first
// build.
type HandlerRegistry struct {
	mu        sync.RWMutex
	factories map[string]HandlerFactory
}

// NewHandlerRegistry creates a registry pre-populated with the built-in
// handler kinds ("http", "static").
func NewHandlerRegistry() *HandlerRegistry {
	r := &HandlerRegistry{
		factories: make(map[string]HandlerFactory),
	}
	r.Register("http", newHTTPHandler)
	r.Register("static", newStaticHandler)
	return r
}

// Register adds or replaces a handler kind.
func (r *HandlerRegistry) Register(kind string, factory HandlerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Kinds returns the registered kind names, sorted.
func (r *HandlerRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Resolve instantiates a Handler from a spec.
func (r *HandlerRegistry) Resolve(spec HandlerSpec) (Handler, error) {
	r.mu.RLock()
	factory, ok := r.factories[spec.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", spec.Kind, ErrUnknownHandlerKind)
	}
	return factory(spec.Options)
}

// defaultOutboundTimeout bounds upstream calls made by the built-in http
// handler when a descriptor does not set its own.
const defaultOutboundTimeout = 15 * time.Second

// outboundClient is shared by all http-kind handlers. Per-request deadlines
// come from context, not from the client.
var outboundClient = &http.Client{}

// httpHandler forwards the request to an upstream URL and relays the
// response. It is the built-in handler kind for proxy-style capabilities.
type httpHandler struct {
	url          string
	method       string
	timeout      time.Duration
	forwardQuery bool
}

func newHTTPHandler(options map[string]interface{}) (Handler, error) {
	h := &httpHandler{
		method:       http.MethodGet,
		timeout:      defaultOutboundTimeout,
		forwardQuery: true,
	}

	url, ok := optString(options, "url")
	if !ok || url == "" {
		return nil, fmt.Errorf("http handler requires url: %w", ErrInvalidDescriptor)
	}
	h.url = url

	if m, ok := optString(options, "method"); ok {
		h.method = m
	}
	if t, ok := optString(options, "timeout"); ok {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("http handler timeout %q: %w", t, ErrInvalidDescriptor)
		}
		h.timeout = d
	}
	if fq, ok := options["forward_query"].(bool); ok {
		h.forwardQuery = fq
	}

	return h, nil
}

func (h *httpHandler) Serve(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	target := h.url
	if h.forwardQuery && r.URL.RawQuery != "" {
		sep := "?"
		if containsQuery(target) {
			sep = "&"
		}
		target = target + sep + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, h.method, target, nil)
	if err != nil {
		return fmt.Errorf("building upstream request: %w", err)
	}

	resp, err := outboundClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("upstream call to %s: %w", h.url, ErrTimeout)
		}
		return fmt.Errorf("upstream call to %s: %w", h.url, err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("relaying upstream response: %w", err)
	}
	return nil
}

// staticHandler returns a fixed JSON payload. Useful for info-style
// capabilities and as a predictable target in tests.
type staticHandler struct {
	body []byte
}

func newStaticHandler(options map[string]interface{}) (Handler, error) {
	body, ok := options["body"]
	if !ok {
		body = map[string]interface{}{"status": true}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("static handler body: %w", ErrInvalidDescriptor)
	}
	return &staticHandler{body: data}, nil
}

func (h *staticHandler) Serve(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write(h.body)
	return err
}

func optString(options map[string]interface{}, key string) (string, bool) {
	v, ok := options[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func containsQuery(url string) bool {
	for i := 0; i < len(url); i++ {
		if url[i] == '?' {
			return true
		}
	}
	return false
}
