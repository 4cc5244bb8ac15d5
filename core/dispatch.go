package core

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// capabilityWriter captures a handler's output so a failure after a partial
// write can still be replaced by one complete failure envelope.
type capabilityWriter struct {
	header     http.Header
	statusCode int
	wroteCode  bool
	body       bytes.Buffer
}

func newCapabilityWriter() *capabilityWriter {
	return &capabilityWriter{
		header:     make(http.Header),
		statusCode: http.StatusOK,
	}
}

func (cw *capabilityWriter) Header() http.Header {
	return cw.header
}

func (cw *capabilityWriter) WriteHeader(code int) {
	if !cw.wroteCode {
		cw.statusCode = code
		cw.wroteCode = true
	}
}

func (cw *capabilityWriter) Write(b []byte) (int, error) {
	if !cw.wroteCode {
		cw.wroteCode = true
	}
	return cw.body.Write(b)
}

func (cw *capabilityWriter) copyTo(w http.ResponseWriter) {
	for k, vals := range cw.header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(cw.statusCode)
	_, _ = w.Write(cw.body.Bytes())
}

// Dispatcher looks up the requested route in the currently published snapshot
// and invokes the capability handler inside a failure boundary. Lookups take
// no lock: the snapshot pointer read is the only synchronization, so any
// number of dispatches run concurrently, possibly against different published
// snapshots while a reload is in flight.
type Dispatcher struct {
	reloader *Reloader
	logger   Logger
}

// NewDispatcher creates the dispatch wrapper.
func NewDispatcher(reloader *Reloader, logger Logger) *Dispatcher {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Dispatcher{reloader: reloader, logger: logger}
}

// ServeHTTP implements http.Handler for everything under the API prefix.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()[:8]
	w.Header().Set("X-Request-Id", requestID)

	snapshot := d.reloader.Current()
	if snapshot == nil {
		d.notFound(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, APIPrefix)
	route, ok := snapshot.Table.Lookup(r.Method, path)
	if !ok {
		d.notFound(w, r)
		return
	}

	cw := newCapabilityWriter()
	err := d.invoke(route, cw, r)
	if err != nil {
		d.logger.Error("Capability failed", map[string]interface{}{
			"request_id": requestID,
			"capability": route.Descriptor.Name,
			"method":     r.Method,
			"path":       r.URL.Path,
			"error":      err,
		})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	cw.copyTo(w)
}

// invoke runs the handler, converting panics into errors so a misbehaving
// capability can never take down the process or a concurrent request.
func (d *Dispatcher) invoke(route *Route, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("capability panic: %v", rec)
		}
	}()
	return route.Handler.Serve(w, r)
}

func (d *Dispatcher) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, apiResponse{
		"status":              false,
		"message":             "Endpoint tidak ditemukan",
		"requested_url":       r.URL.Path,
		"method":              r.Method,
		"available_endpoints": APIPrefix + "/info",
	})
}
