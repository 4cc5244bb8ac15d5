// Package core implements the Libie API gateway: a capability registry with
// hot reload, an isolating dispatch wrapper, and the request-governance
// pipeline (global throughput limiting, per-client quotas, hit counters)
// applied to every capability invocation.
package core

import (
	"context"
	"net/http"
	"time"
)

// Logger interface - minimal logging interface
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// Handler is the uniform capability contract. Every capability, regardless of
// category, serves a request and either writes a response or returns an error.
// A returned error (or a panic) is converted by the dispatch wrapper into a
// structured failure envelope; it never escapes the process.
type Handler interface {
	Serve(w http.ResponseWriter, r *http.Request) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Serve calls f(w, r).
func (f HandlerFunc) Serve(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// Source supplies discoverable capability descriptors, grouped by category.
// Groups carry no ordering guarantee relative to each other.
type Source interface {
	// Categories enumerates the category names present in the source.
	Categories(ctx context.Context) ([]string, error)
	// Descriptors enumerates the raw descriptors within one category.
	Descriptors(ctx context.Context, category string) ([]RawDescriptor, error)
}

// WatchableSource is a Source whose backing data can change at runtime.
// The returned path is watched for changes to files matching the suffix.
type WatchableSource interface {
	Source
	WatchRoot() (path string, suffix string)
}

// Store is the external keyed-counter store used for hit counters and quota
// records. Implementations must provide per-key atomicity for Incr; the core
// performs no locking of its own over the store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns the remaining lifetime of a key. Keys without expiry or
	// missing keys report a negative duration.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Keys lists keys matching a glob-style pattern. Used only by low-volume
	// stats projections.
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// ReportSink persists user-submitted reports and fans them out to any
// interested consumer.
type ReportSink interface {
	SaveReport(ctx context.Context, report Report) error
}

// Report is a user-submitted problem report.
type Report struct {
	IP        string `json:"ip"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// NoOpLogger provides a no-op logger implementation
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}
