package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Gateway assembles the registry, reloader, governance pipeline and catalog
// surface into one HTTP server.
type Gateway struct {
	Config *Config
	Logger Logger

	store      Store
	reports    ReportSink
	handlers   *HandlerRegistry
	builder    *Builder
	reloader   *Reloader
	governance *Governance
	dispatcher *Dispatcher

	server    *http.Server
	mux       *http.ServeMux
	startedAt time.Time
}

// NewGateway creates a gateway from configuration. The capability source is
// taken from Config.Source unless overridden with SetSource before
// Initialize.
func NewGateway(config *Config) (*Gateway, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := NewSimpleLogger(config.Logging.Level, config.Logging.Format)
	if config.Development.Enabled {
		logger.SetLevel("debug")
	}

	g := &Gateway{
		Config:   config,
		Logger:   logger,
		handlers: NewHandlerRegistry(),
		mux:      http.NewServeMux(),
	}

	g.initStore()
	g.builder = NewBuilder(g.handlers, g.Logger)
	g.governance = NewGovernance(config.Governance, g.store, g.Logger)

	return g, nil
}

// initStore selects the store backend. A Redis connection failure falls back
// to the in-process store with a warning: the gateway keeps serving even when
// the external store is down, it just loses cross-restart counters.
func (g *Gateway) initStore() {
	if g.Config.Store.Provider == "redis" && g.Config.Store.RedisURL != "" {
		store, err := NewRedisStore(RedisStoreOptions{
			RedisURL:  g.Config.Store.RedisURL,
			Namespace: g.Config.Store.Namespace,
			Logger:    g.Logger,
		})
		if err == nil {
			g.store = store
			g.reports = store
			return
		}
		g.Logger.Warn("Redis store unavailable, falling back to memory store", map[string]interface{}{
			"error":     err,
			"redis_url": g.Config.Store.RedisURL,
		})
	}

	mem := NewMemoryStore()
	g.store = mem
	g.reports = mem
}

// Handlers exposes the handler registry so embedders can add handler kinds
// before the first build.
func (g *Gateway) Handlers() *HandlerRegistry {
	return g.handlers
}

// Store exposes the active counter store.
func (g *Gateway) Store() Store {
	return g.store
}

// SetSource overrides the capability source. Must be called before
// Initialize; mostly useful for in-code sources and tests.
func (g *Gateway) SetSource(source Source) {
	g.reloader = NewReloader(g.builder, source, g.Logger, g.Config.Source.DebounceWindow)
}

// Initialize runs the first registry build, publishes the initial snapshot,
// starts the source watcher and wires the HTTP surface.
func (g *Gateway) Initialize(ctx context.Context) error {
	if g.reloader == nil {
		source := NewFSSource(g.Config.Source.Dir, g.Config.Source.Suffix)
		g.reloader = NewReloader(g.builder, source, g.Logger, g.Config.Source.DebounceWindow)
	}

	if err := g.reloader.Load(ctx); err != nil {
		return fmt.Errorf("initial registry build: %w", err)
	}

	if err := g.reloader.Watch(ctx); err != nil {
		// Hot reload is a convenience; startup proceeds without it.
		g.Logger.Warn("Hot reload watcher failed to start", map[string]interface{}{
			"error": err,
		})
	}

	g.dispatcher = NewDispatcher(g.reloader, g.Logger)
	g.setupEndpoints()
	g.startedAt = time.Now()

	snapshot := g.reloader.Current()
	g.Logger.Info("Gateway initialized", map[string]interface{}{
		"name":       g.Config.Name,
		"version":    Version,
		"plugins":    snapshot.Stats.Registered,
		"discovered": snapshot.Stats.Discovered,
		"categories": snapshot.Catalog.Categories(),
	})

	return nil
}

// Reloader exposes the hot-reload controller (tests, manual triggers).
func (g *Gateway) Reloader() *Reloader {
	return g.reloader
}

func (g *Gateway) setupEndpoints() {
	g.mux.HandleFunc(APIPrefix+"/info", g.handleInfo)
	g.mux.HandleFunc(APIPrefix+"/health", g.handleHealth)
	g.mux.HandleFunc(APIPrefix+"/ping", g.handlePing)
	g.mux.HandleFunc(APIPrefix+"/status/quota", g.handleQuotaStatus)
	g.mux.HandleFunc(APIPrefix+"/stats", g.handleStats)
	g.mux.HandleFunc(APIPrefix+"/user-report", g.handleUserReport)
	g.mux.HandleFunc(APIPrefix+"/run-notify", g.handleRunNotify)

	// Everything else under the API prefix goes through dispatch.
	g.mux.Handle(APIPrefix+"/", g.dispatcher)

	// No static frontend here; unknown paths get the JSON not-found shape.
	g.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, apiResponse{
			"status":              false,
			"message":             "Endpoint tidak ditemukan",
			"requested_url":       r.URL.Path,
			"method":              r.Method,
			"available_endpoints": APIPrefix + "/info",
		})
	})
}

// handleInfo serves the capability catalog projection.
func (g *Gateway) handleInfo(w http.ResponseWriter, r *http.Request) {
	snapshot := g.reloader.Current()
	catalog := snapshot.Catalog

	writeJSON(w, http.StatusOK, apiResponse{
		"status":              true,
		"server":              g.Config.Name,
		"version":             Version,
		"total_endpoints":     len(catalog.Entries),
		"endpoint_categories": catalog.Categories(),
		"apis":                catalog.Entries,
	})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := g.reloader.Current()

	writeJSON(w, http.StatusOK, apiResponse{
		"status":        true,
		"message":       "Server healthy",
		"uptime":        time.Since(g.startedAt).Seconds(),
		"total_plugins": snapshot.Stats.Registered,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (g *Gateway) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiResponse{
		"status":    true,
		"message":   "pong",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleQuotaStatus reports the caller's current quota standing without
// consuming from it.
func (g *Gateway) handleQuotaStatus(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)

	state, err := g.governance.Quota().Peek(r.Context(), ip)
	if err != nil {
		g.Logger.Error("Quota read failed", map[string]interface{}{
			"ip":    ip,
			"error": err,
		})
		writeError(w, http.StatusInternalServerError, "Gagal membaca quota")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		"status":         true,
		"ip":             state.IP,
		"requests":       state.Requests,
		"remaining":      state.Remaining,
		"blocked":        state.Blocked,
		"reset_at":       state.ResetAt,
		"endpoints_used": state.Requests,
	})
}

// handleStats serves API-side aggregate statistics.
func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	snapshot := g.reloader.Current()
	counters := g.governance.Counters()

	activeUsers := g.countKeys(ctx, KeyQuotaPrefix+"*")
	totalReports := g.countKeys(ctx, KeyReportPrefix+"*")

	writeJSON(w, http.StatusOK, apiResponse{
		"status": true,
		"api": map[string]interface{}{
			"total_endpoints":  len(snapshot.Catalog.Entries),
			"active_users":     activeUsers,
			"total_reports":    totalReports,
			"total_hits_today": counters.Today(ctx),
			"total_hits_all":   counters.All(ctx),
		},
		"registry": map[string]interface{}{
			"version":    snapshot.Version,
			"built_at":   snapshot.BuiltAt.UTC().Format(time.RFC3339),
			"discovered": snapshot.Stats.Discovered,
			"registered": snapshot.Stats.Registered,
			"rejected":   snapshot.Stats.Rejected,
			"collisions": snapshot.Stats.Collisions,
		},
		"uptime":             time.Since(g.startedAt).Seconds(),
		"collection_time_ms": time.Since(start).Milliseconds(),
		"generated_at":       time.Now().UTC().Format(time.RFC3339),
	})
}

func (g *Gateway) countKeys(ctx context.Context, pattern string) int {
	keys, err := g.store.Keys(ctx, pattern)
	if err != nil {
		g.Logger.Warn("Key count failed", map[string]interface{}{
			"pattern": pattern,
			"error":   err,
		})
		return 0
	}
	return len(keys)
}

// userReportPayload is the accepted report body.
type userReportPayload struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (g *Gateway) handleUserReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Metode tidak didukung")
		return
	}

	var payload userReportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Body tidak valid")
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		writeError(w, http.StatusBadRequest, "Pesan laporan kosong")
		return
	}

	reportType := sanitize(payload.Type)
	if reportType == "" {
		reportType = "other"
	}
	timestamp := payload.Timestamp
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	report := Report{
		IP:        ClientIP(r),
		Type:      reportType,
		Message:   sanitize(payload.Message),
		Timestamp: timestamp,
	}

	if err := g.reports.SaveReport(r.Context(), report); err != nil {
		g.Logger.Error("Report save failed", map[string]interface{}{
			"ip":    report.IP,
			"error": err,
		})
		writeError(w, http.StatusInternalServerError, "Gagal menyimpan laporan")
		return
	}

	g.Logger.Info("User report received", map[string]interface{}{
		"ip":   report.IP,
		"type": report.Type,
	})

	writeJSON(w, http.StatusOK, apiResponse{
		"status":  true,
		"message": "Laporan diterima",
	})
}

// runNotifyPayload describes a client-side endpoint trial.
type runNotifyPayload struct {
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
	Status   int    `json:"status"`
	Ms       int64  `json:"ms"`
	URL      string `json:"url"`
}

func (g *Gateway) handleRunNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Metode tidak didukung")
		return
	}

	var payload runNotifyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Body tidak valid")
		return
	}

	g.Logger.Info("Endpoint trial", map[string]interface{}{
		"endpoint": payload.Endpoint,
		"method":   payload.Method,
		"result":   payload.Status,
		"ms":       payload.Ms,
		"ip":       ClientIP(r),
	})

	writeJSON(w, http.StatusOK, apiResponse{"status": true})
}

// Handler returns the fully wired HTTP handler, middleware included.
// Order, outermost first: CORS -> access logging -> attribution envelope ->
// panic recovery -> governance -> mux (catalog endpoints + dispatch).
func (g *Gateway) Handler() http.Handler {
	var handler http.Handler = g.mux

	handler = g.governance.Middleware()(handler)
	handler = RecoveryMiddleware(g.Logger)(handler)
	handler = EnvelopeMiddleware(g.Config.Creator)(handler)
	handler = LoggingMiddleware(g.Logger, g.Development())(handler)
	if g.Config.HTTP.CORS.Enabled {
		handler = CORSMiddleware(&g.Config.HTTP.CORS)(handler)
	}

	return handler
}

// Development reports whether development mode is enabled.
func (g *Gateway) Development() bool {
	return g.Config.Development.Enabled
}

// Start runs the HTTP server until the listener fails or Shutdown is called.
// Initialize must have succeeded first.
func (g *Gateway) Start(ctx context.Context) error {
	if g.reloader == nil || g.reloader.Current() == nil {
		return fmt.Errorf("gateway not initialized: %w", ErrInvalidConfiguration)
	}

	addr := fmt.Sprintf("%s:%d", g.Config.Address, g.Config.Port)

	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.Handler(),
		ReadTimeout:       g.Config.HTTP.ReadTimeout,
		ReadHeaderTimeout: g.Config.HTTP.ReadHeaderTimeout,
		WriteTimeout:      g.Config.HTTP.WriteTimeout,
		IdleTimeout:       g.Config.HTTP.IdleTimeout,
		MaxHeaderBytes:    g.Config.HTTP.MaxHeaderBytes,
	}

	snapshot := g.reloader.Current()
	g.Logger.Info("Gateway starting", map[string]interface{}{
		"address":     addr,
		"plugins":     snapshot.Stats.Registered,
		"categories":  snapshot.Catalog.Categories(),
		"cors":        g.Config.HTTP.CORS.Enabled,
		"limiter_max": g.Config.Governance.Limiter.Max,
		"quota_limit": g.Config.Governance.Quota.Limit,
		"store":       g.Config.Store.Provider,
		"dev_mode":    g.Development(),
	})

	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		g.Logger.Error("HTTP server failed", map[string]interface{}{
			"error":   err,
			"address": addr,
		})
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, the watcher and the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.Logger.Info("Gateway shutting down", map[string]interface{}{
		"name": g.Config.Name,
	})

	if g.reloader != nil {
		_ = g.reloader.Close()
	}

	var err error
	if g.server != nil {
		err = g.server.Shutdown(ctx)
	}

	if closer, ok := g.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	return err
}

// sanitize strips characters with markup significance from user input.
func sanitize(s string) string {
	replacer := strings.NewReplacer("<", "", ">", "", `"`, "", "'", "")
	return strings.TrimSpace(replacer.Replace(s))
}
