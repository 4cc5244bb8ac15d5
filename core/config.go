package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration options for the gateway.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithPort(3000),
//	    WithSourceDir("./plugins"),
//	    WithRedisURL("redis://localhost:6379"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// Core configuration
	Name    string `json:"name" env:"LIBIE_NAME"`
	Port    int    `json:"port" env:"LIBIE_PORT,PORT" default:"3000"`
	Address string `json:"address" env:"LIBIE_ADDRESS"`

	// Creator is the attribution value injected into every JSON response.
	Creator string `json:"creator" env:"LIBIE_CREATOR" default:"Himejima"`

	// HTTP server configuration
	HTTP HTTPConfig `json:"http"`

	// Capability source configuration
	Source SourceConfig `json:"source"`

	// Governance configuration (limiter, quota)
	Governance GovernanceConfig `json:"governance"`

	// Store configuration
	Store StoreConfig `json:"store"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Development configuration
	Development DevelopmentConfig `json:"development"`
}

// HTTPConfig contains HTTP server configuration including timeouts, limits,
// and CORS settings.
type HTTPConfig struct {
	ReadTimeout       time.Duration `json:"read_timeout" env:"LIBIE_HTTP_READ_TIMEOUT" default:"30s"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"LIBIE_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"LIBIE_HTTP_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"LIBIE_HTTP_IDLE_TIMEOUT" default:"120s"`
	MaxHeaderBytes    int           `json:"max_header_bytes" env:"LIBIE_HTTP_MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"LIBIE_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	CORS              CORSConfig    `json:"cors"`
}

// CORSConfig contains Cross-Origin Resource Sharing (CORS) configuration.
type CORSConfig struct {
	Enabled          bool     `json:"enabled" env:"LIBIE_CORS_ENABLED" default:"true"`
	AllowedOrigins   []string `json:"allowed_origins" env:"LIBIE_CORS_ORIGINS" default:"*"`
	AllowedMethods   []string `json:"allowed_methods" env:"LIBIE_CORS_METHODS"`
	AllowedHeaders   []string `json:"allowed_headers" env:"LIBIE_CORS_HEADERS"`
	ExposedHeaders   []string `json:"exposed_headers" env:"LIBIE_CORS_EXPOSED_HEADERS"`
	AllowCredentials bool     `json:"allow_credentials" env:"LIBIE_CORS_CREDENTIALS" default:"false"`
	MaxAge           int      `json:"max_age" env:"LIBIE_CORS_MAX_AGE" default:"86400"`
}

// SourceConfig describes where capability descriptors are discovered and how
// the hot-reload watcher filters change events.
type SourceConfig struct {
	Dir    string `json:"dir" env:"LIBIE_PLUGINS_DIR" default:"./plugins"`
	Suffix string `json:"suffix" env:"LIBIE_PLUGINS_SUFFIX" default:".yaml"`
	// DebounceWindow coalesces bursts of filesystem events (editors often
	// emit several per save) into a single rebuild trigger.
	DebounceWindow time.Duration `json:"debounce_window" env:"LIBIE_PLUGINS_DEBOUNCE" default:"250ms"`
}

// GovernanceConfig groups the cross-cutting request controls.
type GovernanceConfig struct {
	Limiter LimiterConfig `json:"limiter"`
	Quota   QuotaConfig   `json:"quota"`
}

// LimiterConfig configures the global fixed-window throughput limiter.
type LimiterConfig struct {
	Enabled bool          `json:"enabled" env:"LIBIE_LIMITER_ENABLED" default:"true"`
	Max     int           `json:"max" env:"LIBIE_LIMITER_MAX" default:"100"`
	Window  time.Duration `json:"window" env:"LIBIE_LIMITER_WINDOW" default:"15m"`
}

// QuotaConfig configures per-client fair-use enforcement.
//
// FailClosed controls the policy when the quota store is unreachable:
// false (default) lets the request through with a logged warning, true
// rejects it. Counter increments always fail open.
type QuotaConfig struct {
	Enabled    bool          `json:"enabled" env:"LIBIE_QUOTA_ENABLED" default:"true"`
	Limit      int64         `json:"limit" env:"LIBIE_QUOTA_LIMIT" default:"50"`
	Window     time.Duration `json:"window" env:"LIBIE_QUOTA_WINDOW" default:"1h"`
	FailClosed bool          `json:"fail_closed" env:"LIBIE_QUOTA_FAIL_CLOSED" default:"false"`
}

// StoreConfig configures the external keyed-counter store backend.
type StoreConfig struct {
	Provider  string `json:"provider" env:"LIBIE_STORE_PROVIDER" default:"redis"`
	RedisURL  string `json:"redis_url" env:"LIBIE_REDIS_URL,REDIS_URL"`
	Namespace string `json:"namespace" env:"LIBIE_STORE_NAMESPACE" default:"libie"`
}

// LoggingConfig controls log verbosity and format.
type LoggingConfig struct {
	Level  string `json:"level" env:"LIBIE_LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"LIBIE_LOG_FORMAT" default:"json"`
}

// DevelopmentConfig contains development-mode toggles.
type DevelopmentConfig struct {
	Enabled bool `json:"enabled" env:"LIBIE_DEV_MODE,DEV_MODE" default:"false"`
}

// Option is a functional option for configuring the gateway
type Option func(*Config)

// DefaultConfig returns a configuration with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Name:    "libie-api",
		Port:    3000,
		Creator: "Himejima",
		HTTP: HTTPConfig{
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20, // 1MB
			ShutdownTimeout:   10 * time.Second,
			CORS: CORSConfig{
				Enabled:          true,
				AllowedOrigins:   []string{"*"},
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Content-Type", "Authorization"},
				AllowCredentials: false,
				MaxAge:           86400,
			},
		},
		Source: SourceConfig{
			Dir:            "./plugins",
			Suffix:         ".yaml",
			DebounceWindow: 250 * time.Millisecond,
		},
		Governance: GovernanceConfig{
			Limiter: LimiterConfig{
				Enabled: true,
				Max:     100,
				Window:  15 * time.Minute,
			},
			Quota: QuotaConfig{
				Enabled:    true,
				Limit:      50,
				Window:     1 * time.Hour,
				FailClosed: false,
			},
		},
		Store: StoreConfig{
			Provider:  "redis",
			Namespace: "libie",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Development: DevelopmentConfig{
			Enabled: false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables take precedence over defaults but are overridden by
// functional options.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("LIBIE_NAME"); v != "" {
		c.Name = v
	}
	if v := firstEnv("LIBIE_PORT", "PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("LIBIE_ADDRESS"); v != "" {
		c.Address = v
	}
	if v := os.Getenv("LIBIE_CREATOR"); v != "" {
		c.Creator = v
	}

	// HTTP settings
	if v := os.Getenv("LIBIE_HTTP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTP.ReadTimeout = d
		}
	}
	if v := os.Getenv("LIBIE_HTTP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTP.WriteTimeout = d
		}
	}
	if v := os.Getenv("LIBIE_HTTP_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTP.ShutdownTimeout = d
		}
	}

	// CORS settings
	if v := os.Getenv("LIBIE_CORS_ENABLED"); v != "" {
		c.HTTP.CORS.Enabled = parseBool(v)
	}
	if v := os.Getenv("LIBIE_CORS_ORIGINS"); v != "" {
		c.HTTP.CORS.AllowedOrigins = parseStringList(v)
	}
	if v := os.Getenv("LIBIE_CORS_METHODS"); v != "" {
		c.HTTP.CORS.AllowedMethods = parseStringList(v)
	}
	if v := os.Getenv("LIBIE_CORS_HEADERS"); v != "" {
		c.HTTP.CORS.AllowedHeaders = parseStringList(v)
	}
	if v := os.Getenv("LIBIE_CORS_CREDENTIALS"); v != "" {
		c.HTTP.CORS.AllowCredentials = parseBool(v)
	}

	// Source settings
	if v := os.Getenv("LIBIE_PLUGINS_DIR"); v != "" {
		c.Source.Dir = v
	}
	if v := os.Getenv("LIBIE_PLUGINS_SUFFIX"); v != "" {
		c.Source.Suffix = v
	}
	if v := os.Getenv("LIBIE_PLUGINS_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Source.DebounceWindow = d
		}
	}

	// Governance settings
	if v := os.Getenv("LIBIE_LIMITER_ENABLED"); v != "" {
		c.Governance.Limiter.Enabled = parseBool(v)
	}
	if v := os.Getenv("LIBIE_LIMITER_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Governance.Limiter.Max = n
		}
	}
	if v := os.Getenv("LIBIE_LIMITER_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Governance.Limiter.Window = d
		}
	}
	if v := os.Getenv("LIBIE_QUOTA_ENABLED"); v != "" {
		c.Governance.Quota.Enabled = parseBool(v)
	}
	if v := os.Getenv("LIBIE_QUOTA_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Governance.Quota.Limit = n
		}
	}
	if v := os.Getenv("LIBIE_QUOTA_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Governance.Quota.Window = d
		}
	}
	if v := os.Getenv("LIBIE_QUOTA_FAIL_CLOSED"); v != "" {
		c.Governance.Quota.FailClosed = parseBool(v)
	}

	// Store settings
	if v := os.Getenv("LIBIE_STORE_PROVIDER"); v != "" {
		c.Store.Provider = v
	}
	if v := firstEnv("LIBIE_REDIS_URL", "REDIS_URL"); v != "" {
		c.Store.RedisURL = v
	}
	if v := os.Getenv("LIBIE_STORE_NAMESPACE"); v != "" {
		c.Store.Namespace = v
	}

	// Logging settings
	if v := os.Getenv("LIBIE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LIBIE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	// Development settings
	if v := firstEnv("LIBIE_DEV_MODE", "DEV_MODE"); v != "" {
		c.Development.Enabled = parseBool(v)
	}

	return nil
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: %w", c.Port, ErrInvalidConfiguration)
	}
	if c.Source.Dir == "" {
		return fmt.Errorf("capability source dir is required: %w", ErrInvalidConfiguration)
	}
	if c.Governance.Limiter.Enabled && c.Governance.Limiter.Max <= 0 {
		return fmt.Errorf("limiter max must be positive: %w", ErrInvalidConfiguration)
	}
	if c.Governance.Quota.Enabled && c.Governance.Quota.Limit <= 0 {
		return fmt.Errorf("quota limit must be positive: %w", ErrInvalidConfiguration)
	}
	if c.Store.Provider != "redis" && c.Store.Provider != "memory" {
		return fmt.Errorf("unknown store provider %q: %w", c.Store.Provider, ErrInvalidConfiguration)
	}
	return nil
}

// NewConfig creates a configuration by applying, in order: defaults,
// environment variables, then functional options.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WithName sets the gateway name
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithPort sets the HTTP server port
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithAddress sets the bind address
func WithAddress(address string) Option {
	return func(c *Config) {
		c.Address = address
	}
}

// WithCreator sets the attribution value injected into JSON responses
func WithCreator(creator string) Option {
	return func(c *Config) {
		c.Creator = creator
	}
}

// WithSourceDir sets the capability source directory
func WithSourceDir(dir string) Option {
	return func(c *Config) {
		c.Source.Dir = dir
	}
}

// WithRedisURL sets the Redis URL for the counter/quota store
func WithRedisURL(url string) Option {
	return func(c *Config) {
		c.Store.Provider = "redis"
		c.Store.RedisURL = url
	}
}

// WithMemoryStore selects the in-process store backend
func WithMemoryStore() Option {
	return func(c *Config) {
		c.Store.Provider = "memory"
	}
}

// WithGlobalLimit configures the global fixed-window throughput limiter
func WithGlobalLimit(max int, window time.Duration) Option {
	return func(c *Config) {
		c.Governance.Limiter.Enabled = max > 0
		c.Governance.Limiter.Max = max
		c.Governance.Limiter.Window = window
	}
}

// WithQuota configures the per-client quota ceiling and window
func WithQuota(limit int64, window time.Duration) Option {
	return func(c *Config) {
		c.Governance.Quota.Enabled = limit > 0
		c.Governance.Quota.Limit = limit
		c.Governance.Quota.Window = window
	}
}

// WithQuotaFailClosed sets the policy for quota checks when the store is
// unreachable: true rejects requests, false (default) admits them.
func WithQuotaFailClosed(failClosed bool) Option {
	return func(c *Config) {
		c.Governance.Quota.FailClosed = failClosed
	}
}

// WithCORS configures CORS with the specified origins and credentials support
func WithCORS(origins []string, credentials bool) Option {
	return func(c *Config) {
		c.HTTP.CORS.Enabled = true
		c.HTTP.CORS.AllowedOrigins = origins
		c.HTTP.CORS.AllowCredentials = credentials
	}
}

// WithLogLevel sets the logging level (debug, info, warn, error)
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.Logging.Level = level
	}
}

// WithDevelopmentMode enables development mode (verbose request logging)
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) {
		c.Development.Enabled = enabled
	}
}

// firstEnv returns the first non-empty value among the named variables.
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

func parseStringList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
