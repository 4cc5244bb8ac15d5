package core

import (
	"net/http"
	"strings"
)

// Governance is the ordered pre-dispatch pipeline: global throughput limiter,
// hit counters, per-client quota. A stage that short-circuits still produces
// a complete envelope, and later stages never run for that request. The
// attribution augmenter (stage four) wraps the whole server in
// EnvelopeMiddleware so it applies to every producer uniformly.
type Governance struct {
	limiter  *GlobalLimiter
	counters *HitCounters
	quota    *QuotaEnforcer
	logger   Logger

	limiterEnabled bool
	quotaEnabled   bool
}

// NewGovernance assembles the pipeline from configuration.
func NewGovernance(cfg GovernanceConfig, store Store, logger Logger) *Governance {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Governance{
		limiter:        NewGlobalLimiter(cfg.Limiter.Max, cfg.Limiter.Window),
		counters:       NewHitCounters(store, logger),
		quota:          NewQuotaEnforcer(store, cfg.Quota, logger),
		logger:         logger,
		limiterEnabled: cfg.Limiter.Enabled,
		quotaEnabled:   cfg.Quota.Enabled,
	}
}

// Counters exposes the hit counters for stats projections.
func (g *Governance) Counters() *HitCounters {
	return g.counters
}

// Quota exposes the quota enforcer for status projections.
func (g *Governance) Quota() *QuotaEnforcer {
	return g.quota
}

// Middleware applies the pipeline stages, in order, before dispatch.
func (g *Governance) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Stage 1: global throughput ceiling.
			if g.limiterEnabled && !g.limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "Terlalu banyak request")
				return
			}

			// Counters and quota govern the API surface only; the global
			// ceiling above covers everything.
			if !strings.HasPrefix(r.URL.Path, APIPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			// Stage 2: hit counters, best-effort.
			g.counters.Record(r.Context())

			// Stage 3: per-client quota.
			if g.quotaEnabled {
				ip := ClientIP(r)
				state, allowed := g.quota.Check(r.Context(), ip)
				if !allowed {
					g.logger.Warn("Quota exceeded", map[string]interface{}{
						"ip":       ip,
						"requests": state.Requests,
						"limit":    g.quota.Limit(),
					})
					body := apiResponse{
						"status":    false,
						"message":   "Quota terlampaui, coba lagi nanti",
						"ip":        state.IP,
						"requests":  state.Requests,
						"remaining": int64(0),
						"blocked":   true,
						"reset_at":  state.ResetAt,
					}
					writeJSON(w, http.StatusTooManyRequests, body)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
