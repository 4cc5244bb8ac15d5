package core

import (
	"context"
	"strconv"
	"time"
)

// QuotaState is the observed quota standing of one client identity.
type QuotaState struct {
	IP        string     `json:"ip"`
	Requests  int64      `json:"requests"`
	Remaining int64      `json:"remaining"`
	Blocked   bool       `json:"blocked"`
	ResetAt   *time.Time `json:"reset_at"`
}

// QuotaEnforcer applies the per-client fair-use ceiling using the external
// store's atomic increment and expiry primitives. The quota record for a
// client is created on its first request in a window and implicitly reset
// when the window's TTL elapses.
type QuotaEnforcer struct {
	store      Store
	limit      int64
	window     time.Duration
	failClosed bool
	logger     Logger
	now        func() time.Time
}

// NewQuotaEnforcer creates the enforcer. limit <= 0 disables enforcement.
func NewQuotaEnforcer(store Store, cfg QuotaConfig, logger Logger) *QuotaEnforcer {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &QuotaEnforcer{
		store:      store,
		limit:      cfg.Limit,
		window:     cfg.Window,
		failClosed: cfg.FailClosed,
		logger:     logger,
		now:        time.Now,
	}
}

// Limit returns the configured ceiling.
func (q *QuotaEnforcer) Limit() int64 {
	return q.limit
}

// Check increments the client's quota record and reports whether the request
// is admitted. On store failure the configured policy applies: fail-open
// admits with a logged warning, fail-closed rejects.
func (q *QuotaEnforcer) Check(ctx context.Context, ip string) (QuotaState, bool) {
	state := QuotaState{IP: ip, Remaining: q.limit}
	if q.limit <= 0 {
		return state, true
	}

	key := KeyQuotaPrefix + ip
	count, err := q.store.Incr(ctx, key)
	if err != nil {
		q.logger.Warn("Quota check failed", map[string]interface{}{
			"ip":          ip,
			"error":       err,
			"fail_closed": q.failClosed,
		})
		state.Blocked = q.failClosed
		return state, !q.failClosed
	}

	// First request in a window starts its TTL; later increments leave the
	// record's expiry intact.
	if count == 1 {
		if err := q.store.Expire(ctx, key, q.window); err != nil {
			q.logger.Warn("Quota expiry set failed", map[string]interface{}{
				"ip":    ip,
				"error": err,
			})
		}
	}

	state.Requests = count
	state.Remaining = maxInt64(0, q.limit-count)
	state.Blocked = count > q.limit
	state.ResetAt = q.resetAt(ctx, key)

	return state, !state.Blocked
}

// Peek reads the client's quota standing without incrementing it. Used by
// the status projection endpoint.
func (q *QuotaEnforcer) Peek(ctx context.Context, ip string) (QuotaState, error) {
	state := QuotaState{IP: ip, Remaining: q.limit}

	key := KeyQuotaPrefix + ip
	v, err := q.store.Get(ctx, key)
	if err != nil {
		return state, err
	}
	if v == "" {
		return state, nil
	}

	count, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return state, nil
	}

	state.Requests = count
	state.Remaining = maxInt64(0, q.limit-count)
	state.Blocked = count >= q.limit
	state.ResetAt = q.resetAt(ctx, key)
	return state, nil
}

// resetAt derives the window end from the record's TTL, nil when the store
// reports no expiry.
func (q *QuotaEnforcer) resetAt(ctx context.Context, key string) *time.Time {
	ttl, err := q.store.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		return nil
	}
	t := q.now().Add(ttl)
	return &t
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
