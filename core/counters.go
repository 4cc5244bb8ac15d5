package core

import (
	"context"
	"strconv"
	"time"
)

// HitCounters tracks the all-time and per-calendar-day request counters in
// the external store. Increments are best-effort: a counting failure is
// logged and never blocks the request being counted.
type HitCounters struct {
	store  Store
	logger Logger
	now    func() time.Time
}

// NewHitCounters creates the counter recorder.
func NewHitCounters(store Store, logger Logger) *HitCounters {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &HitCounters{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (h *HitCounters) dayKey(t time.Time) string {
	return KeyHitsDayPrefix + t.UTC().Format("2006-01-02")
}

// Record increments both counters for one governed request.
func (h *HitCounters) Record(ctx context.Context) {
	if _, err := h.store.Incr(ctx, KeyHitsAll); err != nil {
		h.logger.Warn("Hit counter increment failed", map[string]interface{}{
			"key":   KeyHitsAll,
			"error": err,
		})
	}

	dayKey := h.dayKey(h.now())
	if _, err := h.store.Incr(ctx, dayKey); err != nil {
		h.logger.Warn("Hit counter increment failed", map[string]interface{}{
			"key":   dayKey,
			"error": err,
		})
	}
}

// All returns the all-time hit count, zero when absent or unreadable.
func (h *HitCounters) All(ctx context.Context) int64 {
	return h.readCounter(ctx, KeyHitsAll)
}

// Today returns the hit count for the current UTC calendar day.
func (h *HitCounters) Today(ctx context.Context) int64 {
	return h.readCounter(ctx, h.dayKey(h.now()))
}

func (h *HitCounters) readCounter(ctx context.Context, key string) int64 {
	v, err := h.store.Get(ctx, key)
	if err != nil || v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
