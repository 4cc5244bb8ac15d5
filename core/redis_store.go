package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// reportTTL keeps user reports for a week before they expire.
const reportTTL = 7 * 24 * time.Hour

// reportsChannel is the pub/sub channel reports are fanned out on.
const reportsChannel = "reports"

// RedisStore is the Redis-backed keyed-counter store. All keys are prefixed
// with the configured namespace. It also implements ReportSink: reports are
// stored as hashes with a bounded TTL and published for live consumers.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    Logger
}

// RedisStoreOptions configures the Redis store.
type RedisStoreOptions struct {
	RedisURL  string
	Namespace string
	Logger    Logger
}

// NewRedisStore creates a Redis store and verifies connectivity.
func NewRedisStore(opts RedisStoreOptions) (*RedisStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", ErrInvalidConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", map[string]interface{}{
			"error":     err,
			"redis_url": opts.RedisURL,
		})
		return nil, fmt.Errorf("invalid Redis URL: %w", ErrInvalidConfiguration)
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error":     err,
			"namespace": opts.Namespace,
		})
		return nil, fmt.Errorf("failed to connect to Redis: %w", ErrConnectionFailed)
	}

	store := &RedisStore{
		client:    client,
		namespace: opts.Namespace,
		logger:    logger,
	}

	logger.Info("Redis store connected", map[string]interface{}{
		"namespace": opts.Namespace,
	})

	return store, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// formatKey formats a key with the namespace
func (s *RedisStore) formatKey(key string) string {
	if s.namespace != "" {
		return fmt.Sprintf("%s:%s", s.namespace, key)
	}
	return key
}

// Get retrieves a value. A missing key yields "" with no error.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.formatKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, ErrStoreUnavailable)
	}
	return v, nil
}

// Set stores a value with optional TTL (0 means no expiry).
func (s *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.formatKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, ErrStoreUnavailable)
	}
	return nil
}

// Incr atomically increments a counter.
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, s.formatKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, ErrStoreUnavailable)
	}
	return n, nil
}

// Expire sets a TTL on a key.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, s.formatKey(key), ttl).Err(); err != nil {
		return fmt.Errorf("redis expire %s: %w", key, ErrStoreUnavailable)
	}
	return nil
}

// TTL gets the remaining lifetime of a key.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, s.formatKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl %s: %w", key, ErrStoreUnavailable)
	}
	return d, nil
}

// Keys lists keys matching a glob pattern, with the namespace stripped.
// Only used by low-volume stats projections.
func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.client.Keys(ctx, s.formatKey(pattern)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis keys %s: %w", pattern, ErrStoreUnavailable)
	}
	prefix := ""
	if s.namespace != "" {
		prefix = s.namespace + ":"
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if len(k) >= len(prefix) {
			out = append(out, k[len(prefix):])
		}
	}
	return out, nil
}

// SaveReport persists a user report as a hash with a bounded TTL and
// publishes it on the reports channel for any live consumer.
func (s *RedisStore) SaveReport(ctx context.Context, report Report) error {
	key := s.formatKey(KeyReportPrefix + uuid.New().String())

	fields := map[string]interface{}{
		"ip":        report.IP,
		"type":      report.Type,
		"message":   report.Message,
		"timestamp": report.Timestamp,
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis hset report: %w", ErrStoreUnavailable)
	}
	if err := s.client.Expire(ctx, key, reportTTL).Err(); err != nil {
		return fmt.Errorf("redis expire report: %w", ErrStoreUnavailable)
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, reportsChannel, payload).Err(); err != nil {
		// Persisted but not fanned out; consumers will still find it by key.
		s.logger.Warn("Report publish failed", map[string]interface{}{
			"error": err,
		})
	}
	return nil
}

// HealthCheck verifies Redis connectivity.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
