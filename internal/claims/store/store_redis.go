package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"rolesync/internal/claims"
	"rolesync/pkg/platform/sentinel"
)

var (
	updateDurationOpts = prometheus.HistogramOpts{
		Name:    "rolesync_claims_update_duration_ms",
		Help:    "Latency of atomic claim-set updates in milliseconds",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
	}
	updateConflictsOpts = prometheus.CounterOpts{
		Name: "rolesync_claims_update_conflicts_total",
		Help: "Optimistic claim-set updates that lost a WATCH race and were retried",
	}
)

const (
	// Redis key prefix for per-user claim sets
	claimsKeyPrefix = "claims:uid:"

	defaultMaxUpdateRetries = 10
)

// RedisStore keeps each user's claim set as a JSON string in Redis.
type RedisStore struct {
	client           *redis.Client
	maxRetries       int
	updateDurationMs prometheus.Histogram
	updateConflicts  prometheus.Counter
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithMaxUpdateRetries bounds how many WATCH conflicts Update absorbs.
func WithMaxUpdateRetries(n int) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithRegisterer registers the update instruments on reg. Without it they
// are kept but not exported.
func WithRegisterer(reg prometheus.Registerer) RedisOption {
	return func(s *RedisStore) {
		if reg == nil {
			return
		}
		factory := promauto.With(reg)
		s.updateDurationMs = factory.NewHistogram(updateDurationOpts)
		s.updateConflicts = factory.NewCounter(updateConflictsOpts)
	}
}

// NewRedis constructs a Redis-backed claim store.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:           client,
		maxRetries:       defaultMaxUpdateRetries,
		updateDurationMs: prometheus.NewHistogram(updateDurationOpts),
		updateConflicts:  prometheus.NewCounter(updateConflictsOpts),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func claimsKey(userID string) string {
	return claimsKeyPrefix + userID
}

// Get returns the user's claims. A missing key yields an empty set.
func (s *RedisStore) Get(ctx context.Context, userID string) (claims.ClaimSet, error) {
	raw, err := s.client.Get(ctx, claimsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return claims.ClaimSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claims: %w", err)
	}
	return decode(raw)
}

// Set replaces the user's claims. An empty set deletes the key.
func (s *RedisStore) Set(ctx context.Context, userID string, c claims.ClaimSet) error {
	if len(c) == 0 {
		if err := s.client.Del(ctx, claimsKey(userID)).Err(); err != nil {
			return fmt.Errorf("clear claims: %w", err)
		}
		return nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode claims: %w", err)
	}
	if err := s.client.Set(ctx, claimsKey(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("set claims: %w", err)
	}
	return nil
}

// Update applies fn inside a WATCH/MULTI transaction so concurrent writers
// never drop each other's keys.
func (s *RedisStore) Update(ctx context.Context, userID string, fn func(claims.ClaimSet) (claims.ClaimSet, error)) error {
	start := time.Now()
	defer func() {
		s.updateDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	key := claimsKey(userID)
	txf := func(tx *redis.Tx) error {
		current := claims.ClaimSet{}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("get claims: %w", err)
		default:
			if current, err = decode(raw); err != nil {
				return err
			}
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode claims: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(next) == 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}

	for range s.maxRetries {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			s.updateConflicts.Inc()
			continue
		}
		return err
	}
	return fmt.Errorf("update claims for %s: %w", userID, sentinel.ErrConflict)
}

func decode(raw []byte) (claims.ClaimSet, error) {
	var c claims.ClaimSet
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	if c == nil {
		c = claims.ClaimSet{}
	}
	return c, nil
}
