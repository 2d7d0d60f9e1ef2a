//go:build integration

package store_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"rolesync/internal/claims"
	"rolesync/internal/claims/store"
	"rolesync/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client, store.WithMaxUpdateRetries(50))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestGetSet() {
	ctx := context.Background()

	s.Run("unknown user has empty claims", func() {
		got, err := s.store.Get(ctx, "nobody")
		s.Require().NoError(err)
		s.Empty(got)
	})

	s.Run("set replaces the whole set", func() {
		s.Require().NoError(s.store.Set(ctx, "abc123", claims.ClaimSet{"role": "guest", "tier": "gold"}))
		s.Require().NoError(s.store.Set(ctx, "abc123", claims.ClaimSet{"role": "admin"}))

		got, err := s.store.Get(ctx, "abc123")
		s.Require().NoError(err)
		s.Equal(claims.ClaimSet{"role": "admin"}, got)
	})

	s.Run("empty set deletes the key", func() {
		s.Require().NoError(s.store.Set(ctx, "abc123", claims.ClaimSet{}))
		n, err := s.redis.Client.Exists(ctx, "claims:uid:abc123").Result()
		s.Require().NoError(err)
		s.Zero(n)
	})
}

func (s *RedisStoreSuite) TestMergePreservesOtherClaims() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "abc123", claims.ClaimSet{"tier": "gold"}))

	written, err := claims.Merge(ctx, s.store, "abc123", claims.ClaimSet{"role": "admin"})
	s.Require().NoError(err)
	s.Equal(claims.ClaimSet{"tier": "gold", "role": "admin"}, written)

	_, err = claims.Merge(ctx, s.store, "abc123", claims.ClaimSet{"role": nil})
	s.Require().NoError(err)
	got, err := s.store.Get(ctx, "abc123")
	s.Require().NoError(err)
	s.Equal(claims.ClaimSet{"tier": "gold"}, got)
}

func (s *RedisStoreSuite) TestMergeRejectsOversizedSets() {
	ctx := context.Background()
	_, err := claims.Merge(ctx, s.store, "abc123", claims.ClaimSet{"bio": strings.Repeat("x", claims.MaxSerializedBytes)})
	s.ErrorIs(err, claims.ErrInvalidClaims)

	got, err := s.store.Get(ctx, "abc123")
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *RedisStoreSuite) TestConcurrentMergesKeepAllKeys() {
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := claims.Merge(ctx, s.store, "abc123", claims.ClaimSet{fmt.Sprintf("k%d", i): i})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	got, err := s.store.Get(ctx, "abc123")
	s.Require().NoError(err)
	s.Len(got, writers)
}

func (s *RedisStoreSuite) TestUpdatesAreObservedOnRegistry() {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	st := store.NewRedis(s.redis.Client, store.WithRegisterer(reg))

	_, err := claims.Merge(ctx, st, "abc123", claims.ClaimSet{"role": "guest"})
	s.Require().NoError(err)
	_, err = claims.Merge(ctx, st, "abc123", claims.ClaimSet{"role": "admin"})
	s.Require().NoError(err)

	families, err := reg.Gather()
	s.Require().NoError(err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "rolesync_claims_update_duration_ms" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	s.Equal(uint64(2), samples)
}
