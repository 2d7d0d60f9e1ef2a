package store

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis_UpdateMetricsRegistration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	t.Run("instruments are exported on the given registry", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		NewRedis(client, WithRegisterer(reg))

		n, err := testutil.GatherAndCount(reg,
			"rolesync_claims_update_duration_ms",
			"rolesync_claims_update_conflicts_total",
		)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("stores on separate registries do not collide", func(t *testing.T) {
		assert.NotPanics(t, func() {
			NewRedis(client, WithRegisterer(prometheus.NewRegistry()))
			NewRedis(client, WithRegisterer(prometheus.NewRegistry()))
			NewRedis(client)
		})
	})
}
