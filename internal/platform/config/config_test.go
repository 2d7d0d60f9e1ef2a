package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, ClaimsMemory, cfg.Claims.Backend)
	assert.Equal(t, "users", cfg.Roles.Collection)
	assert.Equal(t, "role", cfg.Roles.Field)
	assert.Equal(t, "guest", cfg.Roles.DefaultRole)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.InitialInterval)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, 1, cfg.Kafka.MaxDeliveryRounds, "handler writes already retry")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ROLESYNC_STORE_BACKEND", "postgres")
	t.Setenv("ROLESYNC_STORE_DATABASE_URL", "postgres://localhost/rolesync?sslmode=disable")
	t.Setenv("ROLESYNC_CLAIMS_BACKEND", "redis")
	t.Setenv("ROLESYNC_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ROLESYNC_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ROLESYNC_ROLES_DEFAULT", "member")
	t.Setenv("ROLESYNC_RETRY_MAX_ATTEMPTS", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Store.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "member", cfg.Roles.DefaultRole)
	assert.Equal(t, 1, cfg.Retry.MaxAttempts)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "postgres without url", env: map[string]string{"ROLESYNC_STORE_BACKEND": "postgres"}},
		{name: "redis without url", env: map[string]string{"ROLESYNC_CLAIMS_BACKEND": "redis"}},
		{name: "unknown store", env: map[string]string{"ROLESYNC_STORE_BACKEND": "firestore"}},
		{name: "zero attempts", env: map[string]string{"ROLESYNC_RETRY_MAX_ATTEMPTS": "0"}},
		{name: "zero delivery rounds", env: map[string]string{"ROLESYNC_KAFKA_MAX_DELIVERY_ROUNDS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
