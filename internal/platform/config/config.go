package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backends for the profile document store.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Backends for the claim-set store.
const (
	ClaimsMemory = "memory"
	ClaimsRedis  = "redis"
)

// Config is the full process configuration, read from ROLESYNC_* variables.
type Config struct {
	Env        string           `env:"ROLESYNC_ENV" envDefault:"dev"`
	Log        LogConfig        `envPrefix:"ROLESYNC_LOG_"`
	Server     Server           `envPrefix:"ROLESYNC_HTTP_"`
	Store      StoreConfig      `envPrefix:"ROLESYNC_STORE_"`
	Claims     ClaimsConfig     `envPrefix:"ROLESYNC_CLAIMS_"`
	Redis      RedisConfig      `envPrefix:"ROLESYNC_REDIS_"`
	Kafka      KafkaConfig      `envPrefix:"ROLESYNC_KAFKA_"`
	ChangeFeed ChangeFeedConfig `envPrefix:"ROLESYNC_CHANGEFEED_"`
	Retry      RetryConfig      `envPrefix:"ROLESYNC_RETRY_"`
	Roles      RolesConfig      `envPrefix:"ROLESYNC_ROLES_"`
	Token      TokenConfig      `envPrefix:"ROLESYNC_TOKEN_"`
}

// LogConfig selects slog level and handler.
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `env:"ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// StoreConfig selects the profile document store.
type StoreConfig struct {
	Backend         string        `env:"BACKEND" envDefault:"memory"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"true"`
}

// ClaimsConfig selects the claim-set store.
type ClaimsConfig struct {
	Backend string `env:"BACKEND" envDefault:"memory"`
}

// RedisConfig configures the Redis client backing the claim store.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures event consumption. Consumption is disabled when no
// brokers are set.
//
// Handler writes already retry under RetryConfig, so a record can see up to
// MaxDeliveryRounds x Retry.MaxAttempts write attempts while its partition
// waits.
type KafkaConfig struct {
	Brokers           []string `env:"BROKERS" envSeparator:","`
	GroupID           string   `env:"GROUP_ID" envDefault:"rolesync"`
	UserCreatedTopic  string   `env:"USER_CREATED_TOPIC" envDefault:"identity.user-created"`
	ProfileTopic      string   `env:"PROFILE_UPDATED_TOPIC" envDefault:"documents.users-updated"`
	DeadLetterTopic   string   `env:"DEAD_LETTER_TOPIC" envDefault:"rolesync.dead-letter"`
	EnsureTopics      bool     `env:"ENSURE_TOPICS" envDefault:"false"`
	TopicPartitions   int32    `env:"TOPIC_PARTITIONS" envDefault:"3"`
	TopicReplication  int16    `env:"TOPIC_REPLICATION" envDefault:"1"`
	MaxDeliveryRounds int      `env:"MAX_DELIVERY_ROUNDS" envDefault:"1"`
}

// Enabled reports whether Kafka consumption is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// ChangeFeedConfig configures the PostgreSQL document change feed.
type ChangeFeedConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"true"`
	BatchSize     int           `env:"BATCH_SIZE" envDefault:"100"`
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"10"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
}

// RetryConfig bounds per-write retries inside the handlers.
type RetryConfig struct {
	MaxAttempts     int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	InitialInterval time.Duration `env:"INITIAL_INTERVAL" envDefault:"100ms"`
	MaxInterval     time.Duration `env:"MAX_INTERVAL" envDefault:"2s"`
}

// RolesConfig names where roles live. Defaults match the reference deployment.
type RolesConfig struct {
	Collection  string `env:"COLLECTION" envDefault:"users"`
	Field       string `env:"FIELD" envDefault:"role"`
	DefaultRole string `env:"DEFAULT" envDefault:"guest"`
}

// TokenConfig configures the token preview used by `rolesync inspect`.
type TokenConfig struct {
	SigningKey string        `env:"SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer     string        `env:"ISSUER" envDefault:"rolesync"`
	TTL        time.Duration `env:"TTL" envDefault:"1h"`
}

// Load builds a Config from environment variables and validates backend choices.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks combinations env tags cannot express.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("config: ROLESYNC_STORE_DATABASE_URL is required for the %s backend", StorePostgres)
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	switch c.Claims.Backend {
	case ClaimsMemory:
	case ClaimsRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("config: ROLESYNC_REDIS_URL is required for the %s claims backend", ClaimsRedis)
		}
	default:
		return fmt.Errorf("config: unknown claims backend %q", c.Claims.Backend)
	}

	if c.Kafka.MaxDeliveryRounds < 1 {
		return fmt.Errorf("config: kafka max delivery rounds must be at least 1, got %d", c.Kafka.MaxDeliveryRounds)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("config: retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
