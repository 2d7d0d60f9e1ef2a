package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"rolesync/internal/claims"
	claimsstore "rolesync/internal/claims/store"
	"rolesync/internal/documents"
	docstore "rolesync/internal/documents/store"
	"rolesync/internal/events"
	"rolesync/internal/platform/config"
	"rolesync/internal/platform/logger"
	"rolesync/internal/platform/postgres"
	redisclient "rolesync/internal/platform/redis"
	"rolesync/internal/roles"
	"rolesync/internal/roles/metrics"
	"rolesync/internal/roles/models"
	"rolesync/internal/roles/service"
	httptransport "rolesync/internal/transport/http"
	"rolesync/pkg/platform/retry"
)

type profileStore interface {
	Get(ctx context.Context, ref documents.Ref) (documents.Fields, error)
	Set(ctx context.Context, ref documents.Ref, fields documents.Fields, opts documents.SetOptions) error
	List(ctx context.Context, collection string, fn func(id string, fields documents.Fields) error) error
}

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	profiles profileStore
	claims   claims.Store
	memDocs  *docstore.InMemoryStore
	db       *sql.DB
	service  *service.Service
	events   *events.Registry
	checks   map[string]httptransport.HealthCheck
	closers  []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger.New(cfg.Log, cfg.Env),
		registry: prometheus.NewRegistry(),
		checks:   make(map[string]httptransport.HealthCheck),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := a.openProfiles(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openClaims(ctx); err != nil {
		a.Close()
		return nil, err
	}

	policy := models.Policy{
		Collection:  cfg.Roles.Collection,
		Field:       cfg.Roles.Field,
		DefaultRole: models.Role(cfg.Roles.DefaultRole),
	}
	svc, err := service.New(a.profiles, a.claims,
		service.WithLogger(a.logger),
		service.WithMetrics(metrics.New(a.registry)),
		service.WithPolicy(policy),
		service.WithRetryPolicy(retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		}),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("role service: %w", err)
	}
	a.service = svc

	a.events = events.NewRegistry(a.logger)
	if err := roles.Register(a.events, svc); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openProfiles(ctx context.Context) error {
	switch a.cfg.Store.Backend {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, a.cfg.Store)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		if a.cfg.Store.AutoMigrate {
			if err := postgres.Migrate(db); err != nil {
				return err
			}
		}
		pg := docstore.NewPostgres(db)
		a.db = db
		a.profiles = pg
		a.checks["postgres"] = pg.Health
	default:
		a.memDocs = docstore.NewInMemory()
		a.profiles = a.memDocs
	}
	return nil
}

func (a *app) openClaims(ctx context.Context) error {
	switch a.cfg.Claims.Backend {
	case config.ClaimsRedis:
		client, err := redisclient.New(ctx, a.cfg.Redis)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.claims = claimsstore.NewRedis(client.Client, claimsstore.WithRegisterer(a.registry))
		a.checks["redis"] = client.Health
	default:
		a.claims = claimsstore.NewInMemory()
	}
	return nil
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown close failed", "error", err)
	}
}
