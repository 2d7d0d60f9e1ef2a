package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"rolesync/internal/claims"
	"rolesync/internal/documents"
	"rolesync/internal/roles/metrics"
	"rolesync/internal/roles/models"
	"rolesync/pkg/platform/retry"
)

const tracerName = "rolesync/internal/roles"

// Write targets reported to metrics and logs.
const (
	targetProfile = "profile"
	targetClaims  = "claims"
)

// ProfileWriter writes user profile documents.
type ProfileWriter interface {
	Set(ctx context.Context, ref documents.Ref, fields documents.Fields, opts documents.SetOptions) error
}

// ProfileLister enumerates profile documents for reconciliation.
type ProfileLister interface {
	List(ctx context.Context, collection string, fn func(id string, fields documents.Fields) error) error
}

// ClaimsStore reads and replaces a user's claim set.
type ClaimsStore interface {
	Get(ctx context.Context, userID string) (claims.ClaimSet, error)
	Set(ctx context.Context, userID string, claims claims.ClaimSet) error
}

// Service keeps the role on a user's profile document and the role in the
// user's claim set in agreement.
type Service struct {
	profiles ProfileWriter
	claims   ClaimsStore
	policy   models.Policy
	retry    retry.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRetryPolicy bounds retries of each individual write.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.retry = p
	}
}

// WithPolicy overrides where roles live and what new users receive.
func WithPolicy(p models.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service.
func New(profiles ProfileWriter, claimsStore ClaimsStore, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, errors.New("profile writer is required")
	}
	if claimsStore == nil {
		return nil, errors.New("claims store is required")
	}
	s := &Service{
		profiles: profiles,
		claims:   claimsStore,
		policy:   models.DefaultPolicy(),
		retry:    retry.DefaultPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Policy returns the role policy the service was built with.
func (s *Service) Policy() models.Policy {
	return s.policy
}

// writeProfile merges fields into the user's profile under the retry policy.
func (s *Service) writeProfile(ctx context.Context, userID string, fields documents.Fields) error {
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.profiles.Set(ctx, s.policy.ProfileRef(userID), fields, documents.MergeFields)
	})
	s.metrics.IncrementWrite(targetProfile, err)
	return err
}

// writeClaims applies patch to the user's claim set under the retry policy.
func (s *Service) writeClaims(ctx context.Context, userID string, patch claims.ClaimSet) error {
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		_, err := claims.Merge(ctx, s.claims, userID, patch)
		return err
	})
	s.metrics.IncrementWrite(targetClaims, err)
	return err
}
