package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"rolesync/internal/claims"
	"rolesync/internal/documents"
	"rolesync/internal/events"
	"rolesync/internal/roles/metrics"
)

// HandleUserCreated assigns the default role to a new user, on the profile
// document and in the claim set. The two writes run concurrently and neither
// waits on the other.
//
// Failures are logged with the user id and never returned: a created user is
// not redelivered, and a partial assignment is left for reconciliation.
func (s *Service) HandleUserCreated(ctx context.Context, evt events.UserCreated) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "roles.HandleUserCreated",
		trace.WithAttributes(attribute.String("user.id", evt.UserID)))
	defer span.End()
	defer func() { s.metrics.ObserveHandleLatency(metrics.HandlerRegistration, time.Since(start)) }()

	role := string(s.policy.DefaultRole)

	// plain Group: a failed write must not cancel the other one
	var (
		g    errgroup.Group
		errs [2]error
	)
	g.Go(func() error {
		errs[0] = s.writeProfile(ctx, evt.UserID, documents.Fields{s.policy.Field: role})
		return nil
	})
	g.Go(func() error {
		errs[1] = s.writeClaims(ctx, evt.UserID, claims.ClaimSet{s.policy.Field: role})
		return nil
	})
	_ = g.Wait()

	if err := errors.Join(errs[:]...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "default role assignment incomplete")
		s.logger.ErrorContext(ctx, "failed to assign default role",
			"user_id", evt.UserID,
			"role", role,
			"profile_written", errs[0] == nil,
			"claims_written", errs[1] == nil,
			"error", err,
		)
		s.metrics.IncrementOutcome(metrics.HandlerRegistration, metrics.OutcomeSuppressed)
		return nil
	}

	s.logger.InfoContext(ctx, "default role assigned",
		"user_id", evt.UserID,
		"role", role,
	)
	s.metrics.IncrementOutcome(metrics.HandlerRegistration, metrics.OutcomeSuccess)
	return nil
}
