package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rolesync/internal/claims"
	"rolesync/internal/events"
	"rolesync/internal/roles/metrics"
	"rolesync/internal/roles/models"
)

// HandleProfileUpdated copies the profile's role into the claim set when the
// update changed it. Updates that leave the role untouched perform no writes.
//
// Other claims are preserved. A role removed from the profile removes the
// claim. Errors are returned so the event can be redelivered.
func (s *Service) HandleProfileUpdated(ctx context.Context, change events.DocumentChange) error {
	userID := change.Params[models.UserIDParam]
	if userID == "" {
		userID = change.Ref.ID
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "roles.HandleProfileUpdated",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("event.id", change.EventID),
		))
	defer span.End()
	defer func() { s.metrics.ObserveHandleLatency(metrics.HandlerRoleChange, time.Since(start)) }()

	fc, changed := models.Changed(change.Before, change.After, s.policy.Field)
	if !changed {
		s.metrics.IncrementOutcome(metrics.HandlerRoleChange, metrics.OutcomeNoop)
		return nil
	}

	var value any
	if fc.Present {
		value = fc.Value
	}

	if err := s.writeClaims(ctx, userID, claims.ClaimSet{s.policy.Field: value}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "role claim sync failed")
		s.logger.WarnContext(ctx, "failed to sync role claim",
			"user_id", userID,
			"event_id", change.EventID,
			"error", err,
		)
		s.metrics.IncrementOutcome(metrics.HandlerRoleChange, metrics.OutcomeFailed)
		return fmt.Errorf("sync role claim for user %s: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "role claim synced",
		"user_id", userID,
		"event_id", change.EventID,
		"role", value,
	)
	s.metrics.IncrementOutcome(metrics.HandlerRoleChange, metrics.OutcomeSuccess)
	return nil
}
