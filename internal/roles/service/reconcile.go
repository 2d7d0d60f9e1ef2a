package service

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"rolesync/internal/claims"
	"rolesync/internal/documents"
	"rolesync/internal/roles/metrics"
	"rolesync/internal/roles/models"
)

// ReconcileReport summarizes a pass over every profile.
type ReconcileReport struct {
	Scanned  int
	Drifted  int
	Repaired int
	Failed   int
}

// Drifted reports whether the user's role claim disagrees with profile.
func (s *Service) Drifted(ctx context.Context, userID string, profile documents.Fields) (bool, error) {
	current, err := s.claims.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("read claims for user %s: %w", userID, err)
	}
	want, wantOK := models.Project(profile, s.policy.Field)
	have, haveOK := current[s.policy.Field]
	if wantOK != haveOK {
		return true, nil
	}
	return !reflect.DeepEqual(want, have), nil
}

// Reconcile copies the profile's role into the claim set if they disagree. It
// reports whether a write was made.
func (s *Service) Reconcile(ctx context.Context, userID string, profile documents.Fields) (bool, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveHandleLatency(metrics.HandlerReconcile, time.Since(start)) }()

	drifted, err := s.Drifted(ctx, userID, profile)
	if err != nil {
		s.metrics.IncrementOutcome(metrics.HandlerReconcile, metrics.OutcomeFailed)
		return false, err
	}
	if !drifted {
		s.metrics.IncrementOutcome(metrics.HandlerReconcile, metrics.OutcomeNoop)
		return false, nil
	}

	// absent yields nil, which removes the claim
	value, _ := models.Project(profile, s.policy.Field)
	if err := s.writeClaims(ctx, userID, claims.ClaimSet{s.policy.Field: value}); err != nil {
		s.metrics.IncrementOutcome(metrics.HandlerReconcile, metrics.OutcomeFailed)
		return false, fmt.Errorf("reconcile user %s: %w", userID, err)
	}

	s.logger.InfoContext(ctx, "role claim reconciled",
		"user_id", userID,
		"role", value,
	)
	s.metrics.IncrementOutcome(metrics.HandlerReconcile, metrics.OutcomeSuccess)
	return true, nil
}

// ReconcileAll walks every profile in the policy's collection. With apply
// unset it only counts drift. Per-user failures are logged and counted; the
// walk continues.
func (s *Service) ReconcileAll(ctx context.Context, profiles ProfileLister, apply bool) (ReconcileReport, error) {
	var report ReconcileReport
	err := profiles.List(ctx, s.policy.Collection, func(id string, fields documents.Fields) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Scanned++

		if !apply {
			drifted, err := s.Drifted(ctx, id, fields)
			if err != nil {
				report.Failed++
				s.logger.WarnContext(ctx, "drift check failed", "user_id", id, "error", err)
				return nil
			}
			if drifted {
				report.Drifted++
				s.logger.InfoContext(ctx, "role claim drift", "user_id", id)
			}
			return nil
		}

		repaired, err := s.Reconcile(ctx, id, fields)
		if err != nil {
			report.Failed++
			s.logger.WarnContext(ctx, "reconcile failed", "user_id", id, "error", err)
			return nil
		}
		if repaired {
			report.Drifted++
			report.Repaired++
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("list profiles: %w", err)
	}
	return report, nil
}
