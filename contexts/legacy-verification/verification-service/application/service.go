package application

import (
	"context"
	"log/slog"
	"strings"

	domainerrors "heirloom/contexts/legacy-verification/verification-service/domain/errors"
	"heirloom/contexts/legacy-verification/verification-service/ports"
)

// Audit actions emitted by the verification state machine and its cascade.
const (
	actionRequested      = "DEATH_VERIFICATION_REQUESTED"
	actionStatusUpdated  = "DEATH_VERIFICATION_STATUS_UPDATED_"
	actionRulesEvaluated = "INHERITANCE_RULES_EVALUATED"
	actionAssetsReleased = "ASSETS_MARKED_RELEASABLE"
	actionNotified       = "NOTIFICATION_SENT"

	targetTypeCase    = "DEATH_VERIFICATION"
	targetTypeSubject = "USER"
)

type Service struct {
	Repo     ports.Repository
	Rules    ports.RuleEvaluator
	Assets   ports.AssetReleaser
	Notifier ports.Notifier
	Audit    ports.AuditRecorder
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

// OpenCase files a new verification case for a subject. The store rejects it
// when an unverified or pending_review case for the same subject exists.
func (s Service) OpenCase(ctx context.Context, subjectUserID string, evidence map[string]any, correlationID string) (ports.VerificationCase, error) {
	subjectUserID = strings.TrimSpace(subjectUserID)
	if subjectUserID == "" {
		return ports.VerificationCase{}, domainerrors.ErrInvalidInput
	}

	caseID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.VerificationCase{}, err
	}
	now := s.Clock.Now().UTC()
	verification := ports.VerificationCase{
		CaseID:        caseID,
		SubjectUserID: subjectUserID,
		Status:        ports.StatusPendingReview,
		Evidence:      evidence,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Repo.CreateCase(ctx, verification); err != nil {
		return ports.VerificationCase{}, err
	}

	s.record(ctx, ports.AuditEntry{
		ActorID:       subjectUserID,
		ActorType:     "USER",
		Action:        actionRequested,
		TargetID:      verification.CaseID,
		TargetType:    targetTypeCase,
		CorrelationID: correlationID,
		Metadata:      map[string]any{"status": verification.Status},
	})

	s.logger().Info("verification case opened",
		"event", "verification_case_opened",
		"module", "legacy-verification/verification-service",
		"layer", "application",
		"case_id", verification.CaseID,
		"subject_user_id", subjectUserID,
		"correlation_id", correlationID,
	)
	return verification, nil
}

// DecideCase moves a pending case to a terminal status. The status change
// commits before the cascade runs; a cascade failure never rolls it back.
func (s Service) DecideCase(ctx context.Context, caseID string, newStatus string, reviewerID string, notes map[string]any, correlationID string) (ports.VerificationCase, error) {
	if newStatus != ports.StatusVerified && newStatus != ports.StatusRejected {
		return ports.VerificationCase{}, domainerrors.ErrInvalidStatus
	}

	verification, err := s.Repo.GetCase(ctx, strings.TrimSpace(caseID))
	if err != nil {
		return ports.VerificationCase{}, err
	}
	if verification.Status == ports.StatusVerified || verification.Status == ports.StatusRejected {
		return ports.VerificationCase{}, domainerrors.ErrCaseAlreadyDecided
	}

	oldStatus := verification.Status
	now := s.Clock.Now().UTC()
	verification.Status = newStatus
	verification.ReviewerID = strings.TrimSpace(reviewerID)
	verification.ReviewerNotes = notes
	verification.UpdatedAt = now
	if newStatus == ports.StatusVerified {
		verification.VerifiedAt = &now
	} else {
		verification.RejectedAt = &now
	}

	if err := s.Repo.UpdateCase(ctx, verification); err != nil {
		return ports.VerificationCase{}, err
	}

	s.record(ctx, ports.AuditEntry{
		ActorID:       verification.ReviewerID,
		ActorType:     "SYSTEM",
		Action:        actionStatusUpdated + strings.ToUpper(newStatus),
		TargetID:      verification.CaseID,
		TargetType:    targetTypeCase,
		CorrelationID: correlationID,
		Metadata: map[string]any{
			"oldStatus": oldStatus,
			"newStatus": newStatus,
			"userId":    verification.SubjectUserID,
		},
	})

	s.logger().Info("verification case decided",
		"event", "verification_case_decided",
		"module", "legacy-verification/verification-service",
		"layer", "application",
		"case_id", verification.CaseID,
		"old_status", oldStatus,
		"new_status", newStatus,
		"correlation_id", correlationID,
	)

	if newStatus == ports.StatusVerified {
		s.runCascade(ctx, verification.SubjectUserID, correlationID)
	}
	return verification, nil
}

func (s Service) GetCase(ctx context.Context, caseID string) (ports.VerificationCase, error) {
	return s.Repo.GetCase(ctx, strings.TrimSpace(caseID))
}

func (s Service) ListCases(ctx context.Context) ([]ports.VerificationCase, error) {
	return s.Repo.ListCases(ctx)
}

// runCascade fans the confirmed death out to the three downstream services
// in fixed order. Steps are independent: a failed step is logged and audited
// with its outcome, and the remaining steps still run. There is no
// compensation path when an early step succeeds and a later one fails.
func (s Service) runCascade(ctx context.Context, subjectUserID string, correlationID string) {
	s.runStep(ctx, subjectUserID, correlationID, actionRulesEvaluated, func() error {
		return s.Rules.EvaluateRules(ctx, subjectUserID, correlationID)
	})
	s.runStep(ctx, subjectUserID, correlationID, actionAssetsReleased, func() error {
		return s.Assets.MarkReleasable(ctx, subjectUserID, correlationID)
	})
	s.runStep(ctx, subjectUserID, correlationID, actionNotified, func() error {
		return s.Notifier.SendNotification(ctx, subjectUserID, "death_verified",
			"Death verified. Inheritance process initiated.", correlationID)
	})
}

func (s Service) runStep(ctx context.Context, subjectUserID string, correlationID string, action string, step func() error) {
	metadata := map[string]any{"trigger": "DEATH_VERIFIED", "outcome": "success"}
	if err := step(); err != nil {
		metadata["outcome"] = "failed"
		metadata["error"] = err.Error()
		s.logger().Error("cascade step failed",
			"event", "cascade_step_failed",
			"module", "legacy-verification/verification-service",
			"layer", "application",
			"step", action,
			"subject_user_id", subjectUserID,
			"correlation_id", correlationID,
			"error", err.Error(),
		)
	}
	s.record(ctx, ports.AuditEntry{
		ActorType:     "SYSTEM",
		Action:        action,
		TargetID:      subjectUserID,
		TargetType:    targetTypeSubject,
		CorrelationID: correlationID,
		Metadata:      metadata,
	})
}

// record writes an audit entry and swallows ledger failures: losing one
// entry must not abort the state change it describes.
func (s Service) record(ctx context.Context, entry ports.AuditEntry) {
	if err := s.Audit.Record(ctx, entry); err != nil {
		s.logger().Warn("audit entry dropped",
			"event", "verification_audit_dropped",
			"module", "legacy-verification/verification-service",
			"layer", "application",
			"action", entry.Action,
			"correlation_id", entry.CorrelationID,
			"error", err.Error(),
		)
	}
}

func (s Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
