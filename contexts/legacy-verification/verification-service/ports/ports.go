package ports

import (
	"context"
	"time"
)

// Case statuses. VERIFIED and REJECTED are terminal; a subject may have at
// most one case in unverified or pending_review at any time.
const (
	StatusUnverified    = "unverified"
	StatusPendingReview = "pending_review"
	StatusVerified      = "verified"
	StatusRejected      = "rejected"
)

type VerificationCase struct {
	CaseID        string
	SubjectUserID string
	Status        string
	Evidence      map[string]any
	ReviewerID    string
	ReviewerNotes map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
	VerifiedAt    *time.Time
	RejectedAt    *time.Time
}

type Repository interface {
	// CreateCase fails with ErrDuplicateCase when the subject already has an
	// outstanding case. The store enforces this, not application-level locks.
	CreateCase(ctx context.Context, verification VerificationCase) error
	GetCase(ctx context.Context, caseID string) (VerificationCase, error)
	UpdateCase(ctx context.Context, verification VerificationCase) error
	ListCases(ctx context.Context) ([]VerificationCase, error)
}

// Cascade step ports. Each maps to one independent downstream service.
type RuleEvaluator interface {
	EvaluateRules(ctx context.Context, subjectUserID string, correlationID string) error
}

type AssetReleaser interface {
	MarkReleasable(ctx context.Context, subjectUserID string, correlationID string) error
}

type Notifier interface {
	SendNotification(ctx context.Context, subjectUserID string, notificationType string, message string, correlationID string) error
}

// AuditEntry mirrors what the ledger accepts on append.
type AuditEntry struct {
	ActorID       string
	ActorType     string
	Action        string
	TargetID      string
	TargetType    string
	CorrelationID string
	Metadata      map[string]any
}

type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
