package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainerrors "heirloom/contexts/legacy-verification/verification-service/domain/errors"
	"heirloom/contexts/legacy-verification/verification-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// Migrate creates the cases table and the partial unique index that makes
// "one outstanding case per subject" a database guarantee rather than an
// application-level check.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(&verificationCaseModel{}); err != nil {
		return err
	}
	return r.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_verification_cases_outstanding
		ON verification_cases (subject_user_id)
		WHERE status IN ('unverified', 'pending_review')
	`).Error
}

func (r *Repository) CreateCase(ctx context.Context, verification ports.VerificationCase) error {
	row, err := modelFromCase(verification)
	if err != nil {
		return domainerrors.ErrInvalidInput
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrDuplicateCase
		}
		return r.logError("verification_repo_create_failed", err,
			"case_id", verification.CaseID,
			"subject_user_id", verification.SubjectUserID,
		)
	}
	return nil
}

func (r *Repository) GetCase(ctx context.Context, caseID string) (ports.VerificationCase, error) {
	var row verificationCaseModel
	err := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(caseID)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.VerificationCase{}, domainerrors.ErrCaseNotFound
		}
		return ports.VerificationCase{}, r.logError("verification_repo_get_failed", err, "case_id", caseID)
	}
	return row.toCase()
}

func (r *Repository) UpdateCase(ctx context.Context, verification ports.VerificationCase) error {
	row, err := modelFromCase(verification)
	if err != nil {
		return domainerrors.ErrInvalidInput
	}
	result := r.db.WithContext(ctx).Model(&verificationCaseModel{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"status":         row.Status,
			"reviewer_id":    row.ReviewerID,
			"reviewer_notes": row.ReviewerNotes,
			"updated_at":     row.UpdatedAt,
			"verified_at":    row.VerifiedAt,
			"rejected_at":    row.RejectedAt,
		})
	if result.Error != nil {
		return r.logError("verification_repo_update_failed", result.Error, "case_id", verification.CaseID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCaseNotFound
	}
	return nil
}

func (r *Repository) ListCases(ctx context.Context) ([]ports.VerificationCase, error) {
	var rows []verificationCaseModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("verification_repo_list_failed", err)
	}
	cases := make([]ports.VerificationCase, 0, len(rows))
	for _, row := range rows {
		verification, err := row.toCase()
		if err != nil {
			return nil, r.logError("verification_repo_decode_failed", err, "case_id", row.ID)
		}
		cases = append(cases, verification)
	}
	return cases, nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "legacy-verification/verification-service",
		"layer", "adapters/postgres",
		"error", err.Error(),
	}, args...)
	r.logger.Error("verification repository failure", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type verificationCaseModel struct {
	ID            string     `gorm:"column:id;primaryKey"`
	SubjectUserID string     `gorm:"column:subject_user_id;index"`
	Status        string     `gorm:"column:status;index"`
	Evidence      []byte     `gorm:"column:evidence;type:jsonb"`
	ReviewerID    *string    `gorm:"column:reviewer_id"`
	ReviewerNotes []byte     `gorm:"column:reviewer_notes;type:jsonb"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
	VerifiedAt    *time.Time `gorm:"column:verified_at"`
	RejectedAt    *time.Time `gorm:"column:rejected_at"`
}

func (verificationCaseModel) TableName() string {
	return "verification_cases"
}

func modelFromCase(verification ports.VerificationCase) (verificationCaseModel, error) {
	row := verificationCaseModel{
		ID:            strings.TrimSpace(verification.CaseID),
		SubjectUserID: strings.TrimSpace(verification.SubjectUserID),
		Status:        verification.Status,
		CreatedAt:     verification.CreatedAt.UTC(),
		UpdatedAt:     verification.UpdatedAt.UTC(),
		VerifiedAt:    verification.VerifiedAt,
		RejectedAt:    verification.RejectedAt,
	}
	if reviewer := strings.TrimSpace(verification.ReviewerID); reviewer != "" {
		row.ReviewerID = &reviewer
	}
	if verification.Evidence != nil {
		raw, err := json.Marshal(verification.Evidence)
		if err != nil {
			return verificationCaseModel{}, err
		}
		row.Evidence = raw
	}
	if verification.ReviewerNotes != nil {
		raw, err := json.Marshal(verification.ReviewerNotes)
		if err != nil {
			return verificationCaseModel{}, err
		}
		row.ReviewerNotes = raw
	}
	return row, nil
}

func (m verificationCaseModel) toCase() (ports.VerificationCase, error) {
	verification := ports.VerificationCase{
		CaseID:        m.ID,
		SubjectUserID: m.SubjectUserID,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
		VerifiedAt:    m.VerifiedAt,
		RejectedAt:    m.RejectedAt,
	}
	if m.ReviewerID != nil {
		verification.ReviewerID = *m.ReviewerID
	}
	if len(m.Evidence) > 0 {
		if err := json.Unmarshal(m.Evidence, &verification.Evidence); err != nil {
			return ports.VerificationCase{}, err
		}
	}
	if len(m.ReviewerNotes) > 0 {
		if err := json.Unmarshal(m.ReviewerNotes, &verification.ReviewerNotes); err != nil {
			return ports.VerificationCase{}, err
		}
	}
	return verification, nil
}
