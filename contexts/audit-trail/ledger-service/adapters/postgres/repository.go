package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainerrors "heirloom/contexts/audit-trail/ledger-service/domain/errors"
	"heirloom/contexts/audit-trail/ledger-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Repository persists ledger entries in Postgres. It exposes no update or
// delete path; the table is written once per row and only ever read back.
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

// Migrate creates the audit_logs table when absent.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&auditLogModel{})
}

func (r *Repository) AppendEntry(ctx context.Context, entry ports.Entry) error {
	row, err := modelFromEntry(entry)
	if err != nil {
		return domainerrors.ErrInvalidEntry
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrLedgerWrite
		}
		return r.logError("audit_repo_append_failed", err,
			"entry_id", entry.EntryID,
			"action", entry.Action,
		)
	}
	return nil
}

func (r *Repository) ListEntries(ctx context.Context, filter ports.QueryFilter) ([]ports.Entry, error) {
	tx := r.db.WithContext(ctx).Model(&auditLogModel{})
	if filter.ActorID != "" {
		tx = tx.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetID != "" {
		tx = tx.Where("target_id = ?", filter.TargetID)
	}
	if filter.Action != "" {
		tx = tx.Where("action = ?", filter.Action)
	}
	if filter.CorrelationID != "" {
		tx = tx.Where("correlation_id = ?", filter.CorrelationID)
	}
	if !filter.Start.IsZero() {
		tx = tx.Where("timestamp >= ?", filter.Start)
	}
	if !filter.End.IsZero() {
		tx = tx.Where("timestamp <= ?", filter.End)
	}

	var rows []auditLogModel
	err := tx.Order("timestamp DESC").Order("seq ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, r.logError("audit_repo_list_failed", err)
	}

	entries := make([]ports.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toEntry()
		if err != nil {
			return nil, r.logError("audit_repo_decode_failed", err, "entry_id", row.ID)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "audit-trail/ledger-service",
		"layer", "adapters/postgres",
		"error", err.Error(),
	}, args...)
	r.logger.Error("audit ledger repository failure", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type auditLogModel struct {
	Seq           int64     `gorm:"column:seq;autoIncrement"`
	ID            string    `gorm:"column:id;primaryKey"`
	Timestamp     time.Time `gorm:"column:timestamp;index"`
	ActorID       *string   `gorm:"column:actor_id;index"`
	ActorType     string    `gorm:"column:actor_type"`
	Action        string    `gorm:"column:action;index"`
	TargetID      *string   `gorm:"column:target_id;index"`
	TargetType    *string   `gorm:"column:target_type"`
	CorrelationID *string   `gorm:"column:correlation_id;index"`
	Metadata      []byte    `gorm:"column:metadata;type:jsonb"`
	ContentHash   string    `gorm:"column:content_hash"`
}

func (auditLogModel) TableName() string {
	return "audit_logs"
}

func modelFromEntry(entry ports.Entry) (auditLogModel, error) {
	row := auditLogModel{
		ID:            strings.TrimSpace(entry.EntryID),
		Timestamp:     entry.Timestamp.UTC(),
		ActorType:     entry.ActorType,
		Action:        entry.Action,
		ActorID:       nullable(entry.ActorID),
		TargetID:      nullable(entry.TargetID),
		TargetType:    nullable(entry.TargetType),
		CorrelationID: nullable(entry.CorrelationID),
		ContentHash:   entry.ContentHash,
	}
	if entry.Metadata != nil {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return auditLogModel{}, err
		}
		row.Metadata = raw
	}
	return row, nil
}

func (m auditLogModel) toEntry() (ports.Entry, error) {
	entry := ports.Entry{
		EntryID:       m.ID,
		Timestamp:     m.Timestamp.UTC(),
		ActorType:     m.ActorType,
		Action:        m.Action,
		ActorID:       deref(m.ActorID),
		TargetID:      deref(m.TargetID),
		TargetType:    deref(m.TargetType),
		CorrelationID: deref(m.CorrelationID),
		ContentHash:   m.ContentHash,
	}
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &entry.Metadata); err != nil {
			return ports.Entry{}, err
		}
	}
	return entry, nil
}

func nullable(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
