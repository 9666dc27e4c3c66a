package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainerrors "heirloom/contexts/audit-trail/ledger-service/domain/errors"
	"heirloom/contexts/audit-trail/ledger-service/ports"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 100
)

type Service struct {
	Repo   ports.Repository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// Append assigns id and timestamp where absent, stamps the content hash and
// persists the entry. A store failure surfaces as ErrLedgerWrite; the ledger
// never reports success for an entry it did not durably write.
func (s Service) Append(ctx context.Context, input ports.AppendInput) (ports.Entry, error) {
	if !isValidActorType(input.ActorType) || strings.TrimSpace(input.Action) == "" {
		return ports.Entry{}, domainerrors.ErrInvalidEntry
	}

	timestamp := input.Timestamp.UTC()
	if input.Timestamp.IsZero() {
		timestamp = s.Clock.Now().UTC()
	}
	entryID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.Entry{}, err
	}

	entry := ports.Entry{
		EntryID:       entryID,
		Timestamp:     timestamp,
		ActorID:       strings.TrimSpace(input.ActorID),
		ActorType:     input.ActorType,
		Action:        strings.TrimSpace(input.Action),
		TargetID:      strings.TrimSpace(input.TargetID),
		TargetType:    strings.TrimSpace(input.TargetType),
		CorrelationID: strings.TrimSpace(input.CorrelationID),
		Metadata:      input.Metadata,
	}
	entry.ContentHash, err = ContentHash(entry)
	if err != nil {
		return ports.Entry{}, fmt.Errorf("%w: %v", domainerrors.ErrInvalidEntry, err)
	}

	if err := s.Repo.AppendEntry(ctx, entry); err != nil {
		resolveLogger(s.Logger).Error("audit entry write failed",
			"event", "audit_append_failed",
			"module", "audit-trail/ledger-service",
			"layer", "application",
			"action", entry.Action,
			"correlation_id", entry.CorrelationID,
			"error", err.Error(),
		)
		return ports.Entry{}, fmt.Errorf("%w: %v", domainerrors.ErrLedgerWrite, err)
	}

	resolveLogger(s.Logger).Info("audit entry appended",
		"event", "audit_entry_appended",
		"module", "audit-trail/ledger-service",
		"layer", "application",
		"entry_id", entry.EntryID,
		"action", entry.Action,
		"actor_type", entry.ActorType,
		"correlation_id", entry.CorrelationID,
	)
	return entry, nil
}

// Query returns matching entries newest first. Limit defaults to 50 and is
// capped at 100; a negative offset is rejected.
func (s Service) Query(ctx context.Context, filter ports.QueryFilter) ([]ports.Entry, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, domainerrors.ErrInvalidFilter
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && filter.End.Before(filter.Start) {
		return nil, domainerrors.ErrInvalidFilter
	}
	if filter.Limit == 0 {
		filter.Limit = defaultQueryLimit
	}
	if filter.Limit > maxQueryLimit {
		filter.Limit = maxQueryLimit
	}
	return s.Repo.ListEntries(ctx, filter)
}

// hashRecord pins the canonical JSON shape hashed into ContentHash: every
// field of the entry except id and the hash itself, in declaration order.
// This hash covers a re-serialized record; it is a different animal from the
// wire-level body hash in the signing codec and must stay separate.
type hashRecord struct {
	Timestamp     string         `json:"timestamp"`
	ActorID       string         `json:"actorId"`
	ActorType     string         `json:"actorType"`
	Action        string         `json:"action"`
	TargetID      string         `json:"targetId"`
	TargetType    string         `json:"targetType"`
	CorrelationID string         `json:"correlationId"`
	Metadata      map[string]any `json:"metadata"`
}

func ContentHash(entry ports.Entry) (string, error) {
	payload, err := json.Marshal(hashRecord{
		Timestamp:     entry.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorID:       entry.ActorID,
		ActorType:     entry.ActorType,
		Action:        entry.Action,
		TargetID:      entry.TargetID,
		TargetType:    entry.TargetType,
		CorrelationID: entry.CorrelationID,
		Metadata:      entry.Metadata,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func isValidActorType(actorType string) bool {
	switch actorType {
	case ports.ActorTypeUser, ports.ActorTypeSystem, ports.ActorTypeService:
		return true
	default:
		return false
	}
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
