package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainerrors "heirloom/contexts/audit-trail/ledger-service/domain/errors"
	"heirloom/contexts/audit-trail/ledger-service/ports"

	"github.com/google/uuid"
)

// Store keeps ledger entries in process. Used by tests and DSN-less boot.
type Store struct {
	mu      sync.RWMutex
	entries []ports.Entry
	byID    map[string]struct{}
}

func NewStore() *Store {
	return &Store{byID: make(map[string]struct{})}
}

func (s *Store) AppendEntry(_ context.Context, entry ports.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(entry.EntryID)
	if id == "" || entry.ContentHash == "" {
		return domainerrors.ErrInvalidEntry
	}
	if _, exists := s.byID[id]; exists {
		return domainerrors.ErrLedgerWrite
	}
	s.byID[id] = struct{}{}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) ListEntries(_ context.Context, filter ports.QueryFilter) ([]ports.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]ports.Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if matches(entry, filter) {
			matched = append(matched, entry)
		}
	}

	// Newest first; the stable sort keeps insertion order within timestamp ties.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if filter.Offset >= len(matched) {
		return []ports.Entry{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func matches(entry ports.Entry, filter ports.QueryFilter) bool {
	if filter.ActorID != "" && entry.ActorID != filter.ActorID {
		return false
	}
	if filter.TargetID != "" && entry.TargetID != filter.TargetID {
		return false
	}
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	if filter.CorrelationID != "" && entry.CorrelationID != filter.CorrelationID {
		return false
	}
	if !filter.Start.IsZero() && entry.Timestamp.Before(filter.Start) {
		return false
	}
	if !filter.End.IsZero() && entry.Timestamp.After(filter.End) {
		return false
	}
	return true
}

// SystemClock and UUIDGenerator satisfy the ledger ports for production wiring.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}
