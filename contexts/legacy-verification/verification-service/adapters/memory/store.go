package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainerrors "heirloom/contexts/legacy-verification/verification-service/domain/errors"
	"heirloom/contexts/legacy-verification/verification-service/ports"

	"github.com/google/uuid"
)

// Store keeps verification cases in process, serializing writes so the
// one-outstanding-case-per-subject rule holds under concurrent opens.
type Store struct {
	mu    sync.RWMutex
	cases map[string]ports.VerificationCase
}

func NewStore() *Store {
	return &Store{cases: make(map[string]ports.VerificationCase)}
}

func (s *Store) CreateCase(_ context.Context, verification ports.VerificationCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(verification.CaseID)
	if id == "" || strings.TrimSpace(verification.SubjectUserID) == "" {
		return domainerrors.ErrInvalidInput
	}
	for _, existing := range s.cases {
		if existing.SubjectUserID == verification.SubjectUserID && isOutstanding(existing.Status) {
			return domainerrors.ErrDuplicateCase
		}
	}
	s.cases[id] = verification
	return nil
}

func (s *Store) GetCase(_ context.Context, caseID string) (ports.VerificationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	verification, ok := s.cases[strings.TrimSpace(caseID)]
	if !ok {
		return ports.VerificationCase{}, domainerrors.ErrCaseNotFound
	}
	return verification, nil
}

func (s *Store) UpdateCase(_ context.Context, verification ports.VerificationCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(verification.CaseID)
	if _, ok := s.cases[id]; !ok {
		return domainerrors.ErrCaseNotFound
	}
	s.cases[id] = verification
	return nil
}

func (s *Store) ListCases(_ context.Context) ([]ports.VerificationCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ports.VerificationCase, 0, len(s.cases))
	for _, verification := range s.cases {
		out = append(out, verification)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func isOutstanding(status string) bool {
	return status == ports.StatusUnverified || status == ports.StatusPendingReview
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(context.Context) (string, error) {
	return uuid.NewString(), nil
}
