package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainerrors "heirloom/contexts/legacy-verification/verification-service/domain/errors"
	"heirloom/contexts/legacy-verification/verification-service/ports"
)

type fakeRepo struct {
	cases map[string]ports.VerificationCase
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{cases: make(map[string]ports.VerificationCase)}
}

func (r *fakeRepo) CreateCase(_ context.Context, verification ports.VerificationCase) error {
	for _, existing := range r.cases {
		if existing.SubjectUserID == verification.SubjectUserID &&
			(existing.Status == ports.StatusUnverified || existing.Status == ports.StatusPendingReview) {
			return domainerrors.ErrDuplicateCase
		}
	}
	r.cases[verification.CaseID] = verification
	return nil
}

func (r *fakeRepo) GetCase(_ context.Context, caseID string) (ports.VerificationCase, error) {
	verification, ok := r.cases[caseID]
	if !ok {
		return ports.VerificationCase{}, domainerrors.ErrCaseNotFound
	}
	return verification, nil
}

func (r *fakeRepo) UpdateCase(_ context.Context, verification ports.VerificationCase) error {
	if _, ok := r.cases[verification.CaseID]; !ok {
		return domainerrors.ErrCaseNotFound
	}
	r.cases[verification.CaseID] = verification
	return nil
}

func (r *fakeRepo) ListCases(_ context.Context) ([]ports.VerificationCase, error) {
	out := make([]ports.VerificationCase, 0, len(r.cases))
	for _, verification := range r.cases {
		out = append(out, verification)
	}
	return out, nil
}

type stepRecorder struct {
	ruleCalls   []string
	assetCalls  []string
	notifyCalls []string
	ruleErr     error
	assetErr    error
	notifyErr   error
}

func (s *stepRecorder) EvaluateRules(_ context.Context, subjectUserID string, _ string) error {
	s.ruleCalls = append(s.ruleCalls, subjectUserID)
	return s.ruleErr
}

func (s *stepRecorder) MarkReleasable(_ context.Context, subjectUserID string, _ string) error {
	s.assetCalls = append(s.assetCalls, subjectUserID)
	return s.assetErr
}

func (s *stepRecorder) SendNotification(_ context.Context, subjectUserID string, _ string, _ string, _ string) error {
	s.notifyCalls = append(s.notifyCalls, subjectUserID)
	return s.notifyErr
}

type auditSink struct {
	entries []ports.AuditEntry
	err     error
}

func (a *auditSink) Record(_ context.Context, entry ports.AuditEntry) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID(context.Context) (string, error) {
	g.n++
	return fmt.Sprintf("case-%d", g.n), nil
}

func newService(repo *fakeRepo, steps *stepRecorder, audit *auditSink) Service {
	return Service{
		Repo:     repo,
		Rules:    steps,
		Assets:   steps,
		Notifier: steps,
		Audit:    audit,
		Clock:    fixedClock{now: time.Date(2026, time.March, 3, 15, 0, 0, 0, time.UTC)},
		IDGen:    &seqIDGen{},
	}
}

func TestOpenCaseCreatesPendingReviewAndAudits(t *testing.T) {
	repo := newFakeRepo()
	audit := &auditSink{}
	service := newService(repo, &stepRecorder{}, audit)

	verification, err := service.OpenCase(context.Background(), "s1", map[string]any{"source": "registry"}, "corr-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if verification.Status != ports.StatusPendingReview {
		t.Fatalf("new case must be pending_review, got %s", verification.Status)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != "DEATH_VERIFICATION_REQUESTED" {
		t.Fatalf("expected one REQUESTED audit entry, got %+v", audit.entries)
	}
	if audit.entries[0].TargetID != verification.CaseID {
		t.Fatalf("audit entry must target the case, got %s", audit.entries[0].TargetID)
	}
}

func TestOpenCaseRejectsDuplicateWhileOutstanding(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo, &stepRecorder{}, &auditSink{})

	if _, err := service.OpenCase(context.Background(), "s1", nil, "corr-1"); err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if _, err := service.OpenCase(context.Background(), "s1", nil, "corr-2"); !errors.Is(err, domainerrors.ErrDuplicateCase) {
		t.Fatalf("expected ErrDuplicateCase, got %v", err)
	}
}

func TestOpenCaseAllowedAfterPriorCaseDecided(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo, &stepRecorder{}, &auditSink{})

	first, err := service.OpenCase(context.Background(), "s1", nil, "corr-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := service.DecideCase(context.Background(), first.CaseID, ports.StatusRejected, "r1", nil, "corr-1"); err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if _, err := service.OpenCase(context.Background(), "s1", nil, "corr-2"); err != nil {
		t.Fatalf("open after terminal decision must succeed, got %v", err)
	}
}

func TestDecideVerifiedRunsFullCascadeWithFiveAuditEntries(t *testing.T) {
	repo := newFakeRepo()
	steps := &stepRecorder{}
	audit := &auditSink{}
	service := newService(repo, steps, audit)

	opened, err := service.OpenCase(context.Background(), "s1", map[string]any{"source": "registry"}, "corr-1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	decided, err := service.DecideCase(context.Background(), opened.CaseID, ports.StatusVerified, "r1", map[string]any{"note": "certificate checked"}, "corr-1")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}

	if decided.VerifiedAt == nil {
		t.Fatal("verifiedAt must be set on a verified case")
	}
	if decided.RejectedAt != nil {
		t.Fatal("rejectedAt must stay unset on a verified case")
	}
	if decided.ReviewerID != "r1" {
		t.Fatalf("reviewer not recorded, got %q", decided.ReviewerID)
	}

	if len(steps.ruleCalls) != 1 || len(steps.assetCalls) != 1 || len(steps.notifyCalls) != 1 {
		t.Fatalf("each cascade step must run exactly once: rules=%d assets=%d notify=%d",
			len(steps.ruleCalls), len(steps.assetCalls), len(steps.notifyCalls))
	}

	wantActions := []string{
		"DEATH_VERIFICATION_REQUESTED",
		"DEATH_VERIFICATION_STATUS_UPDATED_VERIFIED",
		"INHERITANCE_RULES_EVALUATED",
		"ASSETS_MARKED_RELEASABLE",
		"NOTIFICATION_SENT",
	}
	if len(audit.entries) != len(wantActions) {
		t.Fatalf("expected exactly %d audit entries, got %d: %+v", len(wantActions), len(audit.entries), actions(audit.entries))
	}
	for i, want := range wantActions {
		if audit.entries[i].Action != want {
			t.Fatalf("audit entry %d: want %s, got %s", i, want, audit.entries[i].Action)
		}
		if audit.entries[i].CorrelationID != "corr-1" {
			t.Fatalf("audit entry %s must share the correlation id, got %q", want, audit.entries[i].CorrelationID)
		}
	}
}

func TestDecideRejectedSkipsCascade(t *testing.T) {
	repo := newFakeRepo()
	steps := &stepRecorder{}
	audit := &auditSink{}
	service := newService(repo, steps, audit)

	opened, _ := service.OpenCase(context.Background(), "s1", nil, "corr-1")
	decided, err := service.DecideCase(context.Background(), opened.CaseID, ports.StatusRejected, "r1", nil, "corr-1")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if decided.RejectedAt == nil || decided.VerifiedAt != nil {
		t.Fatal("rejected case must set rejectedAt only")
	}
	if len(steps.ruleCalls)+len(steps.assetCalls)+len(steps.notifyCalls) != 0 {
		t.Fatal("cascade must not run on rejection")
	}
	if len(audit.entries) != 2 || audit.entries[1].Action != "DEATH_VERIFICATION_STATUS_UPDATED_REJECTED" {
		t.Fatalf("expected REQUESTED then STATUS_UPDATED_REJECTED, got %v", actions(audit.entries))
	}
}

func TestCascadeStepFailureDoesNotBlockRemainingSteps(t *testing.T) {
	repo := newFakeRepo()
	steps := &stepRecorder{ruleErr: errors.New("rules service down")}
	audit := &auditSink{}
	service := newService(repo, steps, audit)

	opened, _ := service.OpenCase(context.Background(), "s1", nil, "corr-1")
	decided, err := service.DecideCase(context.Background(), opened.CaseID, ports.StatusVerified, "r1", nil, "corr-1")
	if err != nil {
		t.Fatalf("decide must not fail when a cascade step fails: %v", err)
	}
	if decided.Status != ports.StatusVerified {
		t.Fatal("committed status must survive a cascade failure")
	}
	if len(steps.assetCalls) != 1 || len(steps.notifyCalls) != 1 {
		t.Fatal("later steps must still run after an earlier failure")
	}

	// All five entries still land; the failed step's entry carries the outcome.
	if len(audit.entries) != 5 {
		t.Fatalf("expected 5 audit entries, got %v", actions(audit.entries))
	}
	rulesEntry := audit.entries[2]
	if rulesEntry.Action != "INHERITANCE_RULES_EVALUATED" || rulesEntry.Metadata["outcome"] != "failed" {
		t.Fatalf("failed step must be audited with outcome=failed, got %+v", rulesEntry)
	}
	if audit.entries[3].Metadata["outcome"] != "success" {
		t.Fatalf("unaffected step must be audited with outcome=success, got %+v", audit.entries[3])
	}
}

func TestDecideUnknownCaseFailsNotFound(t *testing.T) {
	service := newService(newFakeRepo(), &stepRecorder{}, &auditSink{})
	_, err := service.DecideCase(context.Background(), "missing", ports.StatusVerified, "r1", nil, "corr-1")
	if !errors.Is(err, domainerrors.ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}
}

func TestDecideTerminalCaseFails(t *testing.T) {
	repo := newFakeRepo()
	service := newService(repo, &stepRecorder{}, &auditSink{})

	opened, _ := service.OpenCase(context.Background(), "s1", nil, "corr-1")
	if _, err := service.DecideCase(context.Background(), opened.CaseID, ports.StatusVerified, "r1", nil, "corr-1"); err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	_, err := service.DecideCase(context.Background(), opened.CaseID, ports.StatusRejected, "r2", nil, "corr-2")
	if !errors.Is(err, domainerrors.ErrCaseAlreadyDecided) {
		t.Fatalf("expected ErrCaseAlreadyDecided, got %v", err)
	}
}

func TestDecideRejectsNonTerminalTarget(t *testing.T) {
	service := newService(newFakeRepo(), &stepRecorder{}, &auditSink{})
	_, err := service.DecideCase(context.Background(), "any", ports.StatusPendingReview, "r1", nil, "corr-1")
	if !errors.Is(err, domainerrors.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestAuditFailureDoesNotAbortStateChange(t *testing.T) {
	repo := newFakeRepo()
	audit := &auditSink{err: errors.New("ledger unreachable")}
	service := newService(repo, &stepRecorder{}, audit)

	opened, err := service.OpenCase(context.Background(), "s1", nil, "corr-1")
	if err != nil {
		t.Fatalf("open must survive an audit failure: %v", err)
	}
	if _, err := service.DecideCase(context.Background(), opened.CaseID, ports.StatusVerified, "r1", nil, "corr-1"); err != nil {
		t.Fatalf("decide must survive an audit failure: %v", err)
	}
}

func actions(entries []ports.AuditEntry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Action)
	}
	return out
}
