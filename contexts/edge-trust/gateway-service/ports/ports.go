package ports

import "context"

// Identity is what the Identity Issuer asserts about a bearer token.
type Identity struct {
	SubjectID string
	Email     string
}

// TokenVerifier checks an end-user bearer token. Implementations fail with
// domainerrors.ErrInvalidToken for anything short of a valid, unexpired
// token carrying both subject and email.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
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

// AuditRecorder writes entries without gating the proxied response: the
// write is attempted, its outcome logged, and failures swallowed.
type AuditRecorder interface {
	RecordAsync(ctx context.Context, entry AuditEntry)
}
