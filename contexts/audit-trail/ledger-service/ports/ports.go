package ports

import (
	"context"
	"time"
)

// Actor types recorded on ledger entries.
const (
	ActorTypeUser    = "USER"
	ActorTypeSystem  = "SYSTEM"
	ActorTypeService = "SERVICE"
)

// Entry is one immutable ledger record. Once persisted it is never updated
// or deleted; corrections are new, compensating entries.
type Entry struct {
	EntryID       string
	Timestamp     time.Time
	ActorID       string
	ActorType     string
	Action        string
	TargetID      string
	TargetType    string
	CorrelationID string
	Metadata      map[string]any
	ContentHash   string
}

// AppendInput is an entry before the ledger assigns id, timestamp and hash.
type AppendInput struct {
	Timestamp     time.Time
	ActorID       string
	ActorType     string
	Action        string
	TargetID      string
	TargetType    string
	CorrelationID string
	Metadata      map[string]any
}

// QueryFilter is a conjunction: every non-zero field must match.
type QueryFilter struct {
	ActorID       string
	TargetID      string
	Action        string
	CorrelationID string
	Start         time.Time
	End           time.Time
	Limit         int
	Offset        int
}

// Repository is append-and-read only. There is deliberately no update or
// delete method; adding one would break the ledger's immutability guarantee.
type Repository interface {
	AppendEntry(ctx context.Context, entry Entry) error
	ListEntries(ctx context.Context, filter QueryFilter) ([]Entry, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
