package httptransport

// AuditEntryDTO is the wire form of one ledger entry.
type AuditEntryDTO struct {
	ID            string         `json:"id"`
	Timestamp     string         `json:"timestamp"`
	ActorID       string         `json:"actorId,omitempty"`
	ActorType     string         `json:"actorType"`
	Action        string         `json:"action"`
	TargetID      string         `json:"targetId,omitempty"`
	TargetType    string         `json:"targetType,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ContentHash   string         `json:"contentHash"`
}

// AppendAuditRequest is the internal append payload. Id and contentHash are
// always assigned by the ledger, never taken from the caller.
type AppendAuditRequest struct {
	Timestamp     string         `json:"timestamp,omitempty"`
	ActorID       string         `json:"actorId,omitempty"`
	ActorType     string         `json:"actorType"`
	Action        string         `json:"action"`
	TargetID      string         `json:"targetId,omitempty"`
	TargetType    string         `json:"targetType,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type AppendAuditResponse struct {
	Status string        `json:"status"`
	Data   AuditEntryDTO `json:"data"`
}

type ListAuditRequest struct {
	ActorID       string
	TargetID      string
	Action        string
	CorrelationID string
	StartDate     string
	EndDate       string
	Limit         int
	Offset        int
}

type ListAuditResponse struct {
	Status string          `json:"status"`
	Data   []AuditEntryDTO `json:"data"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
