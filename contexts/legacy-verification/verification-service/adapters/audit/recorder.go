package audit

import (
	"context"

	auditclient "heirloom/contexts/audit-trail/ledger-service/client"
	"heirloom/contexts/legacy-verification/verification-service/ports"
)

// Recorder bridges the verification service's audit port to the ledger's
// append client.
type Recorder struct {
	Client *auditclient.Client
}

func (r Recorder) Record(ctx context.Context, entry ports.AuditEntry) error {
	return r.Client.Record(ctx, auditclient.Entry{
		ActorID:       entry.ActorID,
		ActorType:     entry.ActorType,
		Action:        entry.Action,
		TargetID:      entry.TargetID,
		TargetType:    entry.TargetType,
		CorrelationID: entry.CorrelationID,
		Metadata:      entry.Metadata,
	})
}
