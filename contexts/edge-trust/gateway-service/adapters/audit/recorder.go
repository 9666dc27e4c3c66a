package audit

import (
	"context"

	auditclient "heirloom/contexts/audit-trail/ledger-service/client"
	"heirloom/contexts/edge-trust/gateway-service/ports"
)

// Recorder bridges the gateway's fire-and-forget audit port to the ledger's
// append client.
type Recorder struct {
	Client *auditclient.Client
}

func (r Recorder) RecordAsync(ctx context.Context, entry ports.AuditEntry) {
	r.Client.RecordAsync(ctx, auditclient.Entry{
		ActorID:       entry.ActorID,
		ActorType:     entry.ActorType,
		Action:        entry.Action,
		TargetID:      entry.TargetID,
		TargetType:    entry.TargetType,
		CorrelationID: entry.CorrelationID,
		Metadata:      entry.Metadata,
	})
}
