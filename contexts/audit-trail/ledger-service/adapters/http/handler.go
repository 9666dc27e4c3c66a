package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"heirloom/contexts/audit-trail/ledger-service/application"
	domainerrors "heirloom/contexts/audit-trail/ledger-service/domain/errors"
	"heirloom/contexts/audit-trail/ledger-service/ports"
	httptransport "heirloom/contexts/audit-trail/ledger-service/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) AppendHandler(ctx context.Context, req httptransport.AppendAuditRequest) (httptransport.AppendAuditResponse, error) {
	input := ports.AppendInput{
		ActorID:       req.ActorID,
		ActorType:     req.ActorType,
		Action:        req.Action,
		TargetID:      req.TargetID,
		TargetType:    req.TargetType,
		CorrelationID: req.CorrelationID,
		Metadata:      req.Metadata,
	}
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			return httptransport.AppendAuditResponse{}, domainerrors.ErrInvalidEntry
		}
		input.Timestamp = parsed
	}

	entry, err := h.Service.Append(ctx, input)
	if err != nil {
		return httptransport.AppendAuditResponse{}, err
	}
	return httptransport.AppendAuditResponse{Status: "success", Data: toDTO(entry)}, nil
}

func (h Handler) QueryHandler(ctx context.Context, req httptransport.ListAuditRequest) (httptransport.ListAuditResponse, error) {
	filter := ports.QueryFilter{
		ActorID:       req.ActorID,
		TargetID:      req.TargetID,
		Action:        req.Action,
		CorrelationID: req.CorrelationID,
		Limit:         req.Limit,
		Offset:        req.Offset,
	}
	if req.StartDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return httptransport.ListAuditResponse{}, domainerrors.ErrInvalidFilter
		}
		filter.Start = parsed
	}
	if req.EndDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return httptransport.ListAuditResponse{}, domainerrors.ErrInvalidFilter
		}
		filter.End = parsed
	}

	entries, err := h.Service.Query(ctx, filter)
	if err != nil {
		return httptransport.ListAuditResponse{}, err
	}

	resp := httptransport.ListAuditResponse{
		Status: "success",
		Data:   make([]httptransport.AuditEntryDTO, 0, len(entries)),
	}
	for _, entry := range entries {
		resp.Data = append(resp.Data, toDTO(entry))
	}
	return resp, nil
}

func toDTO(entry ports.Entry) httptransport.AuditEntryDTO {
	return httptransport.AuditEntryDTO{
		ID:            entry.EntryID,
		Timestamp:     entry.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorID:       entry.ActorID,
		ActorType:     entry.ActorType,
		Action:        entry.Action,
		TargetID:      entry.TargetID,
		TargetType:    entry.TargetType,
		CorrelationID: entry.CorrelationID,
		Metadata:      entry.Metadata,
		ContentHash:   entry.ContentHash,
	}
}
