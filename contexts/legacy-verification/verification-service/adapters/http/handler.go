package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"heirloom/contexts/legacy-verification/verification-service/application"
	"heirloom/contexts/legacy-verification/verification-service/ports"
	httptransport "heirloom/contexts/legacy-verification/verification-service/transport/http"
	"heirloom/internal/shared/trust"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

// OpenCaseHandler files a case for the subject. When the request body names
// no subject, the verified caller identity from the trust gate is used.
func (h Handler) OpenCaseHandler(ctx context.Context, req httptransport.OpenCaseRequest) (httptransport.CaseResponse, error) {
	subjectUserID := req.SubjectUserID
	if subjectUserID == "" {
		if caller, ok := trust.CallerFromContext(ctx); ok {
			subjectUserID = caller.ID
		}
	}
	verification, err := h.Service.OpenCase(ctx, subjectUserID, req.Evidence, trust.CorrelationIDFromContext(ctx))
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return httptransport.CaseResponse{Status: "success", Data: toDTO(verification)}, nil
}

func (h Handler) DecideCaseHandler(ctx context.Context, caseID string, req httptransport.DecideCaseRequest) (httptransport.CaseResponse, error) {
	reviewerID := req.ReviewerID
	if reviewerID == "" {
		if caller, ok := trust.CallerFromContext(ctx); ok {
			reviewerID = caller.ID
		}
	}
	verification, err := h.Service.DecideCase(ctx, caseID, req.Status, reviewerID, req.ReviewerNotes, trust.CorrelationIDFromContext(ctx))
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return httptransport.CaseResponse{Status: "success", Data: toDTO(verification)}, nil
}

func (h Handler) GetCaseHandler(ctx context.Context, caseID string) (httptransport.CaseResponse, error) {
	verification, err := h.Service.GetCase(ctx, caseID)
	if err != nil {
		return httptransport.CaseResponse{}, err
	}
	return httptransport.CaseResponse{Status: "success", Data: toDTO(verification)}, nil
}

func (h Handler) ListCasesHandler(ctx context.Context) (httptransport.CaseListResponse, error) {
	cases, err := h.Service.ListCases(ctx)
	if err != nil {
		return httptransport.CaseListResponse{}, err
	}
	resp := httptransport.CaseListResponse{
		Status: "success",
		Data:   make([]httptransport.VerificationCaseDTO, 0, len(cases)),
	}
	for _, verification := range cases {
		resp.Data = append(resp.Data, toDTO(verification))
	}
	return resp, nil
}

func toDTO(verification ports.VerificationCase) httptransport.VerificationCaseDTO {
	dto := httptransport.VerificationCaseDTO{
		ID:            verification.CaseID,
		SubjectUserID: verification.SubjectUserID,
		Status:        verification.Status,
		Evidence:      verification.Evidence,
		ReviewerID:    verification.ReviewerID,
		ReviewerNotes: verification.ReviewerNotes,
		CreatedAt:     verification.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:     verification.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if verification.VerifiedAt != nil {
		dto.VerifiedAt = verification.VerifiedAt.UTC().Format(time.RFC3339Nano)
	}
	if verification.RejectedAt != nil {
		dto.RejectedAt = verification.RejectedAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}
