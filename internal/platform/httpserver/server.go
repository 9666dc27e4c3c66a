package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	ledgerservice "heirloom/contexts/audit-trail/ledger-service"
	ledgererrors "heirloom/contexts/audit-trail/ledger-service/domain/errors"
	ledgerhttp "heirloom/contexts/audit-trail/ledger-service/transport/http"
	verificationservice "heirloom/contexts/legacy-verification/verification-service"
	verificationerrors "heirloom/contexts/legacy-verification/verification-service/domain/errors"
	verificationhttp "heirloom/contexts/legacy-verification/verification-service/transport/http"
	"heirloom/internal/shared/trust"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "heirloom/internal/platform/httpserver/docs"
)

type Server struct {
	root         *http.ServeMux
	logger       *slog.Logger
	addr         string
	ledger       ledgerservice.Module
	verification verificationservice.Module
}

func New(
	ledger ledgerservice.Module,
	verification verificationservice.Module,
	internalSecret string,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		root:         http.NewServeMux(),
		logger:       logger,
		addr:         addr,
		ledger:       ledger,
		verification: verification,
	}
	s.registerRoutes(internalSecret)
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.root)
}

func (s *Server) Handler() http.Handler {
	return s.root
}

// registerRoutes places /health and /swagger/ outside the trust gate and
// everything else behind it. Every API route requires a valid internal
// signature; there is no unauthenticated data path.
func (s *Server) registerRoutes(internalSecret string) {
	s.root.HandleFunc("GET /health", s.handleHealth)
	s.root.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	api := http.NewServeMux()
	api.HandleFunc("POST /audit", s.handleAppendAudit)
	api.HandleFunc("GET /audit", s.handleQueryAudit)

	api.HandleFunc("POST /cases", s.handleOpenCase)
	api.HandleFunc("PATCH /cases/{case_id}/status", s.handleDecideCase)
	api.HandleFunc("GET /cases/{case_id}", s.handleGetCase)
	api.HandleFunc("GET /cases", s.handleListCases)

	gate := trust.Middleware(trust.Config{
		Secret: internalSecret,
		Logger: s.logger,
	})
	s.root.Handle("/", gate(api))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAppendAudit(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.AppendAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ledger.Handler.AppendHandler(r.Context(), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleQueryAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := ledgerhttp.ListAuditRequest{
		ActorID:       query.Get("actorId"),
		TargetID:      query.Get("targetId"),
		Action:        query.Get("action"),
		CorrelationID: query.Get("correlationId"),
		StartDate:     query.Get("startDate"),
		EndDate:       query.Get("endDate"),
	}

	if limitRaw := query.Get("limit"); limitRaw != "" {
		limit, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeLedgerError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		req.Limit = limit
	}
	if offsetRaw := query.Get("offset"); offsetRaw != "" {
		offset, err := strconv.Atoi(offsetRaw)
		if err != nil {
			writeLedgerError(w, http.StatusBadRequest, "invalid_offset", "offset must be an integer")
			return
		}
		req.Offset = offset
	}

	resp, err := s.ledger.Handler.QueryHandler(r.Context(), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOpenCase(w http.ResponseWriter, r *http.Request) {
	var req verificationhttp.OpenCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVerificationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.verification.Handler.OpenCaseHandler(r.Context(), req)
	if err != nil {
		writeVerificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDecideCase(w http.ResponseWriter, r *http.Request) {
	var req verificationhttp.DecideCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVerificationError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	caseID := r.PathValue("case_id")
	resp, err := s.verification.Handler.DecideCaseHandler(r.Context(), caseID, req)
	if err != nil {
		writeVerificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	caseID := r.PathValue("case_id")
	resp, err := s.verification.Handler.GetCaseHandler(r.Context(), caseID)
	if err != nil {
		writeVerificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	resp, err := s.verification.Handler.ListCasesHandler(r.Context())
	if err != nil {
		writeVerificationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrInvalidEntry):
		writeLedgerError(w, http.StatusBadRequest, "invalid_entry", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidFilter):
		writeLedgerError(w, http.StatusBadRequest, "invalid_filter", err.Error())
	case errors.Is(err, ledgererrors.ErrLedgerWrite):
		writeLedgerError(w, http.StatusInternalServerError, "ledger_write_failed", err.Error())
	default:
		writeLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVerificationDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, verificationerrors.ErrInvalidInput),
		errors.Is(err, verificationerrors.ErrInvalidStatus):
		writeVerificationError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, verificationerrors.ErrCaseNotFound):
		writeVerificationError(w, http.StatusNotFound, "case_not_found", err.Error())
	case errors.Is(err, verificationerrors.ErrDuplicateCase):
		writeVerificationError(w, http.StatusConflict, "duplicate_case", err.Error())
	case errors.Is(err, verificationerrors.ErrCaseAlreadyDecided):
		writeVerificationError(w, http.StatusConflict, "case_already_decided", err.Error())
	default:
		writeVerificationError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeVerificationError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, verificationhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
