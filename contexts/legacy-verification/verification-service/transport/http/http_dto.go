package httptransport

type VerificationCaseDTO struct {
	ID            string         `json:"id"`
	SubjectUserID string         `json:"subjectUserId"`
	Status        string         `json:"status"`
	Evidence      map[string]any `json:"evidence,omitempty"`
	ReviewerID    string         `json:"reviewerId,omitempty"`
	ReviewerNotes map[string]any `json:"reviewerNotes,omitempty"`
	CreatedAt     string         `json:"createdAt"`
	UpdatedAt     string         `json:"updatedAt"`
	VerifiedAt    string         `json:"verifiedAt,omitempty"`
	RejectedAt    string         `json:"rejectedAt,omitempty"`
}

type OpenCaseRequest struct {
	SubjectUserID string         `json:"subjectUserId"`
	Evidence      map[string]any `json:"evidence,omitempty"`
}

type DecideCaseRequest struct {
	Status        string         `json:"status"`
	ReviewerID    string         `json:"reviewerId"`
	ReviewerNotes map[string]any `json:"reviewerNotes,omitempty"`
}

type CaseResponse struct {
	Status string              `json:"status"`
	Data   VerificationCaseDTO `json:"data"`
}

type CaseListResponse struct {
	Status string                `json:"status"`
	Data   []VerificationCaseDTO `json:"data"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
