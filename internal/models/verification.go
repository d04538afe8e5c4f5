package models

import (
	"strings"
	"time"

	"safework-backend/internal/compliance"
)

// ── Catalog ──────────────────────────────────────────────────────

// VerificationType is a catalog entry describing one kind of certification a
// company may require (e.g. "Working at Heights", "First Aid Certificate").
type VerificationType struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"` // "certificate" | "license" | "training" | "insurance" | "medical"
	ValidityPeriodDays *int   `json:"validityPeriod,omitempty"` // nil = approval sets an explicit expiry
	IsActive           bool   `json:"isActive"`
	CreatedAt          string `json:"createdAt"`
	UpdatedAt          string `json:"updatedAt"`
}

// CreateVerificationTypeRequest adds a catalog entry.
type CreateVerificationTypeRequest struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	ValidityPeriodDays *int   `json:"validityPeriod,omitempty"`
}

var validVerificationKinds = map[string]bool{
	"certificate": true, "license": true, "training": true,
	"insurance": true, "medical": true,
}

// Validate checks required fields for a new verification type.
func (r *CreateVerificationTypeRequest) Validate() map[string]string {
	errors := map[string]string{}
	if len(r.Name) < 2 {
		errors["name"] = "Name is required (min 2 characters)"
	}
	if !validVerificationKinds[r.Type] {
		errors["type"] = "Type must be one of: certificate, license, training, insurance, medical"
	}
	if r.ValidityPeriodDays != nil && *r.ValidityPeriodDays <= 0 {
		errors["validityPeriod"] = "Validity period must be a positive number of days"
	}
	return errors
}

// ── Submissions ──────────────────────────────────────────────────

// Submission is a user's verification submitted against a company requirement
// (one row in user_verifications). A submission exists only once the user has
// actually submitted; "not submitted" is the absence of a row.
type Submission struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	CompanyID         string            `json:"companyId"`
	RequirementID     string            `json:"requirementId"`
	Status            compliance.Status `json:"status"`
	CertificateNumber *string           `json:"certificateNumber,omitempty"`
	ExpiryDate        *string           `json:"expiryDate,omitempty"` // "2006-01-02"
	RejectionReason   *string           `json:"rejectionReason,omitempty"`
	FileURL           *string           `json:"fileUrl,omitempty"`
	FileName          *string           `json:"fileName,omitempty"`
	SubmittedAt       time.Time         `json:"submittedAt"`
	ReviewedAt        *time.Time        `json:"reviewedAt,omitempty"`
	ReviewerID        *string           `json:"reviewerId,omitempty"`
}

// SubmitVerificationRequest enrolls a user's certificate against a company
// requirement, creating the submission in "pending" status.
type SubmitVerificationRequest struct {
	CertificateNumber *string `json:"certificateNumber,omitempty"`
	FileURL           string  `json:"fileUrl"`
	FileName          string  `json:"fileName"`
}

// Validate ensures the submission carries its certificate document.
func (r *SubmitVerificationRequest) Validate() map[string]string {
	errors := map[string]string{}
	if r.FileURL == "" {
		errors["fileUrl"] = "Certificate document is required"
	}
	return errors
}

// ── Per-Company Summary ──────────────────────────────────────────

// VerificationDetail is one line of a company summary: a requirement joined
// with the user's submission for it, if any. SubmissionID is nil until the
// user has submitted; reviews are impossible without it.
type VerificationDetail struct {
	ID                 string            `json:"id"` // requirement ID
	Name               string            `json:"name"`
	Type               string            `json:"type"`
	Status             compliance.Status `json:"status"`
	StatusLabel        string            `json:"statusLabel"`
	StatusColor        compliance.Color  `json:"statusColor"`
	CertificateNumber  *string           `json:"certificateNumber,omitempty"`
	ExpiryDate         *string           `json:"expiryDate,omitempty"`
	ValidityPeriodDays *int              `json:"validityPeriod,omitempty"`
	DaysRemaining      *int              `json:"daysRemaining,omitempty"` // negative = overdue
	Urgent             bool              `json:"urgent"`                  // expiry < 30 days away
	FileURL            *string           `json:"fileUrl,omitempty"`
	SubmissionID       *string           `json:"userVerificationId,omitempty"`
}

// VerificationCounts aggregates a company's requirements for one user.
// Completed never exceeds Required by construction: both count the same
// requirement rows.
type VerificationCounts struct {
	Required  int                  `json:"required"`
	Completed int                  `json:"completed"`
	Pending   int                  `json:"pending"`
	Details   []VerificationDetail `json:"details"`
}

// CompanyRef identifies a company in a summary together with the user's role
// in that company.
type CompanyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// CompanyVerificationSummary is the per-company compliance rollup for a user.
// Expanded marks the summary the client should open by default: the first one
// whose compliance status is not compliant.
type CompanyVerificationSummary struct {
	Company          CompanyRef                  `json:"company"`
	ComplianceStatus compliance.ComplianceStatus `json:"complianceStatus"`
	ComplianceLabel  string                      `json:"complianceLabel"`
	ComplianceColor  compliance.Color            `json:"complianceColor"`
	Verifications    VerificationCounts          `json:"verifications"`
	Expanded         bool                        `json:"expanded"`
}

// ── Review ───────────────────────────────────────────────────────

// ReviewRequest is the reviewer's decision on a submission:
// {decision, rejectionReason?, approvalExpiryDate?}.
type ReviewRequest struct {
	Decision           string  `json:"decision"` // "approve" | "reject"
	RejectionReason    *string `json:"rejectionReason,omitempty"`
	ApprovalExpiryDate *string `json:"approvalExpiryDate,omitempty"` // "2006-01-02"
}

// Validate enforces the submit preconditions that don't need database state:
// a known decision, a non-blank reason for rejections, and a parseable expiry
// date when one is supplied.
func (r *ReviewRequest) Validate() map[string]string {
	errors := map[string]string{}

	switch r.Decision {
	case "approve", "reject":
	default:
		errors["decision"] = "Decision must be 'approve' or 'reject'"
	}

	if r.Decision == "reject" {
		if r.RejectionReason == nil || strings.TrimSpace(*r.RejectionReason) == "" {
			errors["rejectionReason"] = "A rejection reason is required"
		}
	}

	if r.ApprovalExpiryDate != nil {
		if _, err := time.Parse("2006-01-02", *r.ApprovalExpiryDate); err != nil {
			errors["approvalExpiryDate"] = "Expiry date must be in YYYY-MM-DD format"
		}
	}

	return errors
}
