package models

import "safework-backend/internal/compliance"

// ── Dashboard Metrics ────────────────────────────────────────────

// DashboardMetrics holds the main dashboard statistics.
type DashboardMetrics struct {
	TotalUsers       int `json:"totalUsers"`
	TotalSubmissions int `json:"totalSubmissions"`
	PendingReview    int `json:"pendingReview"`
	ExpiringSoon     int `json:"expiringSoon"`
	Expired          int `json:"expired"`
}

// ── Company ──────────────────────────────────────────────────────

// Company represents a company record.
type Company struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Industry  *string `json:"industry,omitempty"`
	IsActive  bool    `json:"isActive"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// CompanySummary includes the member count per company.
type CompanySummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
}

// ── Expiry Alerts ────────────────────────────────────────────────

// ExpiryAlert represents an approved verification nearing or past expiry.
type ExpiryAlert struct {
	SubmissionID string `json:"userVerificationId"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	CompanyName  string `json:"companyName"`
	Verification string `json:"verification"`
	ExpiryDate   string `json:"expiryDate"`
	DaysLeft     int    `json:"daysLeft"` // negative = already expired
	Urgent       bool   `json:"urgent"`
}

// ── Compliance Stats ─────────────────────────────────────────────

// ComplianceStats provides a full compliance overview for the dashboard.
type ComplianceStats struct {
	TotalUsers          int                 `json:"totalUsers"`
	TotalSubmissions    int                 `json:"totalSubmissions"`
	SubmissionsByStatus map[string]int      `json:"submissionsByStatus"` // status → count
	ApprovalRate        float64             `json:"approvalRate"`        // approved / total, percent
	CompanyBreakdown    []CompanyCompliance `json:"companyBreakdown"`
	CriticalAlerts      []ExpiryAlert       `json:"criticalAlerts"`
}

// CompanyCompliance is the per-company rollup: how many members each company
// has and how many of them meet every requirement.
type CompanyCompliance struct {
	CompanyID        string                      `json:"companyId"`
	CompanyName      string                      `json:"companyName"`
	MemberCount      int                         `json:"memberCount"`
	CompliantCount   int                         `json:"compliantCount"`
	PartialCount     int                         `json:"partialCount"`
	NonCompliant     int                         `json:"nonCompliantCount"`
	OverallStatus    compliance.ComplianceStatus `json:"overallStatus"`
	RequirementCount int                         `json:"requirementCount"`
}

// ── Notifications & Activity ─────────────────────────────────────

// Notification is an expiry or review alert delivered to a user.
type Notification struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Kind      string  `json:"kind"` // "expiring" | "expired" | "reviewed"
	Message   string  `json:"message"`
	RefID     *string `json:"refId,omitempty"` // submission the alert refers to
	IsRead    bool    `json:"isRead"`
	CreatedAt string  `json:"createdAt"`
}

// ActivityEntry is one row of the audit trail.
type ActivityEntry struct {
	ID         string  `json:"id"`
	UserID     *string `json:"userId,omitempty"`
	Action     string  `json:"action"`
	EntityType string  `json:"entityType"`
	EntityID   *string `json:"entityId,omitempty"`
	Details    *string `json:"details,omitempty"`
	CreatedAt  string  `json:"createdAt"`
}
