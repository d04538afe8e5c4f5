// Package compliance provides pure functions for verification status and
// company compliance calculations. These functions have ZERO dependencies on
// HTTP, database, or any other infrastructure, which keeps them trivially
// testable and reusable.
package compliance

import "time"

// ── Verification Status ──────────────────────────────────────────
// Status reflects where a single verification sits in its review lifecycle.
// not_submitted is never stored: it is the absence of a submission row,
// synthesized when building per-company summaries.

// Status is the review lifecycle state of a verification.
type Status string

const (
	StatusNotSubmitted Status = "not_submitted"
	StatusPending      Status = "pending"
	StatusInReview     Status = "in_review"
	StatusApproved     Status = "approved"
	StatusRejected     Status = "rejected"
	StatusExpired      Status = "expired"
)

// ComplianceStatus is the per-company rollup across all required verifications.
type ComplianceStatus string

const (
	Compliant    ComplianceStatus = "compliant"
	Partial      ComplianceStatus = "partial"
	NonCompliant ComplianceStatus = "non_compliant"
)

// Color is the presentation severity bucket for a status.
type Color string

const (
	ColorSuccess Color = "success"
	ColorError   Color = "error"
	ColorWarning Color = "warning"
	ColorDefault Color = "default"
)

// UrgentExpiryDays is the window within which an upcoming expiry is flagged urgent.
const UrgentExpiryDays = 30

// ── Status Mapping ───────────────────────────────────────────────
// Exhaustive switches over the closed enums. If a variant is added the
// compiler won't catch a missing case, so keep the zero-value fallthrough
// as "default" rather than guessing.

// StatusColor maps a verification status to its severity color.
func StatusColor(s Status) Color {
	switch s {
	case StatusApproved:
		return ColorSuccess
	case StatusRejected, StatusExpired:
		return ColorError
	case StatusPending, StatusInReview:
		return ColorWarning
	case StatusNotSubmitted:
		return ColorDefault
	default:
		return ColorDefault
	}
}

// StatusLabel maps a verification status to its display label.
func StatusLabel(s Status) string {
	switch s {
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	case StatusPending:
		return "Pending"
	case StatusInReview:
		return "In Review"
	case StatusExpired:
		return "Expired"
	case StatusNotSubmitted:
		return "Not Submitted"
	default:
		return "Unknown"
	}
}

// ComplianceColor maps a compliance rollup to its severity color.
func ComplianceColor(c ComplianceStatus) Color {
	switch c {
	case Compliant:
		return ColorSuccess
	case Partial:
		return ColorWarning
	case NonCompliant:
		return ColorError
	default:
		return ColorDefault
	}
}

// ComplianceLabel maps a compliance rollup to its display label.
func ComplianceLabel(c ComplianceStatus) string {
	switch c {
	case Compliant:
		return "Compliant"
	case Partial:
		return "Partially Compliant"
	case NonCompliant:
		return "Non-Compliant"
	default:
		return "Unknown"
	}
}

// IsActionable reports whether a verification in this status can be reviewed.
func IsActionable(s Status) bool {
	return s == StatusPending || s == StatusInReview
}

// IsTerminal reports whether no further review transitions exist for this status.
// There is no resubmission flow: rejected and expired are dead ends.
func IsTerminal(s Status) bool {
	return s == StatusRejected || s == StatusExpired
}

// ── Compliance Rollup ────────────────────────────────────────────

// Summarize derives a company's compliance status from its counts of required
// and completed (approved, unexpired) verifications.
//
// A company with no requirements is trivially compliant. Otherwise:
// all completed → compliant, none completed → non_compliant, else partial.
func Summarize(required, completed int) ComplianceStatus {
	switch {
	case required <= 0:
		return Compliant
	case completed >= required:
		return Compliant
	case completed == 0:
		return NonCompliant
	default:
		return Partial
	}
}

// ── Expiry Computations ──────────────────────────────────────────

// DaysUntilExpiry returns the number of whole days between now and the expiry
// date. Positive = days left, zero = expires today, negative = days overdue.
// Both dates are truncated to local midnight so partial days never round the
// answer up or down unexpectedly.
func DaysUntilExpiry(expiry, now time.Time) int {
	return int(truncateToDay(expiry).Sub(truncateToDay(now)).Hours() / 24)
}

// DaysRemaining is the pointer-friendly variant used when the expiry date is
// optional. Returns nil when no expiry is set.
func DaysRemaining(expiry *time.Time, now time.Time) *int {
	if expiry == nil {
		return nil
	}
	days := DaysUntilExpiry(*expiry, now)
	return &days
}

// IsUrgent reports whether an expiry date is within the urgent window
// (less than 30 days away, including already past).
func IsUrgent(expiry time.Time, now time.Time) bool {
	return DaysUntilExpiry(expiry, now) < UrgentExpiryDays
}

// IsExpired reports whether the expiry date has passed.
func IsExpired(expiry time.Time, now time.Time) bool {
	return DaysUntilExpiry(expiry, now) < 0
}

// ── Internal Helpers ─────────────────────────────────────────────

// truncateToDay strips the time component, keeping only the date.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
