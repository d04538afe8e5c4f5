// Package review implements the verification review workflow: preconditions
// for opening a review, input validation for submitting a decision, and the
// allowed status transitions. Like internal/compliance it is pure: callers
// inject the clock and persist the outcome themselves.
package review

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"safework-backend/internal/compliance"
	"safework-backend/internal/models"
)

// Decision is the reviewer's verdict on a verification.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

var (
	// ErrNotSubmitted means the user never submitted this verification, so
	// there is nothing to review.
	ErrNotSubmitted = errors.New("verification has not been submitted and cannot be reviewed")

	// ErrMissingSubmissionID means the verification claims a reviewable status
	// but carries no submission identifier. This is a data-integrity gap: the
	// workflow must abort rather than guess an identifier.
	ErrMissingSubmissionID = errors.New("verification is missing its submission identifier")
)

// NotActionableError is returned when the verification's status admits no
// review decision (already approved, rejected, or expired).
type NotActionableError struct {
	Status compliance.Status
}

func (e *NotActionableError) Error() string {
	return fmt.Sprintf("verification with status %q cannot be reviewed", e.Status)
}

// ── Review Context ───────────────────────────────────────────────

// Context holds the state of one in-progress review. It exists only between
// Begin and submit/cancel and is never persisted.
type Context struct {
	Verification models.VerificationDetail
	CompanyName  string
	SubmissionID string
	Decision     Decision

	// Reviewer inputs, reset on Begin.
	RejectionReason string
	ExpiryDate      *time.Time
}

// Begin validates that a verification can be reviewed and opens a review
// context for it.
//
// Preconditions: the verification must carry a submission identifier and be
// in an actionable status (pending or in_review). For approvals the expiry
// date is pre-filled: validity period wins, then any existing expiry date,
// otherwise it stays unset and the reviewer must supply one.
func Begin(v models.VerificationDetail, companyName string, decision Decision, now time.Time) (*Context, error) {
	if v.SubmissionID == nil || *v.SubmissionID == "" {
		if v.Status == compliance.StatusNotSubmitted {
			return nil, ErrNotSubmitted
		}
		return nil, ErrMissingSubmissionID
	}

	if !compliance.IsActionable(v.Status) {
		return nil, &NotActionableError{Status: v.Status}
	}

	ctx := &Context{
		Verification: v,
		CompanyName:  companyName,
		SubmissionID: *v.SubmissionID,
		Decision:     decision,
	}

	if decision == DecisionApprove {
		ctx.ExpiryDate = DefaultExpiry(v, now)
	}

	return ctx, nil
}

// DefaultExpiry proposes the approval expiry date for a verification.
// A validity period (in days) counts forward from now; failing that, an
// already-recorded expiry date is kept; otherwise nil.
func DefaultExpiry(v models.VerificationDetail, now time.Time) *time.Time {
	if v.ValidityPeriodDays != nil && *v.ValidityPeriodDays > 0 {
		d := truncateToDay(now).AddDate(0, 0, *v.ValidityPeriodDays)
		return &d
	}
	if v.ExpiryDate != nil && *v.ExpiryDate != "" {
		if t, err := time.Parse("2006-01-02", *v.ExpiryDate); err == nil {
			return &t
		}
	}
	return nil
}

// SetRejectionReason records the reviewer's reason for rejecting.
func (c *Context) SetRejectionReason(reason string) {
	c.RejectionReason = reason
}

// SetExpiryDate records the approval expiry date chosen by the reviewer.
func (c *Context) SetExpiryDate(t time.Time) {
	d := truncateToDay(t)
	c.ExpiryDate = &d
}

// CanSubmit reports whether the review is complete enough to submit:
// a rejection needs a non-blank reason, an approval needs an expiry date.
func (c *Context) CanSubmit() bool {
	switch c.Decision {
	case DecisionReject:
		return strings.TrimSpace(c.RejectionReason) != ""
	case DecisionApprove:
		return c.ExpiryDate != nil
	default:
		return false
	}
}

// Outcome returns the status the verification moves to when this review is
// submitted.
func (c *Context) Outcome() compliance.Status {
	if c.Decision == DecisionApprove {
		return compliance.StatusApproved
	}
	return compliance.StatusRejected
}

// ── Status Transitions ───────────────────────────────────────────
// The full lifecycle, including the transitions driven by submission (user)
// and the clock (expiry sweep) rather than by a reviewer.

var allowedTransitions = map[compliance.Status][]compliance.Status{
	compliance.StatusNotSubmitted: {compliance.StatusPending, compliance.StatusInReview},
	compliance.StatusPending:      {compliance.StatusInReview, compliance.StatusApproved, compliance.StatusRejected},
	compliance.StatusInReview:     {compliance.StatusApproved, compliance.StatusRejected},
	compliance.StatusApproved:     {compliance.StatusExpired},
	compliance.StatusRejected:     {},
	compliance.StatusExpired:      {},
}

// CanTransition reports whether a status change is allowed by the lifecycle.
func CanTransition(from, to compliance.Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from the given one.
func NextStatuses(from compliance.Status) []compliance.Status {
	return allowedTransitions[from]
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
