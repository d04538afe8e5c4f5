package review

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safework-backend/internal/compliance"
	"safework-backend/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func detail(status compliance.Status, submissionID *string) models.VerificationDetail {
	return models.VerificationDetail{
		ID:           "req-1",
		Name:         "Working at Heights",
		Type:         "certificate",
		Status:       status,
		SubmissionID: submissionID,
	}
}

func TestBeginNotSubmitted(t *testing.T) {
	ctx, err := Begin(detail(compliance.StatusNotSubmitted, nil), "Acme", DecisionApprove, time.Now())

	assert.Nil(t, ctx)
	assert.ErrorIs(t, err, ErrNotSubmitted)
}

func TestBeginMissingSubmissionID(t *testing.T) {
	// Status claims reviewable but no submission identifier exists. The
	// workflow must surface the integrity gap, not open a context anyway.
	ctx, err := Begin(detail(compliance.StatusPending, nil), "Acme", DecisionReject, time.Now())

	assert.Nil(t, ctx)
	assert.ErrorIs(t, err, ErrMissingSubmissionID)

	ctx, err = Begin(detail(compliance.StatusInReview, strPtr("")), "Acme", DecisionReject, time.Now())
	assert.Nil(t, ctx)
	assert.ErrorIs(t, err, ErrMissingSubmissionID)
}

func TestBeginNotActionable(t *testing.T) {
	for _, status := range []compliance.Status{
		compliance.StatusApproved,
		compliance.StatusRejected,
		compliance.StatusExpired,
	} {
		ctx, err := Begin(detail(status, strPtr("sub-1")), "Acme", DecisionApprove, time.Now())

		assert.Nil(t, ctx)
		var naErr *NotActionableError
		require.True(t, errors.As(err, &naErr), "status %s", status)
		assert.Equal(t, status, naErr.Status)
	}
}

func TestBeginActionableOpensContext(t *testing.T) {
	for _, status := range []compliance.Status{compliance.StatusPending, compliance.StatusInReview} {
		ctx, err := Begin(detail(status, strPtr("sub-42")), "Acme", DecisionReject, time.Now())

		require.NoError(t, err)
		require.NotNil(t, ctx)
		assert.Equal(t, "sub-42", ctx.SubmissionID)
		assert.Equal(t, "Acme", ctx.CompanyName)
		assert.Equal(t, DecisionReject, ctx.Decision)
	}
}

func TestDefaultExpiryFromValidityPeriod(t *testing.T) {
	v := detail(compliance.StatusPending, strPtr("sub-1"))
	v.ValidityPeriodDays = intPtr(365)
	now := time.Date(2025, 3, 10, 16, 45, 0, 0, time.UTC)

	ctx, err := Begin(v, "Acme", DecisionApprove, now)

	require.NoError(t, err)
	require.NotNil(t, ctx.ExpiryDate)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), *ctx.ExpiryDate)
}

func TestDefaultExpiryFromExistingDate(t *testing.T) {
	v := detail(compliance.StatusPending, strPtr("sub-1"))
	v.ExpiryDate = strPtr("2025-06-01")

	ctx, err := Begin(v, "Acme", DecisionApprove, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	require.NotNil(t, ctx.ExpiryDate)
	assert.Equal(t, "2025-06-01", ctx.ExpiryDate.Format("2006-01-02"))
}

func TestDefaultExpiryValidityPeriodWins(t *testing.T) {
	v := detail(compliance.StatusPending, strPtr("sub-1"))
	v.ValidityPeriodDays = intPtr(30)
	v.ExpiryDate = strPtr("2025-06-01")
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	got := DefaultExpiry(v, now)

	require.NotNil(t, got)
	assert.Equal(t, "2025-03-31", got.Format("2006-01-02"))
}

func TestDefaultExpiryNoneAvailable(t *testing.T) {
	v := detail(compliance.StatusPending, strPtr("sub-1"))

	assert.Nil(t, DefaultExpiry(v, time.Now()))

	// Unparseable stored dates are ignored rather than propagated.
	v.ExpiryDate = strPtr("June 2025")
	assert.Nil(t, DefaultExpiry(v, time.Now()))
}

func TestCanSubmitReject(t *testing.T) {
	ctx, err := Begin(detail(compliance.StatusPending, strPtr("sub-1")), "Acme", DecisionReject, time.Now())
	require.NoError(t, err)

	assert.False(t, ctx.CanSubmit(), "reject without reason")

	ctx.SetRejectionReason("   ")
	assert.False(t, ctx.CanSubmit(), "blank reason does not count")

	ctx.SetRejectionReason("Certificate is illegible")
	assert.True(t, ctx.CanSubmit())
	assert.Equal(t, compliance.StatusRejected, ctx.Outcome())
}

func TestCanSubmitApprove(t *testing.T) {
	ctx, err := Begin(detail(compliance.StatusInReview, strPtr("sub-1")), "Acme", DecisionApprove, time.Now())
	require.NoError(t, err)

	assert.False(t, ctx.CanSubmit(), "approve without expiry date")

	ctx.SetExpiryDate(time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC))
	assert.True(t, ctx.CanSubmit())
	assert.Equal(t, compliance.StatusApproved, ctx.Outcome())
	assert.Equal(t, "2026-01-01", ctx.ExpiryDate.Format("2006-01-02"))
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to compliance.Status }{
		{compliance.StatusNotSubmitted, compliance.StatusPending},
		{compliance.StatusNotSubmitted, compliance.StatusInReview},
		{compliance.StatusPending, compliance.StatusInReview},
		{compliance.StatusPending, compliance.StatusApproved},
		{compliance.StatusPending, compliance.StatusRejected},
		{compliance.StatusInReview, compliance.StatusApproved},
		{compliance.StatusInReview, compliance.StatusRejected},
		{compliance.StatusApproved, compliance.StatusExpired},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}

	denied := []struct{ from, to compliance.Status }{
		{compliance.StatusApproved, compliance.StatusPending},
		{compliance.StatusRejected, compliance.StatusPending},
		{compliance.StatusRejected, compliance.StatusApproved},
		{compliance.StatusExpired, compliance.StatusApproved},
		{compliance.StatusInReview, compliance.StatusPending},
		{compliance.StatusNotSubmitted, compliance.StatusApproved},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr.from, tr.to), "%s -> %s", tr.from, tr.to)
	}
}

func TestNextStatuses(t *testing.T) {
	assert.Empty(t, NextStatuses(compliance.StatusRejected))
	assert.Empty(t, NextStatuses(compliance.StatusExpired))
	assert.ElementsMatch(t,
		[]compliance.Status{compliance.StatusApproved, compliance.StatusRejected},
		NextStatuses(compliance.StatusInReview))
}
