package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusColor(t *testing.T) {
	assert.Equal(t, ColorSuccess, StatusColor(StatusApproved))
	assert.Equal(t, ColorError, StatusColor(StatusRejected))
	assert.Equal(t, ColorError, StatusColor(StatusExpired))
	assert.Equal(t, ColorWarning, StatusColor(StatusPending))
	assert.Equal(t, ColorWarning, StatusColor(StatusInReview))
	assert.Equal(t, ColorDefault, StatusColor(StatusNotSubmitted))
	assert.Equal(t, ColorDefault, StatusColor(Status("garbage")))
}

func TestStatusLabel(t *testing.T) {
	cases := map[Status]string{
		StatusApproved:     "Approved",
		StatusRejected:     "Rejected",
		StatusPending:      "Pending",
		StatusInReview:     "In Review",
		StatusExpired:      "Expired",
		StatusNotSubmitted: "Not Submitted",
		Status(""):         "Unknown",
	}
	for status, want := range cases {
		assert.Equal(t, want, StatusLabel(status))
	}
}

func TestComplianceMapping(t *testing.T) {
	assert.Equal(t, ColorSuccess, ComplianceColor(Compliant))
	assert.Equal(t, ColorWarning, ComplianceColor(Partial))
	assert.Equal(t, ColorError, ComplianceColor(NonCompliant))
	assert.Equal(t, ColorDefault, ComplianceColor(ComplianceStatus("")))

	assert.Equal(t, "Compliant", ComplianceLabel(Compliant))
	assert.Equal(t, "Partially Compliant", ComplianceLabel(Partial))
	assert.Equal(t, "Non-Compliant", ComplianceLabel(NonCompliant))
	assert.Equal(t, "Unknown", ComplianceLabel(ComplianceStatus("other")))
}

func TestIsActionable(t *testing.T) {
	assert.True(t, IsActionable(StatusPending))
	assert.True(t, IsActionable(StatusInReview))
	assert.False(t, IsActionable(StatusApproved))
	assert.False(t, IsActionable(StatusRejected))
	assert.False(t, IsActionable(StatusExpired))
	assert.False(t, IsActionable(StatusNotSubmitted))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusRejected))
	assert.True(t, IsTerminal(StatusExpired))
	assert.False(t, IsTerminal(StatusApproved))
	assert.False(t, IsTerminal(StatusPending))
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name                string
		required, completed int
		want                ComplianceStatus
	}{
		{"no requirements is trivially compliant", 0, 0, Compliant},
		{"all completed", 3, 3, Compliant},
		{"none completed", 3, 0, NonCompliant},
		{"some completed", 3, 1, Partial},
		{"almost all completed", 5, 4, Partial},
		{"completed exceeds required", 2, 3, Compliant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.required, tt.completed))
		})
	}
}

func TestDaysUntilExpiry(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, 5, DaysUntilExpiry(now.AddDate(0, 0, 5), now))
	assert.Equal(t, 0, DaysUntilExpiry(now, now))
	assert.Equal(t, -3, DaysUntilExpiry(now.AddDate(0, 0, -3), now))

	// Time-of-day must not shift whole-day counts.
	expiry := time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)
	late := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 5, DaysUntilExpiry(expiry, late))
}

func TestDaysUntilExpiryDecreasesOverTime(t *testing.T) {
	expiry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	prev := DaysUntilExpiry(expiry, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC))
	for d := 2; d <= 40; d++ {
		now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC).AddDate(0, 0, d-1)
		curr := DaysUntilExpiry(expiry, now)
		assert.Less(t, curr, prev)
		prev = curr
	}
	// Past the expiry date the count is negative.
	assert.Negative(t, DaysUntilExpiry(expiry, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)))
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, DaysRemaining(nil, now))

	expiry := now.AddDate(0, 0, 12)
	got := DaysRemaining(&expiry, now)
	if assert.NotNil(t, got) {
		assert.Equal(t, 12, *got)
	}
}

func TestIsUrgent(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.False(t, IsUrgent(now.AddDate(0, 0, 30), now), "exactly 30 days out is not urgent")
	assert.True(t, IsUrgent(now.AddDate(0, 0, 29), now))
	assert.True(t, IsUrgent(now, now))
	assert.True(t, IsUrgent(now.AddDate(0, 0, -1), now), "already past is urgent")
	assert.False(t, IsUrgent(now.AddDate(0, 0, 120), now))
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.False(t, IsExpired(now, now), "expiring today is not yet expired")
	assert.True(t, IsExpired(now.AddDate(0, 0, -1), now))
	assert.False(t, IsExpired(now.AddDate(0, 0, 1), now))
}
