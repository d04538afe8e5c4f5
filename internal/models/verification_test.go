package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReviewRequestValidate(t *testing.T) {
	reason := "Certificate expired before submission"
	blank := "   "
	goodDate := "2026-01-15"
	badDate := "15/01/2026"

	tests := []struct {
		name      string
		req       ReviewRequest
		wantField string
	}{
		{"approve", ReviewRequest{Decision: "approve"}, ""},
		{"approve with expiry", ReviewRequest{Decision: "approve", ApprovalExpiryDate: &goodDate}, ""},
		{"reject with reason", ReviewRequest{Decision: "reject", RejectionReason: &reason}, ""},
		{"unknown decision", ReviewRequest{Decision: "defer"}, "decision"},
		{"empty decision", ReviewRequest{}, "decision"},
		{"reject without reason", ReviewRequest{Decision: "reject"}, "rejectionReason"},
		{"reject with blank reason", ReviewRequest{Decision: "reject", RejectionReason: &blank}, "rejectionReason"},
		{"malformed expiry date", ReviewRequest{Decision: "approve", ApprovalExpiryDate: &badDate}, "approvalExpiryDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.req.Validate()
			if tt.wantField == "" {
				assert.Empty(t, errs)
			} else {
				assert.Contains(t, errs, tt.wantField)
			}
		})
	}
}

func TestSubmitVerificationRequestValidate(t *testing.T) {
	assert.Contains(t, (&SubmitVerificationRequest{}).Validate(), "fileUrl")
	assert.Empty(t, (&SubmitVerificationRequest{FileURL: "/api/files/certificates/a.pdf", FileName: "a.pdf"}).Validate())
}

func TestCreateVerificationTypeRequestValidate(t *testing.T) {
	days := 365
	zero := 0

	assert.Empty(t, (&CreateVerificationTypeRequest{Name: "Working at Heights", Type: "certificate", ValidityPeriodDays: &days}).Validate())
	assert.Contains(t, (&CreateVerificationTypeRequest{Name: "X", Type: "certificate"}).Validate(), "name")
	assert.Contains(t, (&CreateVerificationTypeRequest{Name: "Forklift", Type: "permit"}).Validate(), "type")
	assert.Contains(t, (&CreateVerificationTypeRequest{Name: "Forklift", Type: "license", ValidityPeriodDays: &zero}).Validate(), "validityPeriod")
}
