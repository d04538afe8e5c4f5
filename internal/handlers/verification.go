package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"safework-backend/internal/compliance"
	"safework-backend/internal/ctxkeys"
	"safework-backend/internal/database"
	"safework-backend/internal/models"
	"safework-backend/internal/review"
	"safework-backend/internal/storage"
)

// VerificationHandler serves per-company verification summaries, submission,
// review decisions, and certificate downloads.
type VerificationHandler struct {
	db    database.Service
	store storage.Store
}

// NewVerificationHandler creates a VerificationHandler.
func NewVerificationHandler(db database.Service, store storage.Store) *VerificationHandler {
	return &VerificationHandler{db: db, store: store}
}

// ── Column lists & scan helpers ──────────────────────────────────

// detailCols joins a company requirement with the user's submission for it.
// The LEFT JOIN means submission columns are NULL until the user submits;
// that absence is what "not_submitted" means.
const detailCols = `cr.id, vt.name, vt.type, vt.validity_period_days,
	uv.id::text, COALESCE(uv.status, 'not_submitted'),
	uv.certificate_number, uv.expiry_date::text, uv.file_url`

// enrichDetail fills the display fields from the raw status and expiry.
func enrichDetail(d *models.VerificationDetail, now time.Time) {
	d.StatusLabel = compliance.StatusLabel(d.Status)
	d.StatusColor = compliance.StatusColor(d.Status)

	if d.ExpiryDate != nil && d.Status == compliance.StatusApproved {
		if t, err := time.Parse("2006-01-02", *d.ExpiryDate); err == nil {
			d.DaysRemaining = compliance.DaysRemaining(&t, now)
			d.Urgent = compliance.IsUrgent(t, now)
		}
	}
}

// ── Summaries ────────────────────────────────────────────────────

// buildSummaries loads the per-company verification rollup for a user,
// restricted to the given company IDs (nil = all of the user's companies).
func buildSummaries(ctx context.Context, pool *pgxpool.Pool, userID string, scope []string) ([]models.CompanyVerificationSummary, error) {
	query := fmt.Sprintf(`
		SELECT c.id, c.name, uc.role, %s
		FROM user_companies uc
		JOIN companies c ON uc.company_id = c.id
		JOIN company_requirements cr ON cr.company_id = c.id AND cr.is_active
		JOIN verification_types vt ON cr.verification_type_id = vt.id
		LEFT JOIN user_verifications uv
			ON uv.requirement_id = cr.id AND uv.user_id = uc.user_id
		WHERE uc.user_id = $1
			AND ($2::uuid[] IS NULL OR c.id = ANY($2::uuid[]))
		ORDER BY c.name ASC, vt.name ASC
	`, detailCols)

	rows, err := pool.Query(ctx, query, userID, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	summaries := []models.CompanyVerificationSummary{}
	var current *models.CompanyVerificationSummary

	for rows.Next() {
		var companyID, companyName, role string
		var d models.VerificationDetail

		err := rows.Scan(
			&companyID, &companyName, &role,
			&d.ID, &d.Name, &d.Type, &d.ValidityPeriodDays,
			&d.SubmissionID, (*string)(&d.Status),
			&d.CertificateNumber, &d.ExpiryDate, &d.FileURL,
		)
		if err != nil {
			return nil, err
		}
		enrichDetail(&d, now)

		if current == nil || current.Company.ID != companyID {
			summaries = append(summaries, models.CompanyVerificationSummary{
				Company: models.CompanyRef{ID: companyID, Name: companyName, Role: role},
				Verifications: models.VerificationCounts{
					Details: []models.VerificationDetail{},
				},
			})
			current = &summaries[len(summaries)-1]
		}

		current.Verifications.Required++
		switch d.Status {
		case compliance.StatusApproved:
			current.Verifications.Completed++
		case compliance.StatusPending, compliance.StatusInReview:
			current.Verifications.Pending++
		}
		current.Verifications.Details = append(current.Verifications.Details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Roll up compliance per company; the first company that isn't fully
	// compliant starts expanded so reviewers land on actionable work.
	expandedSet := false
	for i := range summaries {
		s := &summaries[i]
		s.ComplianceStatus = compliance.Summarize(s.Verifications.Required, s.Verifications.Completed)
		s.ComplianceLabel = compliance.ComplianceLabel(s.ComplianceStatus)
		s.ComplianceColor = compliance.ComplianceColor(s.ComplianceStatus)
		if !expandedSet && s.ComplianceStatus != compliance.Compliant {
			s.Expanded = true
			expandedSet = true
		}
	}

	return summaries, nil
}

// ListForUser handles GET /api/verifications/users/{userId}/all
// Returns one summary per company the user belongs to, restricted to the
// caller's company scope.
func (h *VerificationHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		JSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var scope []string
	if !ctxkeys.IsGlobalScope(r.Context()) {
		scope = ctxkeys.GetCompanyScope(r.Context())
		if len(scope) == 0 {
			JSONError(w, http.StatusForbidden, "No company access assigned")
			return
		}
	}

	summaries, err := buildSummaries(ctx, pool, userID, scope)
	if err != nil {
		log.Printf("Error building verification summaries for user %s: %v", userID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch verifications")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": summaries,
	})
}

// ── Submit ───────────────────────────────────────────────────────

// Submit handles POST /api/verifications/requirements/{id}/submit
// Creates the caller's submission for a requirement in "pending" status.
// Resubmission after rejection or expiry replaces the old record.
func (h *VerificationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	requirementID := chi.URLParam(r, "id")
	if requirementID == "" {
		JSONError(w, http.StatusBadRequest, "Requirement ID is required")
		return
	}
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	var req models.SubmitVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		ValidationError(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// The requirement must exist, be active, and belong to one of the
	// caller's companies.
	var companyID string
	err := pool.QueryRow(ctx, `
		SELECT cr.company_id::text
		FROM company_requirements cr
		JOIN user_companies uc ON uc.company_id = cr.company_id AND uc.user_id = $2
		WHERE cr.id = $1 AND cr.is_active
	`, requirementID, userID).Scan(&companyID)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Requirement not found")
		return
	}

	// An existing pending/in_review/approved submission blocks resubmission.
	var blockingStatus string
	err = pool.QueryRow(ctx, `
		SELECT status FROM user_verifications
		WHERE requirement_id = $1 AND user_id = $2
			AND status IN ('pending', 'in_review', 'approved')
	`, requirementID, userID).Scan(&blockingStatus)
	if err == nil {
		JSONError(w, http.StatusConflict,
			fmt.Sprintf("A submission already exists with status %q", blockingStatus))
		return
	} else if !isNoRows(err) {
		log.Printf("Error checking existing submission: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to submit verification")
		return
	}

	// Replace any rejected/expired record so the requirement has at most
	// one live submission.
	var sub models.Submission
	var status string
	err = pool.QueryRow(ctx, `
		INSERT INTO user_verifications (
			requirement_id, user_id, company_id, status,
			certificate_number, file_url, file_name
		)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6)
		ON CONFLICT (requirement_id, user_id) DO UPDATE SET
			status = 'pending',
			certificate_number = EXCLUDED.certificate_number,
			file_url = EXCLUDED.file_url,
			file_name = EXCLUDED.file_name,
			expiry_date = NULL,
			rejection_reason = NULL,
			reviewed_at = NULL,
			reviewer_id = NULL,
			submitted_at = NOW()
		RETURNING id, requirement_id, user_id::text, company_id::text, status,
			certificate_number, expiry_date::text, file_url, file_name, submitted_at
	`, requirementID, userID, companyID,
		req.CertificateNumber, req.FileURL, req.FileName,
	).Scan(
		&sub.ID, &sub.RequirementID, &sub.UserID, &sub.CompanyID, &status,
		&sub.CertificateNumber, &sub.ExpiryDate, &sub.FileURL, &sub.FileName,
		&sub.SubmittedAt,
	)
	if err != nil {
		log.Printf("Error creating submission: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to submit verification")
		return
	}
	sub.Status = compliance.Status(status)

	go logActivity(pool, userID, "submitted", "verification", sub.ID, map[string]interface{}{
		"requirementId": requirementID, "companyId": companyID,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    sub,
		"message": "Verification submitted for review",
	})
}

// ── Review ───────────────────────────────────────────────────────

// loadDetail fetches a submission joined with its requirement, catalog entry,
// and company, shaped as a VerificationDetail for the review workflow.
func loadDetail(ctx context.Context, pool *pgxpool.Pool, submissionID string) (*models.VerificationDetail, string, string, error) {
	var d models.VerificationDetail
	var companyName, ownerID string
	err := pool.QueryRow(ctx, `
		SELECT cr.id, vt.name, vt.type, vt.validity_period_days,
			uv.id::text, uv.status,
			uv.certificate_number, uv.expiry_date::text, uv.file_url,
			c.name, uv.user_id::text
		FROM user_verifications uv
		JOIN company_requirements cr ON uv.requirement_id = cr.id
		JOIN verification_types vt ON cr.verification_type_id = vt.id
		JOIN companies c ON uv.company_id = c.id
		WHERE uv.id = $1
	`, submissionID).Scan(
		&d.ID, &d.Name, &d.Type, &d.ValidityPeriodDays,
		&d.SubmissionID, (*string)(&d.Status),
		&d.CertificateNumber, &d.ExpiryDate, &d.FileURL,
		&companyName, &ownerID,
	)
	if err != nil {
		return nil, "", "", err
	}
	enrichDetail(&d, time.Now())
	return &d, companyName, ownerID, nil
}

// GetReviewContext handles GET /api/verifications/{id}/review
// Returns the submission with its company, whether it can be reviewed, and
// the expiry date an approval would default to, so a reviewer can open the
// decision dialog pre-filled.
func (h *VerificationHandler) GetReviewContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Verification ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	if !checkSubmissionAccess(ctx, pool, id) {
		JSONError(w, http.StatusForbidden, "You don't have access to this verification")
		return
	}

	d, companyName, _, err := loadDetail(ctx, pool, id)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Verification not found")
		return
	}

	var defaultExpiry *string
	if t := review.DefaultExpiry(*d, time.Now()); t != nil {
		s := t.Format("2006-01-02")
		defaultExpiry = &s
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"verification":      d,
			"companyName":       companyName,
			"actionable":        compliance.IsActionable(d.Status),
			"nextStatuses":      review.NextStatuses(d.Status),
			"defaultExpiryDate": defaultExpiry,
		},
	})
}

// Review handles POST /api/verifications/{id}/review
// Applies an approve/reject decision to a submission. Approval stamps an
// expiry date: the reviewer's explicit one, or the catalog validity period
// from today, or the certificate's own expiry.
func (h *VerificationHandler) Review(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Verification ID is required")
		return
	}

	var req models.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		ValidationError(w, errs)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	if !checkSubmissionAccess(ctx, pool, id) {
		JSONError(w, http.StatusForbidden, "You don't have access to this verification")
		return
	}

	d, companyName, ownerID, err := loadDetail(ctx, pool, id)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Verification not found")
		return
	}

	now := time.Now()
	rc, err := review.Begin(*d, companyName, review.Decision(req.Decision), now)
	if err != nil {
		var na *review.NotActionableError
		switch {
		case errors.As(err, &na):
			JSONError(w, http.StatusConflict,
				fmt.Sprintf("Verification is %s and cannot be reviewed", na.Status))
		case errors.Is(err, review.ErrMissingSubmissionID):
			log.Printf("Submission %s has no reviewable identifier", id)
			JSONError(w, http.StatusConflict, "This verification record is incomplete and cannot be reviewed")
		default:
			JSONError(w, http.StatusConflict, "This verification has not been submitted yet")
		}
		return
	}

	if req.RejectionReason != nil {
		rc.RejectionReason = *req.RejectionReason
	}
	if req.ApprovalExpiryDate != nil {
		t, _ := time.Parse("2006-01-02", *req.ApprovalExpiryDate)
		rc.ExpiryDate = &t
	}

	if !rc.CanSubmit() {
		if rc.Decision == review.DecisionReject {
			JSONError(w, http.StatusUnprocessableEntity, "A rejection reason is required")
		} else {
			JSONError(w, http.StatusUnprocessableEntity, "An approval expiry date is required for this verification")
		}
		return
	}

	outcome := rc.Outcome()
	if !review.CanTransition(d.Status, outcome) {
		JSONError(w, http.StatusConflict,
			fmt.Sprintf("Cannot move a %s verification to %s", d.Status, outcome))
		return
	}

	reviewerID, _ := r.Context().Value(ctxkeys.UserID).(string)

	var expiry interface{}
	if rc.ExpiryDate != nil {
		expiry = rc.ExpiryDate.Format("2006-01-02")
	}
	tag, err := pool.Exec(ctx, `
		UPDATE user_verifications SET
			status = $1,
			expiry_date = $2,
			rejection_reason = NULLIF($3, ''),
			reviewed_at = NOW(),
			reviewer_id = $4
		WHERE id = $5 AND status IN ('pending', 'in_review')
	`, string(outcome), expiry, rc.RejectionReason, reviewerID, id)
	if err != nil {
		log.Printf("Error applying review to %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to submit review")
		return
	}
	if tag.RowsAffected() == 0 {
		// Lost a race with another reviewer or the expiry sweep.
		JSONError(w, http.StatusConflict, "Verification was already reviewed")
		return
	}

	notifyReviewOutcome(pool, ownerID, id, d.Name, outcome, rc.RejectionReason)

	go logActivity(pool, reviewerID, string(rc.Decision)+"d", "verification", id, map[string]interface{}{
		"name": d.Name, "company": companyName, "outcome": string(outcome),
	})

	// Return the owner's refreshed summaries so clients replace their list
	// wholesale instead of patching one row.
	summaries, err := buildSummaries(ctx, pool, ownerID, nil)
	if err != nil {
		log.Printf("Error refreshing summaries after review: %v", err)
		JSONError(w, http.StatusInternalServerError, "Review saved but refresh failed")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    summaries,
		"message": fmt.Sprintf("Verification %s", compliance.StatusLabel(outcome)),
	})
}

// notifyReviewOutcome tells the submission owner what happened. Best effort.
func notifyReviewOutcome(pool *pgxpool.Pool, ownerID, submissionID, name string, outcome compliance.Status, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := fmt.Sprintf("Your %s verification was %s", name, compliance.StatusLabel(outcome))
	if outcome == compliance.StatusRejected && reason != "" {
		msg += ": " + reason
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO notifications (user_id, kind, message, ref_id)
		VALUES ($1, 'reviewed', $2, $3)
	`, ownerID, msg, submissionID)
	if err != nil {
		log.Printf("Failed to notify user %s of review outcome: %v", ownerID, err)
	}
}

// ── Document download ────────────────────────────────────────────

// Download handles GET /api/verifications/{id}/document
// Streams the stored certificate as an attachment named after the
// verification.
func (h *VerificationHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Verification ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	if !checkSubmissionAccess(ctx, pool, id) {
		JSONError(w, http.StatusForbidden, "You don't have access to this verification")
		return
	}

	var name string
	var fileURL *string
	err := pool.QueryRow(ctx, `
		SELECT vt.name, uv.file_url
		FROM user_verifications uv
		JOIN company_requirements cr ON uv.requirement_id = cr.id
		JOIN verification_types vt ON cr.verification_type_id = vt.id
		WHERE uv.id = $1
	`, id).Scan(&name, &fileURL)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Verification not found")
		return
	}
	if fileURL == nil || *fileURL == "" {
		JSONError(w, http.StatusNotFound, "No document attached to this verification")
		return
	}

	reader, err := h.store.Open(ctx, storageKey(*fileURL))
	if err != nil {
		log.Printf("Error opening document for %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch document")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", safeFileName(name)+".pdf"))
	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("Error streaming document for %s: %v", id, err)
	}
}

// storageKey strips a public URL down to its storage path.
func storageKey(fileURL string) string {
	if i := strings.Index(fileURL, "://"); i >= 0 {
		rest := fileURL[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			return rest[j+1:]
		}
	}
	return strings.TrimLeft(fileURL, "/")
}

// safeFileName keeps download filenames header-safe.
func safeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '/', '\n', '\r':
			return '_'
		}
		return r
	}, name)
}

// isNoRows reports whether the error is pgx's no-rows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
