package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"safework-backend/internal/compliance"
	"safework-backend/internal/database"
	"safework-backend/internal/models"
)

// DashboardHandler handles dashboard-related HTTP requests.
type DashboardHandler struct {
	db database.Service
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(db database.Service) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// ── GetMetrics ─────────────────────────────────────────────────

// GetMetrics handles GET /api/dashboard/metrics
func (h *DashboardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	metrics := models.DashboardMetrics{}

	err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE is_active").Scan(&metrics.TotalUsers)
	if err != nil {
		log.Printf("Error querying total users: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_verifications`).Scan(&metrics.TotalSubmissions)
	if err != nil {
		log.Printf("Error querying total submissions: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	err = pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_verifications
		WHERE status IN ('pending', 'in_review')
	`).Scan(&metrics.PendingReview)
	if err != nil {
		log.Printf("Error querying pending review: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	err = pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_verifications
		WHERE status = 'approved' AND expiry_date IS NOT NULL
		  AND expiry_date BETWEEN CURRENT_DATE AND CURRENT_DATE + INTERVAL '30 days'
	`).Scan(&metrics.ExpiringSoon)
	if err != nil {
		log.Printf("Error querying expiring soon: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	err = pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_verifications WHERE status = 'expired'
	`).Scan(&metrics.Expired)
	if err != nil {
		log.Printf("Error querying expired: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	JSON(w, http.StatusOK, metrics)
}

// ── GetExpiryAlerts ────────────────────────────────────────────

// GetExpiryAlerts handles GET /api/dashboard/expiring
// Lists approved verifications expiring within 30 days or already past.
func (h *DashboardHandler) GetExpiryAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, `
		SELECT uv.id::text, u.id::text, u.name, c.name, vt.name,
			uv.expiry_date::text,
			(uv.expiry_date - CURRENT_DATE) AS days_left
		FROM user_verifications uv
		JOIN users u ON uv.user_id = u.id
		JOIN companies c ON uv.company_id = c.id
		JOIN company_requirements cr ON uv.requirement_id = cr.id
		JOIN verification_types vt ON cr.verification_type_id = vt.id
		WHERE uv.status IN ('approved', 'expired') AND uv.expiry_date IS NOT NULL
		  AND uv.expiry_date <= CURRENT_DATE + INTERVAL '30 days'
		  AND u.is_active
		ORDER BY uv.expiry_date ASC
	`)
	if err != nil {
		log.Printf("Error fetching expiry alerts: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch alerts")
		return
	}
	defer rows.Close()

	now := time.Now()
	alerts := []models.ExpiryAlert{}
	for rows.Next() {
		var a models.ExpiryAlert
		if err := rows.Scan(
			&a.SubmissionID, &a.UserID, &a.UserName,
			&a.CompanyName, &a.Verification, &a.ExpiryDate,
			&a.DaysLeft,
		); err != nil {
			log.Printf("Error scanning alert: %v", err)
			continue
		}
		if t, err := time.Parse("2006-01-02", a.ExpiryDate); err == nil {
			a.Urgent = compliance.IsUrgent(t, now)
		}
		alerts = append(alerts, a)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":  alerts,
		"total": len(alerts),
	})
}

// ── GetCompanySummary ──────────────────────────────────────────

// GetCompanySummary handles GET /api/dashboard/company-summary
func (h *DashboardHandler) GetCompanySummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, `
		SELECT c.id, c.name, COUNT(uc.user_id) AS member_count
		FROM companies c
		LEFT JOIN user_companies uc ON uc.company_id = c.id
		WHERE c.is_active
		GROUP BY c.id, c.name
		ORDER BY member_count DESC
	`)
	if err != nil {
		log.Printf("Error fetching company summary: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch company summary")
		return
	}
	defer rows.Close()

	companies := []models.CompanySummary{}
	for rows.Next() {
		var cs models.CompanySummary
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.MemberCount); err != nil {
			log.Printf("Error scanning company summary: %v", err)
			continue
		}
		companies = append(companies, cs)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": companies,
	})
}

// ── GetComplianceStats ─────────────────────────────────────────

// GetComplianceStats handles GET /api/dashboard/compliance
// Returns the full compliance overview: submission status counts, approval
// rate, per-company member compliance, and critical expiry alerts.
func (h *DashboardHandler) GetComplianceStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	stats := models.ComplianceStats{
		SubmissionsByStatus: make(map[string]int),
		CompanyBreakdown:    []models.CompanyCompliance{},
		CriticalAlerts:      []models.ExpiryAlert{},
	}

	pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_active`).Scan(&stats.TotalUsers)

	// Status distribution
	statusRows, err := pool.Query(ctx, `
		SELECT status, COUNT(*) FROM user_verifications GROUP BY status
	`)
	if err != nil {
		log.Printf("Error fetching compliance stats: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch compliance stats")
		return
	}
	defer statusRows.Close()

	approved := 0
	for statusRows.Next() {
		var status string
		var count int
		if err := statusRows.Scan(&status, &count); err != nil {
			continue
		}
		stats.SubmissionsByStatus[status] = count
		stats.TotalSubmissions += count
		if compliance.Status(status) == compliance.StatusApproved {
			approved = count
		}
	}
	if stats.TotalSubmissions > 0 {
		stats.ApprovalRate = float64(approved) / float64(stats.TotalSubmissions) * 100
	}

	// Per-company breakdown: count each member against the company's
	// requirement total, then bucket them by compliance status.
	companyRows, err := pool.Query(ctx, `
		WITH members AS (
			SELECT uc.company_id, uc.user_id,
				COUNT(cr.id) AS required,
				COUNT(uv.id) FILTER (WHERE uv.status = 'approved') AS completed
			FROM user_companies uc
			JOIN company_requirements cr ON cr.company_id = uc.company_id AND cr.is_active
			LEFT JOIN user_verifications uv
				ON uv.requirement_id = cr.id AND uv.user_id = uc.user_id
			GROUP BY uc.company_id, uc.user_id
		)
		SELECT c.id, c.name,
			COUNT(m.user_id) AS member_count,
			COUNT(m.user_id) FILTER (WHERE m.completed >= m.required) AS compliant,
			COUNT(m.user_id) FILTER (WHERE m.completed > 0 AND m.completed < m.required) AS partial,
			COUNT(m.user_id) FILTER (WHERE m.completed = 0 AND m.required > 0) AS non_compliant,
			(SELECT COUNT(*) FROM company_requirements cr2
				WHERE cr2.company_id = c.id AND cr2.is_active) AS requirement_count
		FROM companies c
		LEFT JOIN members m ON m.company_id = c.id
		WHERE c.is_active
		GROUP BY c.id, c.name
		ORDER BY non_compliant DESC, c.name ASC
	`)
	if err != nil {
		log.Printf("Error fetching company breakdown: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch compliance stats")
		return
	}
	defer companyRows.Close()

	for companyRows.Next() {
		var cc models.CompanyCompliance
		if err := companyRows.Scan(
			&cc.CompanyID, &cc.CompanyName, &cc.MemberCount,
			&cc.CompliantCount, &cc.PartialCount, &cc.NonCompliant,
			&cc.RequirementCount,
		); err != nil {
			continue
		}
		switch {
		case cc.MemberCount == 0 || cc.CompliantCount == cc.MemberCount:
			cc.OverallStatus = compliance.Compliant
		case cc.CompliantCount == 0:
			cc.OverallStatus = compliance.NonCompliant
		default:
			cc.OverallStatus = compliance.Partial
		}
		stats.CompanyBreakdown = append(stats.CompanyBreakdown, cc)
	}

	// Critical alerts: already expired, or expiring within a week.
	alertRows, err := pool.Query(ctx, `
		SELECT uv.id::text, u.id::text, u.name, c.name, vt.name,
			uv.expiry_date::text,
			(uv.expiry_date - CURRENT_DATE) AS days_left
		FROM user_verifications uv
		JOIN users u ON uv.user_id = u.id
		JOIN companies c ON uv.company_id = c.id
		JOIN company_requirements cr ON uv.requirement_id = cr.id
		JOIN verification_types vt ON cr.verification_type_id = vt.id
		WHERE uv.status IN ('approved', 'expired') AND uv.expiry_date IS NOT NULL
		  AND uv.expiry_date <= CURRENT_DATE + INTERVAL '7 days'
		  AND u.is_active
		ORDER BY uv.expiry_date ASC
		LIMIT 20
	`)
	if err == nil {
		defer alertRows.Close()
		for alertRows.Next() {
			var a models.ExpiryAlert
			if err := alertRows.Scan(
				&a.SubmissionID, &a.UserID, &a.UserName,
				&a.CompanyName, &a.Verification, &a.ExpiryDate,
				&a.DaysLeft,
			); err != nil {
				continue
			}
			a.Urgent = true
			stats.CriticalAlerts = append(stats.CriticalAlerts, a)
		}
	}

	JSON(w, http.StatusOK, stats)
}
