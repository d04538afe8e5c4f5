package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"safework-backend/internal/ctxkeys"
	"safework-backend/internal/database"
	"safework-backend/internal/models"
)

// AdminHandler provides CRUD for the verification catalog and per-company
// requirements.
type AdminHandler struct {
	db database.Service
}

func NewAdminHandler(db database.Service) *AdminHandler {
	return &AdminHandler{db: db}
}

// ── Verification Types ───────────────────────────────────────────

// ListVerificationTypes returns all active catalog entries.
// Accessible to all authenticated users (needed for submission forms).
func (h *AdminHandler) ListVerificationTypes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, `
		SELECT id, name, type, validity_period_days, is_active,
			created_at::text, updated_at::text
		FROM verification_types
		WHERE is_active
		ORDER BY name ASC
	`)
	if err != nil {
		log.Printf("Failed to list verification types: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch verification types")
		return
	}
	defer rows.Close()

	types := []models.VerificationType{}
	for rows.Next() {
		var vt models.VerificationType
		if err := rows.Scan(
			&vt.ID, &vt.Name, &vt.Type, &vt.ValidityPeriodDays, &vt.IsActive,
			&vt.CreatedAt, &vt.UpdatedAt,
		); err != nil {
			log.Printf("Failed to scan verification type: %v", err)
			continue
		}
		types = append(types, vt)
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": types})
}

// CreateVerificationType adds a catalog entry (admin-only).
func (h *AdminHandler) CreateVerificationType(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVerificationTypeRequest
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
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	var vt models.VerificationType
	err := pool.QueryRow(ctx, `
		INSERT INTO verification_types (name, type, validity_period_days)
		VALUES ($1, $2, $3)
		RETURNING id, name, type, validity_period_days, is_active,
			created_at::text, updated_at::text
	`, req.Name, req.Type, req.ValidityPeriodDays).Scan(
		&vt.ID, &vt.Name, &vt.Type, &vt.ValidityPeriodDays, &vt.IsActive,
		&vt.CreatedAt, &vt.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A verification type with this name already exists")
			return
		}
		log.Printf("Failed to create verification type: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create verification type")
		return
	}

	go logActivity(pool, userID, "created", "verification_type", vt.ID, map[string]interface{}{
		"name": vt.Name, "type": vt.Type,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    vt,
		"message": "Verification type created successfully",
	})
}

// UpdateVerificationType edits a catalog entry (admin-only). Changing the
// validity period affects future approvals only.
func (h *AdminHandler) UpdateVerificationType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.CreateVerificationTypeRequest
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

	var vt models.VerificationType
	err := pool.QueryRow(ctx, `
		UPDATE verification_types SET
			name = $1, type = $2, validity_period_days = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING id, name, type, validity_period_days, is_active,
			created_at::text, updated_at::text
	`, req.Name, req.Type, req.ValidityPeriodDays, id).Scan(
		&vt.ID, &vt.Name, &vt.Type, &vt.ValidityPeriodDays, &vt.IsActive,
		&vt.CreatedAt, &vt.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A verification type with this name already exists")
			return
		}
		JSONError(w, http.StatusNotFound, "Verification type not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "updated", "verification_type", vt.ID, map[string]interface{}{
		"name": vt.Name,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    vt,
		"message": "Verification type updated successfully",
	})
}

// DeleteVerificationType soft-deletes a catalog entry (admin-only).
// Requirements already created from it keep working.
func (h *AdminHandler) DeleteVerificationType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, `
		UPDATE verification_types SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		log.Printf("Failed to delete verification type %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete verification type")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Verification type not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "deleted", "verification_type", id, nil)

	JSON(w, http.StatusOK, map[string]interface{}{"message": "Verification type deleted successfully"})
}

// ── Company Requirements ─────────────────────────────────────────

type requirementRow struct {
	ID                 string `json:"id"`
	CompanyID          string `json:"companyId"`
	VerificationTypeID string `json:"verificationTypeId"`
	Name               string `json:"name"`
	Type               string `json:"type"`
	ValidityPeriodDays *int   `json:"validityPeriod,omitempty"`
	IsActive           bool   `json:"isActive"`
	CreatedAt          string `json:"createdAt"`
}

// ListRequirements returns a company's active requirements with catalog info.
func (h *AdminHandler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("companyId")
	if companyID == "" {
		JSONError(w, http.StatusBadRequest, "companyId query parameter is required")
		return
	}
	if !requireCompanyAccess(w, r, companyID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.db.GetPool().Query(ctx, `
		SELECT cr.id, cr.company_id::text, cr.verification_type_id::text,
			vt.name, vt.type, vt.validity_period_days, cr.is_active,
			cr.created_at::text
		FROM company_requirements cr
		JOIN verification_types vt ON cr.verification_type_id = vt.id
		WHERE cr.company_id = $1 AND cr.is_active
		ORDER BY vt.name ASC
	`, companyID)
	if err != nil {
		log.Printf("Failed to list requirements for company %s: %v", companyID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch requirements")
		return
	}
	defer rows.Close()

	requirements := []requirementRow{}
	for rows.Next() {
		var rr requirementRow
		if err := rows.Scan(
			&rr.ID, &rr.CompanyID, &rr.VerificationTypeID,
			&rr.Name, &rr.Type, &rr.ValidityPeriodDays, &rr.IsActive,
			&rr.CreatedAt,
		); err != nil {
			continue
		}
		requirements = append(requirements, rr)
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": requirements})
}

// CreateRequirement adds a verification requirement to a company (admin-only).
func (h *AdminHandler) CreateRequirement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID          string `json:"companyId"`
		VerificationTypeID string `json:"verificationTypeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.CompanyID == "" || req.VerificationTypeID == "" {
		JSONError(w, http.StatusUnprocessableEntity, "companyId and verificationTypeId are required")
		return
	}
	if !requireCompanyAccess(w, r, req.CompanyID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	// Reactivate a soft-deleted requirement instead of duplicating it.
	var rr requirementRow
	err := pool.QueryRow(ctx, `
		WITH upserted AS (
			INSERT INTO company_requirements (company_id, verification_type_id)
			VALUES ($1, $2)
			ON CONFLICT (company_id, verification_type_id)
			DO UPDATE SET is_active = TRUE
			RETURNING id, company_id, verification_type_id, is_active, created_at
		)
		SELECT u.id, u.company_id::text, u.verification_type_id::text,
			vt.name, vt.type, vt.validity_period_days, u.is_active,
			u.created_at::text
		FROM upserted u
		JOIN verification_types vt ON u.verification_type_id = vt.id
	`, req.CompanyID, req.VerificationTypeID).Scan(
		&rr.ID, &rr.CompanyID, &rr.VerificationTypeID,
		&rr.Name, &rr.Type, &rr.ValidityPeriodDays, &rr.IsActive,
		&rr.CreatedAt,
	)
	if err != nil {
		log.Printf("Failed to create requirement: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create requirement")
		return
	}

	go logActivity(pool, userID, "created", "requirement", rr.ID, map[string]interface{}{
		"companyId": req.CompanyID, "verification": rr.Name,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    rr,
		"message": "Requirement added successfully",
	})
}

// DeleteRequirement soft-deletes a company requirement (admin-only).
// Existing submissions against it are kept for history.
func (h *AdminHandler) DeleteRequirement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var companyID string
	err := pool.QueryRow(ctx,
		`SELECT company_id::text FROM company_requirements WHERE id = $1`, id,
	).Scan(&companyID)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Requirement not found")
		return
	}
	if !requireCompanyAccess(w, r, companyID) {
		return
	}

	tag, err := pool.Exec(ctx,
		`UPDATE company_requirements SET is_active = FALSE WHERE id = $1 AND is_active`, id)
	if err != nil {
		log.Printf("Failed to delete requirement %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete requirement")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Requirement not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "deleted", "requirement", id, nil)

	JSON(w, http.StatusOK, map[string]interface{}{"message": "Requirement removed successfully"})
}
