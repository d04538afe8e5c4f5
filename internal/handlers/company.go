package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"safework-backend/internal/ctxkeys"
	"safework-backend/internal/database"
	"safework-backend/internal/models"
)

// CompanyHandler handles company-related HTTP requests.
type CompanyHandler struct {
	db database.Service
}

// NewCompanyHandler creates a new CompanyHandler with the provided database service.
func NewCompanyHandler(db database.Service) *CompanyHandler {
	return &CompanyHandler{db: db}
}

// ── List ───────────────────────────────────────────────────────

// List returns the companies in the caller's scope, ordered alphabetically.
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	query := `
		SELECT c.id, c.name, c.industry, c.is_active,
			c.created_at::text, c.updated_at::text,
			COUNT(uc.user_id) AS member_count
		FROM companies c
		LEFT JOIN user_companies uc ON uc.company_id = c.id
		WHERE c.is_active
	`
	args := []interface{}{}
	query, args, _ = appendCompanyScope(r.Context(), query, args, 1, "c.id")
	query += `
		GROUP BY c.id
		ORDER BY c.name ASC
	`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Error fetching companies: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch companies")
		return
	}
	defer rows.Close()

	type CompanyWithCount struct {
		models.Company
		MemberCount int `json:"memberCount"`
	}

	companies := []CompanyWithCount{}
	for rows.Next() {
		var c CompanyWithCount
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Industry, &c.IsActive,
			&c.CreatedAt, &c.UpdatedAt,
			&c.MemberCount,
		); err != nil {
			log.Printf("Error scanning company: %v", err)
			continue
		}
		companies = append(companies, c)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": companies,
	})
}

// ── Create ─────────────────────────────────────────────────────

// companyRequest defines the accepted fields for company creation/update.
type companyRequest struct {
	Name     string  `json:"name"`
	Industry *string `json:"industry,omitempty"`
}

// Create adds a new company (admin-only).
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		JSONError(w, http.StatusUnprocessableEntity, "Company name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var company models.Company
	err := pool.QueryRow(ctx, `
		INSERT INTO companies (name, industry)
		VALUES ($1, $2)
		RETURNING id, name, industry, is_active, created_at::text, updated_at::text
	`, req.Name, req.Industry,
	).Scan(
		&company.ID, &company.Name, &company.Industry, &company.IsActive,
		&company.CreatedAt, &company.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A company with this name already exists")
			return
		}
		log.Printf("Error creating company: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create company")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "created", "company", company.ID, map[string]interface{}{
		"name": company.Name,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    company,
		"message": "Company created successfully",
	})
}

// ── Update ─────────────────────────────────────────────────────

// Update modifies a company's details (admin-only).
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		JSONError(w, http.StatusUnprocessableEntity, "Company name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var company models.Company
	err := pool.QueryRow(ctx, `
		UPDATE companies SET name = $1, industry = $2, updated_at = NOW()
		WHERE id = $3 AND is_active
		RETURNING id, name, industry, is_active, created_at::text, updated_at::text
	`, req.Name, req.Industry, id,
	).Scan(
		&company.ID, &company.Name, &company.Industry, &company.IsActive,
		&company.CreatedAt, &company.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A company with this name already exists")
			return
		}
		JSONError(w, http.StatusNotFound, "Company not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "updated", "company", company.ID, map[string]interface{}{
		"name": company.Name,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    company,
		"message": "Company updated successfully",
	})
}

// ── Delete ─────────────────────────────────────────────────────

// Delete deactivates a company (super_admin only). Requirements, departments,
// and submissions under it are kept for history.
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	result, err := pool.Exec(ctx,
		`UPDATE companies SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`, id)
	if err != nil {
		log.Printf("Error deleting company: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete company")
		return
	}

	if result.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Company not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "deleted", "company", id, nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Company deactivated successfully",
	})
}
