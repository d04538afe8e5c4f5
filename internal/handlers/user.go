package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"safework-backend/internal/ctxkeys"
	"safework-backend/internal/database"
	"safework-backend/internal/models"
)

// UserHandler provides user listing, lookup, role changes, and company
// assignment.
type UserHandler struct {
	db database.Service
}

func NewUserHandler(db database.Service) *UserHandler {
	return &UserHandler{db: db}
}

// List handles GET /api/users?search=&role=&companyId=
// admin sees everyone below admin; super_admin sees all.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	currentRole, _ := r.Context().Value(ctxkeys.UserRole).(string)

	query := `
		SELECT DISTINCT u.id, u.email, u.name, u.role, u.is_active,
			u.created_at::text, u.updated_at::text
		FROM users u
		LEFT JOIN user_companies uc ON uc.user_id = u.id
	`
	where := "WHERE u.is_active"
	args := []interface{}{}
	argIdx := 1

	if companyID := r.URL.Query().Get("companyId"); companyID != "" {
		where += fmt.Sprintf(" AND uc.company_id = $%d", argIdx)
		args = append(args, companyID)
		argIdx++
	}
	if search := r.URL.Query().Get("search"); search != "" {
		where += fmt.Sprintf(" AND (u.name ILIKE $%d OR u.email ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+search+"%")
		argIdx++
	}
	if role := r.URL.Query().Get("role"); role != "" {
		where += fmt.Sprintf(" AND u.role = $%d", argIdx)
		args = append(args, role)
		argIdx++
	}
	if currentRole != "super_admin" {
		where += ` AND u.role NOT IN ('super_admin', 'admin')`
	}

	// Scoped callers only see users within their companies.
	where, args, _ = appendCompanyScope(r.Context(), where, args, argIdx, "uc.company_id")

	// DISTINCT requires the sort key in the select list; the ISO text form
	// of created_at sorts chronologically.
	query += where + ` ORDER BY u.created_at::text DESC`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Failed to list users: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			log.Printf("Failed to scan user row: %v", err)
			continue
		}
		users = append(users, u)
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": users})
}

// GetByID handles GET /api/users/{id}
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var u models.User
	err := pool.QueryRow(ctx, `
		SELECT id, email, name, role, is_active, created_at::text, updated_at::text
		FROM users WHERE id = $1
	`, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		JSONError(w, http.StatusNotFound, "User not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": u})
}

// UpdateRole changes a user's role with hierarchical restrictions.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	currentUserID, _ := r.Context().Value(ctxkeys.UserID).(string)
	currentRole, _ := r.Context().Value(ctxkeys.UserRole).(string)

	if targetID == currentUserID {
		JSONError(w, http.StatusBadRequest, "Cannot change your own role")
		return
	}

	var req models.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		ValidationError(w, errs)
		return
	}

	// Admin can only assign viewer or reviewer; only super_admin hands out
	// admin roles or touches other admins.
	if currentRole != "super_admin" {
		if req.Role == "admin" || req.Role == "super_admin" {
			JSONError(w, http.StatusForbidden, "Only super_admin can assign admin or super_admin roles")
			return
		}
		var targetRole string
		h.db.GetPool().QueryRow(r.Context(), "SELECT role FROM users WHERE id = $1", targetID).Scan(&targetRole)
		if targetRole == "admin" || targetRole == "super_admin" {
			JSONError(w, http.StatusForbidden, "Cannot modify admin or super_admin users")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var user models.User
	err := pool.QueryRow(ctx, `
		UPDATE users SET role = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, email, name, role, is_active, created_at::text, updated_at::text
	`, req.Role, targetID).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		JSONError(w, http.StatusNotFound, "User not found")
		return
	}

	go logActivity(pool, currentUserID, "updated_role", "user", targetID, map[string]interface{}{
		"newRole": req.Role,
		"email":   user.Email,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    user,
		"message": "Role updated successfully",
	})
}

// Deactivate handles DELETE /api/users/{id}
// Accounts are deactivated, not removed; submissions and the audit trail
// keep referring to them.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	currentUserID, _ := r.Context().Value(ctxkeys.UserID).(string)
	currentRole, _ := r.Context().Value(ctxkeys.UserRole).(string)

	if targetID == currentUserID {
		JSONError(w, http.StatusBadRequest, "Cannot deactivate your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var email, targetRole string
	err := pool.QueryRow(ctx, `SELECT email, role FROM users WHERE id = $1`, targetID).Scan(&email, &targetRole)
	if err != nil {
		JSONError(w, http.StatusNotFound, "User not found")
		return
	}

	if currentRole != "super_admin" && (targetRole == "admin" || targetRole == "super_admin") {
		JSONError(w, http.StatusForbidden, "Cannot deactivate admin or super_admin users")
		return
	}

	tag, err := pool.Exec(ctx,
		`UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND is_active`,
		targetID)
	if err != nil {
		log.Printf("Failed to deactivate user: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to deactivate user")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "User not found")
		return
	}

	go logActivity(pool, currentUserID, "deactivated", "user", targetID, map[string]interface{}{
		"email": email,
	})

	JSON(w, http.StatusOK, map[string]interface{}{"message": "User deactivated successfully"})
}

// ── Company Assignment ─────────────────────────────────────────

// GetUserCompanies returns the companies assigned to a user with the user's
// role in each.
func (h *UserHandler) GetUserCompanies(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, `
		SELECT uc.company_id::text, c.name, uc.role
		FROM user_companies uc
		JOIN companies c ON c.id = uc.company_id
		WHERE uc.user_id = $1
		ORDER BY c.name ASC
	`, userID)
	if err != nil {
		log.Printf("Failed to get user companies: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch company assignments")
		return
	}
	defer rows.Close()

	assignments := []models.CompanyRef{}
	for rows.Next() {
		var a models.CompanyRef
		if err := rows.Scan(&a.ID, &a.Name, &a.Role); err != nil {
			continue
		}
		assignments = append(assignments, a)
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": assignments})
}

// SetUserCompanies replaces all company assignments for a user.
func (h *UserHandler) SetUserCompanies(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req struct {
		Companies []struct {
			CompanyID string `json:"companyId"`
			Role      string `json:"role"`
		} `json:"companies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tx, err := pool.Begin(ctx)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to update assignments")
		return
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `DELETE FROM user_companies WHERE user_id = $1`, userID)
	if err != nil {
		log.Printf("Failed to clear user companies: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update assignments")
		return
	}

	for _, c := range req.Companies {
		role := c.Role
		if role == "" {
			role = "member"
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO user_companies (user_id, company_id, role)
			VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
		`, userID, c.CompanyID, role)
		if err != nil {
			log.Printf("Failed to assign company %s to user %s: %v", c.CompanyID, userID, err)
			continue
		}
	}

	if err := tx.Commit(ctx); err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to update assignments")
		return
	}

	currentUserID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, currentUserID, "assigned_companies", "user", userID, map[string]interface{}{
		"count": len(req.Companies),
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Company assignments updated",
	})
}
