package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"safework-backend/internal/ctxkeys"
	"safework-backend/internal/database"
	"safework-backend/internal/models"
)

// DepartmentUserHandler manages user assignment to departments.
type DepartmentUserHandler struct {
	db database.Service
}

// NewDepartmentUserHandler creates a new DepartmentUserHandler.
func NewDepartmentUserHandler(db database.Service) *DepartmentUserHandler {
	return &DepartmentUserHandler{db: db}
}

// departmentCompany resolves a department's company, or "" when the
// department doesn't exist or is inactive.
func departmentCompany(ctx context.Context, pool *pgxpool.Pool, departmentID string) string {
	var companyID string
	err := pool.QueryRow(ctx,
		`SELECT company_id::text FROM departments WHERE id = $1 AND is_active`,
		departmentID,
	).Scan(&companyID)
	if err != nil {
		return ""
	}
	return companyID
}

// listAssigned loads a department's members ordered by name.
func listAssigned(ctx context.Context, pool *pgxpool.Pool, departmentID string) ([]models.DepartmentUser, error) {
	rows, err := pool.Query(ctx, `
		SELECT u.id, u.name, u.email, u.role, du.assigned_at
		FROM department_users du
		JOIN users u ON du.user_id = u.id
		WHERE du.department_id = $1 AND u.is_active
		ORDER BY u.name ASC
	`, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.DepartmentUser{}
	for rows.Next() {
		var u models.DepartmentUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.AssignedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ── Assigned users ───────────────────────────────────────────────

// ListAssigned handles GET /api/departments/{id}/users
func (h *DepartmentUserHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "id")
	if departmentID == "" {
		JSONError(w, http.StatusBadRequest, "Department ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	companyID := departmentCompany(ctx, pool, departmentID)
	if companyID == "" {
		JSONError(w, http.StatusNotFound, "Department not found")
		return
	}
	if !requireCompanyAccess(w, r, companyID) {
		return
	}

	users, err := listAssigned(ctx, pool, departmentID)
	if err != nil {
		log.Printf("Error fetching users for department %s: %v", departmentID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch department users")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": users,
	})
}

// ── Assign ───────────────────────────────────────────────────────

// Assign handles POST /api/departments/{id}/users
// Adds the given users in a single transaction; users already assigned are
// skipped rather than erroring the batch.
func (h *DepartmentUserHandler) Assign(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "id")
	if departmentID == "" {
		JSONError(w, http.StatusBadRequest, "Department ID is required")
		return
	}

	var req models.AssignUsersRequest
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

	companyID := departmentCompany(ctx, pool, departmentID)
	if companyID == "" {
		JSONError(w, http.StatusNotFound, "Department not found")
		return
	}
	if !requireCompanyAccess(w, r, companyID) {
		return
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to start transaction")
		return
	}
	defer tx.Rollback(ctx)

	assigned := 0
	for _, userID := range req.UserIDs {
		tag, err := tx.Exec(ctx, `
			INSERT INTO department_users (department_id, user_id)
			SELECT $1, u.id FROM users u
			JOIN user_companies uc ON uc.user_id = u.id AND uc.company_id = $3
			WHERE u.id = $2 AND u.is_active
			ON CONFLICT (department_id, user_id) DO NOTHING
		`, departmentID, userID, companyID)
		if err != nil {
			log.Printf("Error assigning user %s to department %s: %v", userID, departmentID, err)
			JSONError(w, http.StatusInternalServerError, "Failed to assign users")
			return
		}
		assigned += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		JSONError(w, http.StatusInternalServerError, "Failed to commit assignment")
		return
	}

	actorID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, actorID, "assigned_users", "department", departmentID, map[string]interface{}{
		"requested": len(req.UserIDs), "assigned": assigned,
	})

	users, err := listAssigned(ctx, pool, departmentID)
	if err != nil {
		log.Printf("Error refreshing department users: %v", err)
		JSONError(w, http.StatusInternalServerError, "Users assigned but refresh failed")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":     users,
		"assigned": assigned,
		"message":  "Users assigned successfully",
	})
}

// ── Remove ───────────────────────────────────────────────────────

// Remove handles DELETE /api/departments/{id}/users/{userId}
func (h *DepartmentUserHandler) Remove(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userId")
	if departmentID == "" || userID == "" {
		JSONError(w, http.StatusBadRequest, "Department ID and user ID are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	companyID := departmentCompany(ctx, pool, departmentID)
	if companyID == "" {
		JSONError(w, http.StatusNotFound, "Department not found")
		return
	}
	if !requireCompanyAccess(w, r, companyID) {
		return
	}

	tag, err := pool.Exec(ctx,
		`DELETE FROM department_users WHERE department_id = $1 AND user_id = $2`,
		departmentID, userID)
	if err != nil {
		log.Printf("Error removing user %s from department %s: %v", userID, departmentID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to remove user")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "User is not assigned to this department")
		return
	}

	actorID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, actorID, "removed_user", "department", departmentID, map[string]interface{}{
		"userId": userID,
	})

	users, err := listAssigned(ctx, pool, departmentID)
	if err != nil {
		log.Printf("Error refreshing department users: %v", err)
		JSONError(w, http.StatusInternalServerError, "User removed but refresh failed")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    users,
		"message": "User removed successfully",
	})
}

// ── Available users ──────────────────────────────────────────────

// ListAvailable handles GET /api/departments/{id}/available-users
// Returns the company roster minus users already in the department.
func (h *DepartmentUserHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "id")
	if departmentID == "" {
		JSONError(w, http.StatusBadRequest, "Department ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	companyID := departmentCompany(ctx, pool, departmentID)
	if companyID == "" {
		JSONError(w, http.StatusNotFound, "Department not found")
		return
	}
	if !requireCompanyAccess(w, r, companyID) {
		return
	}

	rows, err := pool.Query(ctx, `
		SELECT u.id, u.email, u.name, u.role, u.is_active,
			u.created_at::text, u.updated_at::text
		FROM users u
		JOIN user_companies uc ON uc.user_id = u.id
		WHERE uc.company_id = $1 AND u.is_active
			AND NOT EXISTS (
				SELECT 1 FROM department_users du
				WHERE du.department_id = $2 AND du.user_id = u.id
			)
		ORDER BY u.name ASC
	`, companyID, departmentID)
	if err != nil {
		log.Printf("Error fetching available users for department %s: %v", departmentID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch available users")
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
			log.Printf("Error scanning user: %v", err)
			continue
		}
		users = append(users, u)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": users,
	})
}
