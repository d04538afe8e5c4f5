package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"safework-backend/internal/ctxkeys"
	"safework-backend/internal/database"
	"safework-backend/internal/models"
)

// DepartmentHandler handles department CRUD and the approval chain.
type DepartmentHandler struct {
	db database.Service
}

// NewDepartmentHandler creates a new DepartmentHandler.
func NewDepartmentHandler(db database.Service) *DepartmentHandler {
	return &DepartmentHandler{db: db}
}

// ── Column lists & scan helpers ──────────────────────────────────

const deptCols = `d.id, d.company_id::text, d.name, d.code, d.description,
	d.approval_authority, d.required_role, d.approval_order,
	d.requires_comments, d.max_approval_time_hours, d.is_active,
	d.created_at, d.updated_at, d.deleted_at, d.deletion_reason`

const deptRetCols = `id, company_id::text, name, code, description,
	approval_authority, required_role, approval_order,
	requires_comments, max_approval_time_hours, is_active,
	created_at, updated_at, deleted_at, deletion_reason`

// scanDepartment reads all Department columns from a row/rows scanner.
func scanDepartment(scanner interface {
	Scan(dest ...interface{}) error
}, d *models.Department) error {
	return scanner.Scan(
		&d.ID, &d.CompanyID, &d.Name, &d.Code, &d.Description,
		&d.ApprovalAuthority, &d.RequiredRole, &d.ApprovalOrder,
		&d.Settings.RequiresComments, &d.Settings.MaxApprovalTimeHours, &d.IsActive,
		&d.CreatedAt, &d.UpdatedAt, &d.DeletedAt, &d.DeletionReason,
	)
}

// listDepartments loads a company's active departments with member counts,
// sorted by approval order (missing orders last).
func listDepartments(ctx context.Context, pool *pgxpool.Pool, companyID string) ([]models.Department, error) {
	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, COUNT(du.user_id) AS member_count
		FROM departments d
		LEFT JOIN department_users du ON du.department_id = d.id
		WHERE d.company_id = $1 AND d.is_active
		GROUP BY d.id
	`, deptCols), companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	departments := []models.Department{}
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(
			&d.ID, &d.CompanyID, &d.Name, &d.Code, &d.Description,
			&d.ApprovalAuthority, &d.RequiredRole, &d.ApprovalOrder,
			&d.Settings.RequiresComments, &d.Settings.MaxApprovalTimeHours, &d.IsActive,
			&d.CreatedAt, &d.UpdatedAt, &d.DeletedAt, &d.DeletionReason,
			&d.MemberCount,
		); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	models.SortByApprovalOrder(departments)
	return departments, nil
}

// requireCompanyAccess checks the caller's company scope against a company,
// writing a 403 on failure.
func requireCompanyAccess(w http.ResponseWriter, r *http.Request, companyID string) bool {
	if checkCompanyAccess(r.Context(), companyID) {
		return true
	}
	JSONError(w, http.StatusForbidden, "You don't have access to this company")
	return false
}

// ── List ─────────────────────────────────────────────────────────

// List handles GET /api/departments?companyId=...
func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
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

	departments, err := listDepartments(ctx, h.db.GetPool(), companyID)
	if err != nil {
		log.Printf("Error fetching departments for company %s: %v", companyID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch departments")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": departments,
	})
}

// GetByID handles GET /api/departments/{id}
func (h *DepartmentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Department ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var d models.Department
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s, COUNT(du.user_id) AS member_count
		FROM departments d
		LEFT JOIN department_users du ON du.department_id = d.id
		WHERE d.id = $1
		GROUP BY d.id
	`, deptCols), id)
	if err := row.Scan(
		&d.ID, &d.CompanyID, &d.Name, &d.Code, &d.Description,
		&d.ApprovalAuthority, &d.RequiredRole, &d.ApprovalOrder,
		&d.Settings.RequiresComments, &d.Settings.MaxApprovalTimeHours, &d.IsActive,
		&d.CreatedAt, &d.UpdatedAt, &d.DeletedAt, &d.DeletionReason,
		&d.MemberCount,
	); err != nil {
		JSONError(w, http.StatusNotFound, "Department not found")
		return
	}

	if !requireCompanyAccess(w, r, d.CompanyID) {
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": d,
	})
}

// ── Create ───────────────────────────────────────────────────────

// Create handles POST /api/departments?companyId=...
func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("companyId")
	if companyID == "" {
		JSONError(w, http.StatusBadRequest, "companyId query parameter is required")
		return
	}
	if !requireCompanyAccess(w, r, companyID) {
		return
	}

	var req models.DepartmentRequest
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

	// Duplicate check against the company's active departments, before any
	// write. Comparison is case-insensitive.
	existing, err := listDepartments(ctx, pool, companyID)
	if err != nil {
		log.Printf("Error checking duplicate departments: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create department")
		return
	}
	if models.HasDuplicateCode(existing, req.Code, "") {
		ValidationError(w, map[string]string{"code": "A department with this code already exists"})
		return
	}
	if models.HasDuplicateName(existing, req.Name, "") {
		ValidationError(w, map[string]string{"name": "A department with this name already exists"})
		return
	}

	var d models.Department
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO departments (
			company_id, name, code, description,
			approval_authority, required_role, approval_order,
			requires_comments, max_approval_time_hours
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s
	`, deptRetCols),
		companyID, req.Name, req.Code, req.Description,
		req.ApprovalAuthority, req.RequiredRole, req.ApprovalOrder,
		req.Settings.RequiresComments, req.Settings.MaxApprovalTimeHours,
	)
	if err := scanDepartment(row, &d); err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A department with this code already exists")
			return
		}
		log.Printf("Error creating department: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create department")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "created", "department", d.ID, map[string]interface{}{
		"name": d.Name, "code": d.Code, "companyId": companyID,
	})

	// Clients reload the whole list after a mutation; hand it to them.
	departments, err := listDepartments(ctx, pool, companyID)
	if err != nil {
		log.Printf("Error refreshing departments: %v", err)
		JSONError(w, http.StatusInternalServerError, "Department created but refresh failed")
		return
	}

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    d,
		"all":     departments,
		"message": "Department created successfully",
	})
}

// ── Update ───────────────────────────────────────────────────────

// Update handles PUT /api/departments/{id}
// The code field is immutable; any code in the body is ignored.
func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Department ID is required")
		return
	}

	var req models.DepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Fetch the current record so validation sees the immutable code and we
	// know which company to check duplicates within.
	var current models.Department
	row := pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM departments d WHERE d.id = $1 AND d.is_active`, deptCols), id)
	if err := scanDepartment(row, &current); err != nil {
		JSONError(w, http.StatusNotFound, "Department not found")
		return
	}
	if !requireCompanyAccess(w, r, current.CompanyID) {
		return
	}

	req.Code = current.Code
	if errs := req.Validate(); len(errs) > 0 {
		ValidationError(w, errs)
		return
	}

	existing, err := listDepartments(ctx, pool, current.CompanyID)
	if err != nil {
		log.Printf("Error checking duplicate departments: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update department")
		return
	}
	if models.HasDuplicateName(existing, req.Name, id) {
		ValidationError(w, map[string]string{"name": "A department with this name already exists"})
		return
	}

	var d models.Department
	row = pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE departments SET
			name = $1, description = $2,
			approval_authority = $3, required_role = $4, approval_order = $5,
			requires_comments = $6, max_approval_time_hours = $7,
			updated_at = NOW()
		WHERE id = $8 AND is_active
		RETURNING %s
	`, deptRetCols),
		req.Name, req.Description,
		req.ApprovalAuthority, req.RequiredRole, req.ApprovalOrder,
		req.Settings.RequiresComments, req.Settings.MaxApprovalTimeHours,
		id,
	)
	if err := scanDepartment(row, &d); err != nil {
		log.Printf("Error updating department %s: %v", id, err)
		JSONError(w, http.StatusNotFound, "Department not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "updated", "department", d.ID, map[string]interface{}{
		"name": d.Name,
	})

	departments, err := listDepartments(ctx, pool, current.CompanyID)
	if err != nil {
		log.Printf("Error refreshing departments: %v", err)
		JSONError(w, http.StatusInternalServerError, "Department updated but refresh failed")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    d,
		"all":     departments,
		"message": "Department updated successfully",
	})
}

// ── Delete ───────────────────────────────────────────────────────

// Delete handles DELETE /api/departments/{id}
// Departments are soft-deleted, with an optional reason kept for the audit
// trail; history keeps referring to them.
func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Department ID is required")
		return
	}

	reason, err := decodeDeleteReason(r.Body)
	if err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var companyID string
	if err := pool.QueryRow(ctx,
		`SELECT company_id::text FROM departments WHERE id = $1 AND is_active`, id,
	).Scan(&companyID); err != nil {
		JSONError(w, http.StatusNotFound, "Department not found")
		return
	}
	if !requireCompanyAccess(w, r, companyID) {
		return
	}

	tag, err := pool.Exec(ctx, `
		UPDATE departments SET
			is_active = FALSE, deleted_at = NOW(),
			deletion_reason = NULLIF($1, ''), updated_at = NOW()
		WHERE id = $2 AND is_active
	`, reason, id)
	if err != nil {
		log.Printf("Error deleting department %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete department")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Department not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "deleted", "department", id, map[string]interface{}{
		"reason": reason,
	})

	departments, err := listDepartments(ctx, pool, companyID)
	if err != nil {
		log.Printf("Error refreshing departments: %v", err)
		JSONError(w, http.StatusInternalServerError, "Department deleted but refresh failed")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"all":     departments,
		"message": "Department deleted successfully",
	})
}

// decodeDeleteReason reads the optional {reason} body of a department delete.
// An absent or empty body is fine; only malformed JSON is an error.
func decodeDeleteReason(body io.Reader) (string, error) {
	var req models.DeleteDepartmentRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(req.Reason), nil
}

// ── Approval chain ───────────────────────────────────────────────

// ApprovalChain handles GET /api/departments/approval/{companyId}
// Returns only the departments with approval authority, in chain order.
func (h *DepartmentHandler) ApprovalChain(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyId")
	if companyID == "" {
		JSONError(w, http.StatusBadRequest, "Company ID is required")
		return
	}
	if !requireCompanyAccess(w, r, companyID) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	departments, err := listDepartments(ctx, h.db.GetPool(), companyID)
	if err != nil {
		log.Printf("Error fetching approval chain for company %s: %v", companyID, err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch approval departments")
		return
	}

	chain := []models.Department{}
	for _, d := range departments {
		if d.ApprovalAuthority {
			chain = append(chain, d)
		}
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"data": chain,
	})
}
