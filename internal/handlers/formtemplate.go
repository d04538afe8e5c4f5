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

// FormTemplateHandler provides CRUD for reusable form templates.
type FormTemplateHandler struct {
	db database.Service
}

func NewFormTemplateHandler(db database.Service) *FormTemplateHandler {
	return &FormTemplateHandler{db: db}
}

const tmplCols = `id, name, category, description, fields, version,
	is_active, created_by::text, created_at, updated_at`

// scanTemplate reads all FormTemplate columns from a row/rows scanner.
func scanTemplate(scanner interface {
	Scan(dest ...interface{}) error
}, t *models.FormTemplate) error {
	var fieldsRaw string
	err := scanner.Scan(
		&t.ID, &t.Name, &t.Category, &t.Description, &fieldsRaw, &t.Version,
		&t.IsActive, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	t.Fields = json.RawMessage(fieldsRaw)
	return nil
}

// List handles GET /api/form-templates?category=&includeInactive=
func (h *FormTemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	query := fmt.Sprintf(`SELECT %s FROM form_templates`, tmplCols)
	where := []string{}
	args := []interface{}{}

	if r.URL.Query().Get("includeInactive") != "true" {
		where = append(where, "is_active")
	}
	if category := r.URL.Query().Get("category"); category != "" {
		args = append(args, category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += ` ORDER BY category ASC, name ASC`

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Failed to list form templates: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch form templates")
		return
	}
	defer rows.Close()

	templates := []models.FormTemplate{}
	for rows.Next() {
		var t models.FormTemplate
		if err := scanTemplate(rows, &t); err != nil {
			log.Printf("Failed to scan form template: %v", err)
			continue
		}
		templates = append(templates, t)
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": templates})
}

// GetByID handles GET /api/form-templates/{id}
func (h *FormTemplateHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Template ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var t models.FormTemplate
	row := h.db.GetPool().QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM form_templates WHERE id = $1`, tmplCols), id)
	if err := scanTemplate(row, &t); err != nil {
		JSONError(w, http.StatusNotFound, "Form template not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": t})
}

// Create handles POST /api/form-templates
func (h *FormTemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.FormTemplateRequest
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

	var t models.FormTemplate
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO form_templates (name, category, description, fields, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s
	`, tmplCols),
		req.Name, req.Category, req.Description, string(req.Fields), nilIfEmpty(userID),
	)
	if err := scanTemplate(row, &t); err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A template with this name already exists in this category")
			return
		}
		log.Printf("Failed to create form template: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create form template")
		return
	}

	go logActivity(pool, userID, "created", "form_template", t.ID, map[string]interface{}{
		"name": t.Name, "category": t.Category,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    t,
		"message": "Form template created successfully",
	})
}

// Update handles PUT /api/form-templates/{id}
// Each update bumps the template version.
func (h *FormTemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Template ID is required")
		return
	}

	var req models.FormTemplateRequest
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

	var t models.FormTemplate
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE form_templates SET
			name = $1, category = $2, description = $3, fields = $4,
			version = version + 1, updated_at = NOW()
		WHERE id = $5
		RETURNING %s
	`, tmplCols),
		req.Name, req.Category, req.Description, string(req.Fields), id,
	)
	if err := scanTemplate(row, &t); err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A template with this name already exists in this category")
			return
		}
		JSONError(w, http.StatusNotFound, "Form template not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "updated", "form_template", t.ID, map[string]interface{}{
		"name": t.Name, "version": t.Version,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    t,
		"message": "Form template updated successfully",
	})
}

// Delete handles DELETE /api/form-templates/{id}
func (h *FormTemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Template ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, `DELETE FROM form_templates WHERE id = $1`, id)
	if err != nil {
		log.Printf("Failed to delete form template %s: %v", id, err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete form template")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Form template not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	go logActivity(pool, userID, "deleted", "form_template", id, nil)

	JSON(w, http.StatusOK, map[string]interface{}{"message": "Form template deleted successfully"})
}

// ToggleStatus handles PUT /api/form-templates/{id}/toggle-status
func (h *FormTemplateHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Template ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var t models.FormTemplate
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE form_templates SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, tmplCols), id)
	if err := scanTemplate(row, &t); err != nil {
		JSONError(w, http.StatusNotFound, "Form template not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	action := "activated"
	if !t.IsActive {
		action = "deactivated"
	}
	go logActivity(pool, userID, action, "form_template", id, nil)

	JSON(w, http.StatusOK, map[string]interface{}{
		"data":    t,
		"message": "Form template status updated",
	})
}

// Clone handles POST /api/form-templates/{id}/clone
// The copy starts inactive at version 1 with "(Copy)" appended to its name.
func (h *FormTemplateHandler) Clone(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Template ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	var t models.FormTemplate
	row := pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO form_templates (name, category, description, fields, is_active, created_by)
		SELECT name || ' (Copy)', category, description, fields, FALSE, $2
		FROM form_templates WHERE id = $1
		RETURNING %s
	`, tmplCols), id, nilIfEmpty(userID))
	if err := scanTemplate(row, &t); err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A copy of this template already exists")
			return
		}
		JSONError(w, http.StatusNotFound, "Form template not found")
		return
	}

	go logActivity(pool, userID, "cloned", "form_template", t.ID, map[string]interface{}{
		"sourceId": id,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"data":    t,
		"message": "Form template cloned successfully",
	})
}

// Categories handles GET /api/form-templates/categories
func (h *FormTemplateHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := h.db.GetPool().Query(ctx, `
		SELECT DISTINCT category FROM form_templates
		WHERE is_active
		ORDER BY category ASC
	`)
	if err != nil {
		log.Printf("Failed to list template categories: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch categories")
		return
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if rows.Scan(&c) == nil {
			categories = append(categories, c)
		}
	}

	JSON(w, http.StatusOK, map[string]interface{}{"data": categories})
}
