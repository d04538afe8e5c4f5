package models

import (
	"encoding/json"
	"strings"
	"time"
)

// FormTemplate is a reusable form definition (inspection checklists, incident
// reports and the like). Fields holds the field definitions as a JSON array;
// the server stores it opaquely and validates only that it parses.
type FormTemplate struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description *string         `json:"description,omitempty"`
	Fields      json.RawMessage `json:"fields"`
	Version     int             `json:"version"`
	IsActive    bool            `json:"isActive"`
	CreatedBy   *string         `json:"createdBy,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// FormTemplateRequest creates or updates a template.
type FormTemplateRequest struct {
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description *string         `json:"description,omitempty"`
	Fields      json.RawMessage `json:"fields"`
}

// Validate checks required fields and that Fields is a JSON array.
func (r *FormTemplateRequest) Validate() map[string]string {
	errors := map[string]string{}

	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if strings.TrimSpace(r.Category) == "" {
		errors["category"] = "Category is required"
	}

	if len(r.Fields) == 0 {
		errors["fields"] = "At least one field definition is required"
	} else {
		var fields []json.RawMessage
		if err := json.Unmarshal(r.Fields, &fields); err != nil {
			errors["fields"] = "Fields must be a JSON array"
		} else if len(fields) == 0 {
			errors["fields"] = "At least one field definition is required"
		}
	}

	return errors
}
