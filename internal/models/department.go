package models

import (
	"sort"
	"strings"
	"time"
)

// Department is an organizational unit within a company. Code is immutable
// after creation. ApprovalOrder positions the department in the approval
// chain; departments without one sort last.
type Department struct {
	ID                string             `json:"id"`
	CompanyID         string             `json:"companyId"`
	Name              string             `json:"name"`
	Code              string             `json:"code"`
	Description       *string            `json:"description,omitempty"`
	ApprovalAuthority bool               `json:"approvalAuthority"`
	RequiredRole      *string            `json:"requiredRole,omitempty"`
	ApprovalOrder     *int               `json:"approvalOrder,omitempty"`
	Settings          DepartmentSettings `json:"settings"`
	IsActive          bool               `json:"isActive"`
	MemberCount       int                `json:"memberCount"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
	DeletedAt         *time.Time         `json:"deletedAt,omitempty"`
	DeletionReason    *string            `json:"deletionReason,omitempty"`
}

// DepartmentSettings tunes how a department participates in work-permit
// approvals. MaxApprovalTimeHours unset means no time limit.
type DepartmentSettings struct {
	RequiresComments     bool `json:"requiresComments"`
	MaxApprovalTimeHours *int `json:"maxApprovalTimeHours,omitempty"`
}

// DepartmentRequest creates or updates a department. On update the code field
// is ignored by the handler; it stays whatever it was at creation.
type DepartmentRequest struct {
	Name              string             `json:"name"`
	Code              string             `json:"code"`
	Description       *string            `json:"description,omitempty"`
	ApprovalAuthority bool               `json:"approvalAuthority"`
	RequiredRole      *string            `json:"requiredRole,omitempty"`
	ApprovalOrder     *int               `json:"approvalOrder,omitempty"`
	Settings          DepartmentSettings `json:"settings"`
}

var validApprovalRoles = map[string]bool{
	"reviewer": true, "admin": true, "super_admin": true,
}

// Validate checks field-level constraints. Uniqueness of name and code is
// checked separately against the company's active departments.
func (r *DepartmentRequest) Validate() map[string]string {
	errors := map[string]string{}

	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	code := strings.TrimSpace(r.Code)
	if code == "" {
		errors["code"] = "Code is required"
	} else if len(code) > 10 {
		errors["code"] = "Code must be 10 characters or fewer"
	}

	if r.ApprovalAuthority {
		if r.RequiredRole == nil || *r.RequiredRole == "" {
			errors["requiredRole"] = "Required role must be set when the department has approval authority"
		} else if !validApprovalRoles[*r.RequiredRole] {
			errors["requiredRole"] = "Required role must be one of: reviewer, admin, super_admin"
		}
	}

	if r.ApprovalOrder != nil && (*r.ApprovalOrder < 1 || *r.ApprovalOrder > 99) {
		errors["approvalOrder"] = "Approval order must be between 1 and 99"
	}

	if h := r.Settings.MaxApprovalTimeHours; h != nil && *h <= 0 {
		errors["maxApprovalTimeHours"] = "Max approval time must be a positive number of hours"
	}

	return errors
}

// HasDuplicateCode reports whether another active department in the list uses
// the same code, comparing case-insensitively. excludeID skips the department
// being edited.
func HasDuplicateCode(departments []Department, code, excludeID string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, d := range departments {
		if d.ID == excludeID || !d.IsActive {
			continue
		}
		if strings.ToLower(d.Code) == code {
			return true
		}
	}
	return false
}

// HasDuplicateName is the case-insensitive name counterpart of
// HasDuplicateCode.
func HasDuplicateName(departments []Department, name, excludeID string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range departments {
		if d.ID == excludeID || !d.IsActive {
			continue
		}
		if strings.ToLower(d.Name) == name {
			return true
		}
	}
	return false
}

// unsetApprovalOrder sorts after every explicit order (valid range is 1-99).
const unsetApprovalOrder = 99

// SortByApprovalOrder orders departments by approval order ascending, with
// missing orders treated as 99. Ties keep their relative order so repeated
// calls are stable.
func SortByApprovalOrder(departments []Department) {
	sort.SliceStable(departments, func(i, j int) bool {
		return approvalOrderOf(departments[i]) < approvalOrderOf(departments[j])
	})
}

func approvalOrderOf(d Department) int {
	if d.ApprovalOrder == nil {
		return unsetApprovalOrder
	}
	return *d.ApprovalOrder
}

// DeleteDepartmentRequest soft-deletes a department. The reason is optional;
// when given it is kept for the audit trail.
type DeleteDepartmentRequest struct {
	Reason string `json:"reason"`
}

// AssignUsersRequest batch-assigns users to a department.
type AssignUsersRequest struct {
	UserIDs []string `json:"userIds"`
}

// Validate requires at least one user.
func (r *AssignUsersRequest) Validate() map[string]string {
	errors := map[string]string{}
	if len(r.UserIDs) == 0 {
		errors["userIds"] = "At least one user is required"
	}
	return errors
}
