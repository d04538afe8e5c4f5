package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepartmentRequestValidate(t *testing.T) {
	role := "admin"
	badRole := "viewer"
	order := 5
	lowOrder := 0
	highOrder := 100
	hours := 48
	zeroHours := 0

	tests := []struct {
		name      string
		req       DepartmentRequest
		wantField string // "" means valid
	}{
		{"valid minimal", DepartmentRequest{Name: "Electrical", Code: "ELEC"}, ""},
		{"valid with approval authority", DepartmentRequest{Name: "Safety", Code: "SAF", ApprovalAuthority: true, RequiredRole: &role, ApprovalOrder: &order}, ""},
		{"missing name", DepartmentRequest{Code: "ELEC"}, "name"},
		{"blank name", DepartmentRequest{Name: "   ", Code: "ELEC"}, "name"},
		{"missing code", DepartmentRequest{Name: "Electrical"}, "code"},
		{"code too long", DepartmentRequest{Name: "Electrical", Code: "ELECTRICALX"}, "code"},
		{"code at limit is fine", DepartmentRequest{Name: "Electrical", Code: "ELECTRICAL"}, ""},
		{"approval authority without role", DepartmentRequest{Name: "Safety", Code: "SAF", ApprovalAuthority: true}, "requiredRole"},
		{"approval authority with invalid role", DepartmentRequest{Name: "Safety", Code: "SAF", ApprovalAuthority: true, RequiredRole: &badRole}, "requiredRole"},
		{"approval order below range", DepartmentRequest{Name: "Safety", Code: "SAF", ApprovalOrder: &lowOrder}, "approvalOrder"},
		{"approval order above range", DepartmentRequest{Name: "Safety", Code: "SAF", ApprovalOrder: &highOrder}, "approvalOrder"},
		{"settings with approval time", DepartmentRequest{Name: "Safety", Code: "SAF", Settings: DepartmentSettings{RequiresComments: true, MaxApprovalTimeHours: &hours}}, ""},
		{"non-positive approval time", DepartmentRequest{Name: "Safety", Code: "SAF", Settings: DepartmentSettings{MaxApprovalTimeHours: &zeroHours}}, "maxApprovalTimeHours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.req.Validate()
			if tt.wantField == "" {
				assert.Empty(t, errs)
			} else {
				assert.Contains(t, errs, tt.wantField)
			}
		})
	}
}

func deptList() []Department {
	return []Department{
		{ID: "d1", Name: "Electrical", Code: "ELEC", IsActive: true},
		{ID: "d2", Name: "Safety", Code: "SAF", IsActive: true},
		{ID: "d3", Name: "Welding", Code: "WELD", IsActive: false},
	}
}

func TestHasDuplicateCode(t *testing.T) {
	depts := deptList()

	assert.True(t, HasDuplicateCode(depts, "ELEC", ""))
	assert.True(t, HasDuplicateCode(depts, "elec", ""), "comparison is case-insensitive")
	assert.True(t, HasDuplicateCode(depts, "  elec  ", ""))
	assert.False(t, HasDuplicateCode(depts, "HVAC", ""))
	assert.False(t, HasDuplicateCode(depts, "WELD", ""), "inactive departments do not count")
	assert.False(t, HasDuplicateCode(depts, "ELEC", "d1"), "the department being edited is excluded")
	assert.True(t, HasDuplicateCode(depts, "ELEC", "d2"), "excluding a different department changes nothing")
}

func TestHasDuplicateName(t *testing.T) {
	depts := deptList()

	assert.True(t, HasDuplicateName(depts, "electrical", ""))
	assert.False(t, HasDuplicateName(depts, "Welding", ""), "inactive departments do not count")
	assert.False(t, HasDuplicateName(depts, "Safety", "d2"))
	assert.False(t, HasDuplicateName(depts, "Plumbing", ""))
}

func TestSortByApprovalOrder(t *testing.T) {
	one, three, ninetyNine := 1, 3, 99
	depts := []Department{
		{ID: "no-order-a"},
		{ID: "third", ApprovalOrder: &three},
		{ID: "first", ApprovalOrder: &one},
		{ID: "explicit-99", ApprovalOrder: &ninetyNine},
		{ID: "no-order-b"},
	}

	SortByApprovalOrder(depts)

	ids := make([]string, len(depts))
	for i, d := range depts {
		ids[i] = d.ID
	}
	// Missing orders are treated as 99 and keep their relative order.
	assert.Equal(t, []string{"first", "third", "no-order-a", "explicit-99", "no-order-b"}, ids)
}

func TestDepartmentSettingsJSON(t *testing.T) {
	var req DepartmentRequest
	err := json.Unmarshal([]byte(`{
		"name": "Safety", "code": "SAF",
		"settings": {"requiresComments": true, "maxApprovalTimeHours": 72}
	}`), &req)

	require.NoError(t, err)
	assert.True(t, req.Settings.RequiresComments)
	require.NotNil(t, req.Settings.MaxApprovalTimeHours)
	assert.Equal(t, 72, *req.Settings.MaxApprovalTimeHours)

	// Omitted settings default to no comment requirement and no time limit.
	var bare DepartmentRequest
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Safety", "code": "SAF"}`), &bare))
	assert.False(t, bare.Settings.RequiresComments)
	assert.Nil(t, bare.Settings.MaxApprovalTimeHours)
	assert.Empty(t, bare.Validate())
}

func TestAssignUsersRequestValidate(t *testing.T) {
	assert.Contains(t, (&AssignUsersRequest{}).Validate(), "userIds")
	assert.Empty(t, (&AssignUsersRequest{UserIDs: []string{"u1"}}).Validate())
}
