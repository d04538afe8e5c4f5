package handlers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"safework-backend/internal/ctxkeys"
)

// appendCompanyScope adds a company_id scope filter to a dynamic WHERE clause.
// colExpr is the SQL column expression to filter on (e.g. "uv.company_id", "c.id").
// If the user has global scope (admin/super_admin), nothing is added.
func appendCompanyScope(ctx context.Context, where string, args []interface{}, argIdx int, colExpr string) (string, []interface{}, int) {
	scope := ctxkeys.GetCompanyScope(ctx)
	if scope == nil {
		return where, args, argIdx
	}
	where += fmt.Sprintf(" AND %s = ANY($%d)", colExpr, argIdx)
	args = append(args, scope)
	argIdx++
	return where, args, argIdx
}

// checkCompanyAccess verifies that the given companyID is within the user's scope.
func checkCompanyAccess(ctx context.Context, companyID string) bool {
	scope := ctxkeys.GetCompanyScope(ctx)
	if scope == nil {
		return true
	}
	for _, id := range scope {
		if id == companyID {
			return true
		}
	}
	return false
}

// checkSubmissionAccess looks up the submission's company and checks scope.
func checkSubmissionAccess(ctx context.Context, pool *pgxpool.Pool, submissionID string) bool {
	if ctxkeys.IsGlobalScope(ctx) {
		return true
	}
	var companyID string
	err := pool.QueryRow(ctx,
		"SELECT company_id::text FROM user_verifications WHERE id = $1",
		submissionID,
	).Scan(&companyID)
	if err != nil {
		return false
	}
	return checkCompanyAccess(ctx, companyID)
}

