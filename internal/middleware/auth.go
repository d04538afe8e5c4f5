// Package middleware provides HTTP middleware for authentication,
// authorization, and company scoping.
package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"safework-backend/internal/ctxkeys"
)

// Auth validates the bearer token from the Authorization header and injects
// the user's ID and role into the request context. Tokens are HS256-signed;
// any other algorithm is rejected before signature verification.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authorization header required. Use: Bearer <token>")
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			userID, _ := claims["userId"].(string)
			role, _ := claims["role"].(string)
			if userID == "" || !ctxkeys.ValidRoles[role] {
				writeError(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			ctx := context.WithValue(r.Context(), ctxkeys.UserID, userID)
			ctx = context.WithValue(ctx, ctxkeys.UserRole, role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireMinRole restricts access to users at or above the given role.
// Role hierarchy: super_admin > admin > reviewer > viewer.
func RequireMinRole(minRole string) func(http.Handler) http.Handler {
	minLevel := ctxkeys.RoleLevel[minRole]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole, _ := r.Context().Value(ctxkeys.UserRole).(string)

			if ctxkeys.RoleLevel[userRole] < minLevel {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// InjectCompanyScope resolves which companies the current user may see and
// stores the ID list in the request context. Admin and super_admin get a nil
// scope, meaning every company. Must run after Auth.
func InjectCompanyScope(pool *pgxpool.Pool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole, _ := r.Context().Value(ctxkeys.UserRole).(string)
			if ctxkeys.RoleLevel[userRole] >= ctxkeys.RoleLevel["admin"] {
				next.ServeHTTP(w, r)
				return
			}

			userID := ctxkeys.GetUserID(r.Context())

			rows, err := pool.Query(r.Context(),
				`SELECT company_id::text FROM user_companies WHERE user_id = $1`, userID)
			if err != nil {
				log.Printf("[scope] failed to query user_companies for %s: %v", userID, err)
				writeError(w, http.StatusInternalServerError, "Failed to resolve company access")
				return
			}
			defer rows.Close()

			// An empty (non-nil) slice means "no companies", distinct from the
			// nil global scope above.
			ids := []string{}
			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					continue
				}
				ids = append(ids, id)
			}

			ctx := context.WithValue(r.Context(), ctxkeys.CompanyScope, ids)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
