package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safework-backend/internal/ctxkeys"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret, userID, role string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"role":   role,
		"exp":    time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthValidToken(t *testing.T) {
	var gotUserID, gotRole string
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value(ctxkeys.UserID).(string)
		gotRole, _ = r.Context().Value(ctxkeys.UserRole).(string)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(signedToken(t, testSecret, "user-1", "reviewer", time.Hour)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", gotUserID)
	assert.Equal(t, "reviewer", gotRole)
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Token abc123")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(signedToken(t, "other-secret", "user-1", "viewer", time.Hour)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(signedToken(t, testSecret, "user-1", "viewer", -time.Minute)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsMissingUserID(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(signed))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsUnknownRole(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(signedToken(t, testSecret, "user-1", "owner", time.Hour)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireMinRole(t *testing.T) {
	tests := []struct {
		userRole, minRole string
		wantStatus        int
	}{
		{"viewer", "viewer", http.StatusOK},
		{"viewer", "reviewer", http.StatusForbidden},
		{"reviewer", "reviewer", http.StatusOK},
		{"reviewer", "admin", http.StatusForbidden},
		{"admin", "reviewer", http.StatusOK},
		{"admin", "super_admin", http.StatusForbidden},
		{"super_admin", "admin", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.userRole+" needs "+tt.minRole, func(t *testing.T) {
			chain := Auth(testSecret)(RequireMinRole(tt.minRole)(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {})))

			rec := httptest.NewRecorder()
			chain.ServeHTTP(rec, authedRequest(signedToken(t, testSecret, "user-1", tt.userRole, time.Hour)))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
