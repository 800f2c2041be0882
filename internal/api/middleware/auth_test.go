package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windaep/windaep/internal/api/middleware"
	"github.com/windaep/windaep/internal/auth"
)

func jwtService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "middleware-test-secret",
		Issuer:     "windaep",
		Audience:   "windaep-admin",
	})
}

func protected(t *testing.T, role string) (http.Handler, *auth.Claims) {
	t.Helper()
	var got auth.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := middleware.GetClaims(r.Context()); c != nil {
			got = *c
		}
		w.WriteHeader(http.StatusNoContent)
	})
	h := middleware.Auth(jwtService())(next)
	if role != "" {
		h = middleware.Auth(jwtService())(middleware.RequireRole(role)(next))
	}
	return h, &got
}

func TestAuth(t *testing.T) {
	admin, _, err := jwtService().Issue("ops@example.com", auth.RoleAdmin)
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "windaep",
			Audience:  jwt.ClaimStrings{"windaep-admin"},
			Subject:   "ops@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: auth.RoleAdmin,
	}).SignedString([]byte("middleware-test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		detail string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing authorization header"},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "invalid authorization header format"},
		{"empty token", "Bearer   ", http.StatusUnauthorized, "missing bearer token"},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, "invalid access token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "access token has expired"},
		{"valid", "Bearer " + admin, http.StatusNoContent, ""},
		{"lowercase scheme", "bearer " + admin, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, claims := protected(t, "")
			req := httptest.NewRequest(http.MethodPut, "/v1/admin/turbines/x", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.detail != "" {
				assert.Contains(t, rec.Body.String(), tt.detail)
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
				return
			}
			assert.Equal(t, "ops@example.com", claims.Subject)
		})
	}
}

func TestRequireRole(t *testing.T) {
	viewer, _, err := jwtService().Issue("viewer@example.com", "viewer")
	require.NoError(t, err)
	admin, _, err := jwtService().Issue("ops@example.com", auth.RoleAdmin)
	require.NoError(t, err)

	h, _ := protected(t, auth.RoleAdmin)

	req := httptest.NewRequest(http.MethodPut, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+viewer)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireRole_WithoutAuth(t *testing.T) {
	h := middleware.RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, middleware.GetSubject(httptest.NewRequest(http.MethodGet, "/", http.NoBody).Context()))
}
