package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windaep/windaep/internal/auth"
)

func newService(key, issuer, audience string) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{SigningKey: key, Issuer: issuer, Audience: audience})
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := newService("test-secret-key-for-testing-only", "windaep", "windaep-admin")

	token, expiresAt, err := svc.Issue("ops@example.com", auth.RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultTokenTTL), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, "windaep", claims.Issuer)
	assert.True(t, claims.HasRole(auth.RoleAdmin))
	assert.False(t, claims.HasRole("viewer"))
}

func TestJWTService_InvalidTokens(t *testing.T) {
	svc := newService("test-secret-key-for-testing-only", "windaep", "windaep-admin")

	for name, token := range map[string]string{
		"empty token":     "",
		"malformed token": "not.a.valid.jwt",
		"invalid base64":  "xxx.yyy.zzz",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestJWTService_Mismatches(t *testing.T) {
	issuer := newService("key-one", "windaep", "windaep-admin")
	token, _, err := issuer.Issue("ops", auth.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name string
		svc  *auth.JWTService
	}{
		{"wrong signing key", newService("key-two", "windaep", "windaep-admin")},
		{"wrong issuer", newService("key-one", "someone-else", "windaep-admin")},
		{"wrong audience", newService("key-one", "windaep", "other-api")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Validate(token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestJWTService_Expired(t *testing.T) {
	key := "test-key"
	past := time.Now().Add(-2 * time.Hour)
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "windaep",
			Subject:   "ops",
			Audience:  jwt.ClaimStrings{"windaep-admin"},
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		},
		Role: auth.RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)

	_, err = newService(key, "windaep", "windaep-admin").Validate(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "windaep",
			Audience:  jwt.ClaimStrings{"windaep-admin"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: auth.RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newService("key", "windaep", "windaep-admin").Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTService_MissingKey(t *testing.T) {
	svc := newService("", "windaep", "windaep-admin")

	_, _, err := svc.Issue("ops", auth.RoleAdmin)
	assert.ErrorIs(t, err, auth.ErrMissingKey)

	_, err = svc.Validate("a.b.c")
	assert.ErrorIs(t, err, auth.ErrMissingKey)
}
