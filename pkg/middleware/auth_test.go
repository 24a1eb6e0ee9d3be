package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func staffToken(t *testing.T, sub, role string, exp time.Time) string {
	return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub":  sub,
		"name": "Priya",
		"role": role,
		"exp":  jwt.NewNumericDate(exp),
	})
}

// --- NewJWTValidator ---

func TestJWTValidator_ValidToken(t *testing.T) {
	validate := NewJWTValidator(testSecret)

	claims, err := validate(staffToken(t, "staff-1", "cashier", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.StaffID)
	assert.Equal(t, "cashier", claims.Role)
	assert.Equal(t, "Priya", claims.Name)
}

func TestJWTValidator_Rejects(t *testing.T) {
	validate := NewJWTValidator(testSecret)

	tests := map[string]string{
		"expired":     staffToken(t, "staff-1", "cashier", time.Now().Add(-time.Minute)),
		"wrong key":   signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "x"}),
		"no subject":  signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"role": "cashier"}),
		"wrong alg":   signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "x"}),
		"not a token": "abc.def",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := validate(token)
			assert.Error(t, err)
		})
	}
}

// --- Auth / AuthOrAnonKey ---

func identityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Staff", StaffIDFromContext(r.Context()))
		w.Header().Set("X-Role", RoleFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuth_ValidBearer(t *testing.T) {
	h := Auth(NewJWTValidator(testSecret))(identityHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "staff-9", "manager", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "staff-9", rec.Header().Get("X-Staff"))
	assert.Equal(t, "manager", rec.Header().Get("X-Role"))
}

func TestAuth_MissingOrMalformedHeader(t *testing.T) {
	h := Auth(NewJWTValidator(testSecret))(identityHandler())

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer "} {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Contains(t, rec.Body.String(), `"error":`)
	}
}

func TestAuth_IgnoresAnonKeyWhenNotConfigured(t *testing.T) {
	h := Auth(NewJWTValidator(testSecret))(identityHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/payments/mock", nil)
	req.Header.Set(AnonKeyHeader, "anything")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthOrAnonKey(t *testing.T) {
	h := AuthOrAnonKey(NewJWTValidator(testSecret), "pos-anon")(identityHandler())

	t.Run("matching key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/mock", nil)
		req.Header.Set(AnonKeyHeader, "pos-anon")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, RoleAnonymous, rec.Header().Get("X-Role"))
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/mock", nil)
		req.Header.Set(AnonKeyHeader, "guess")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer still works", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/mock", nil)
		req.Header.Set("Authorization", "Bearer "+staffToken(t, "staff-2", "cashier", time.Now().Add(time.Hour)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "staff-2", rec.Header().Get("X-Staff"))
	})
}

func TestRequireRole(t *testing.T) {
	h := Auth(NewJWTValidator(testSecret))(RequireRole("manager")(identityHandler()))

	req := httptest.NewRequest(http.MethodPost, "/api/orders/o-1/cancel", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, "staff-3", "cashier", time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")
}
