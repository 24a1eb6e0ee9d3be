package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/RestaurantPOS/pkg/httputil"
)

type contextKeyType string

const (
	staffIDKey contextKeyType = "staff_id"
	roleKey    contextKeyType = "role"
)

// AnonKeyHeader carries the shared key accepted on the mock payment route.
const AnonKeyHeader = "X-Anon-Key"

// RoleAnonymous is assigned to callers authenticated only by the anon key.
const RoleAnonymous = "anon"

// Claims is the authenticated identity of a staff member.
type Claims struct {
	StaffID string `json:"staff_id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

// TokenValidator validates a bearer token and returns its claims. Token
// issuance lives outside this service; any validator can be plugged in.
type TokenValidator func(token string) (*Claims, error)

type staffClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTValidator validates HS256 tokens signed with secret. The staff id is
// taken from the "sub" claim.
func NewJWTValidator(secret string) TokenValidator {
	key := []byte(secret)
	return func(tokenString string) (*Claims, error) {
		var sc staffClaims
		_, err := jwt.ParseWithClaims(tokenString, &sc, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		if sc.Subject == "" {
			return nil, errors.New("token has no subject")
		}
		return &Claims{StaffID: sc.Subject, Name: sc.Name, Role: sc.Role}, nil
	}
}

// Auth requires a valid bearer token and stores the staff claims in context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return AuthOrAnonKey(validate, "")
}

// AuthOrAnonKey accepts either a valid bearer token or, when anonKey is
// non-empty, a matching X-Anon-Key header.
func AuthOrAnonKey(validate TokenValidator, anonKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if anonKey != "" {
				if got := r.Header.Get(AnonKeyHeader); got != "" {
					if subtle.ConstantTimeCompare([]byte(got), []byte(anonKey)) != 1 {
						writeAuthError(w, http.StatusUnauthorized, "invalid anon key")
						return
					}
					ctx := context.WithValue(r.Context(), roleKey, RoleAnonymous)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				writeAuthError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := validate(token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), staffIDKey, claims.StaffID)
			ctx = context.WithValue(ctx, roleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not listed.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := roleSet[RoleFromContext(r.Context())]; !ok {
				writeAuthError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StaffIDFromContext returns the authenticated staff id, or "".
func StaffIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(staffIDKey).(string); ok {
		return id
	}
	return ""
}

// RoleFromContext returns the authenticated role, or "".
func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey).(string); ok {
		return role
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	code := "UNAUTHORIZED"
	if status == http.StatusForbidden {
		code = "FORBIDDEN"
	}
	httputil.WriteJSON(w, status, httputil.ErrorBody{Error: message, Code: code})
}
