package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nti-labs/webhooks/internal/domain"
)

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// principalClaims is the HMAC-signed claim set carried by a caller's bearer
// token: just enough to resolve a domain.Principal via Authentication.
type principalClaims struct {
	PrincipalID string `json:"principal_id"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies bearer tokens signed with an HMAC secret obtained
// lazily via getSecret, so callers can rotate it without reconstructing the
// middleware.
type AuthMiddleware struct {
	getSecret func() ([]byte, error)
}

// NewAuthMiddleware constructs an AuthMiddleware that resolves its signing
// secret on every request via getSecret.
func NewAuthMiddleware(getSecret func() ([]byte, error)) *AuthMiddleware {
	return &AuthMiddleware{getSecret: getSecret}
}

// RequireAuth verifies the request's Bearer token and, on success, stores
// the resolved principal id on the request context under
// domain.PrincipalIDKey.
func (am *AuthMiddleware) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSONError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			secret, err := am.getSecret()
			if err != nil {
				writeJSONError(w, "Authentication is not configured", http.StatusInternalServerError)
				return
			}

			claims := &principalClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				writeJSONError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			if claims.PrincipalID == "" {
				writeJSONError(w, "Principal id not found in token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), domain.PrincipalIDKey, claims.PrincipalID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the principal id a prior RequireAuth call
// stored on ctx, if any.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(domain.PrincipalIDKey).(string)
	return id, ok
}
