package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// Identity is the authenticated caller
type Identity struct {
	ID    uint
	Email string
	Role  string
}

// IsAdmin reports whether the caller holds the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// IdentityFrom returns the caller stored by AuthMiddleware
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(UserContextKey).(Identity)
	return id, ok
}

// WithIdentity stores a caller in ctx
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, UserContextKey, id)
}

// IdentityFromClaims converts access-token claims into an Identity
func IdentityFromClaims(claims jwt.MapClaims) (Identity, bool) {
	if t, _ := claims["type"].(string); t != "" && t != utils.TokenTypeAccess {
		return Identity{}, false
	}
	rawID, ok := claims["id"].(float64)
	if !ok || rawID <= 0 {
		return Identity{}, false
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return Identity{ID: uint(rawID), Email: email, Role: role}, true
}

// bearerToken reads the token from the Authorization header, or from the
// token query parameter for websocket upgrades.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, true
		}
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware verifies JWT access tokens
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			claims, err := utils.ValidateToken(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			id, ok := IdentityFromClaims(claims)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Invalid token claims")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin rejects callers without the admin role
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !id.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
