package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lojapijamas/storefront/internal/models"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
)

type contextKey string

// UserContextKey is the key for storing user claims in context.
const UserContextKey contextKey = "user"

// ExtractToken returns the bearer token from the Authorization header, falling
// back to the session cookie.
func ExtractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// AuthMiddleware validates the session token and injects its claims into the context.
func AuthMiddleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r)
			if tokenString == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				pkghttp.WriteUnauthorized(w, "Token não fornecido.")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				if errors.Is(err, ErrTokenExpired) {
					pkghttp.WriteUnauthorized(w, "Token expirado.")
					return
				}
				pkghttp.WriteUnauthorized(w, "Token inválido.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects requests whose claims do not carry role. Must run after AuthMiddleware.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "Não autenticado.")
				return
			}
			if claims.Role != role {
				pkghttp.WriteForbidden(w, "Acesso negado.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is RequireRole for the admin role.
func RequireAdmin() func(next http.Handler) http.Handler {
	return RequireRole(models.RoleAdmin)
}

func WithClaims(ctx context.Context, claims *models.TokenClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
