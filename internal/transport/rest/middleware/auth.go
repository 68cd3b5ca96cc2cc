package middleware

import (
	"context"
	"net/http"
	"strings"

	"edulearn/internal/model"
	"edulearn/internal/service"
)

type contextKey string

const principalKey contextKey = "principal"

// AuthMiddleware provides JWT authentication middleware.
type AuthMiddleware struct {
	authSvc service.TokenValidator
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(authSvc service.TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireTeacher validates a teacher JWT from the Authorization header.
func (m *AuthMiddleware) RequireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		principal, err := m.authSvc.Validate(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}
		if principal.Role != model.RoleTeacher {
			http.Error(w, `{"error":"teacher role required"}`, http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetPrincipal extracts the authenticated principal from the context.
func GetPrincipal(ctx context.Context) *model.Principal {
	if v := ctx.Value(principalKey); v != nil {
		return v.(*model.Principal)
	}
	return nil
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
