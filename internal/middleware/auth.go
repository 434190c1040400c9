package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"kusina-order-service/internal/auth"
)

type contextKey string

const authContextKey contextKey = "authContext"

type AuthContext struct {
	UserID   string
	Role     auth.StaffRole
	Username string
	Name     string
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	value := ctx.Value(authContextKey)
	if value == nil {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "UNAUTHORIZED",
		"message": message,
	})
}

// StaffAuth verifies the bearer token and restricts the route to the given
// roles. No roles means any authenticated staff member.
func StaffAuth(jwtSecret string, roles ...auth.StaffRole) func(http.Handler) http.Handler {
	allowed := make(map[auth.StaffRole]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			claims, err := auth.VerifyAccessToken(token, jwtSecret)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			if len(allowed) > 0 && !allowed[claims.Role] {
				writeAuthError(w, http.StatusForbidden, "Insufficient role")
				return
			}

			authCtx := &AuthContext{
				UserID:   claims.UserID,
				Role:     claims.Role,
				Username: claims.Username,
				Name:     claims.Name,
			}
			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}
