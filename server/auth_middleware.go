package server

import (
	"context"
	"net/http"
	"strings"

	autherrors "github.com/jrsteele09/go-property-auth/internal/errors"
	"github.com/jrsteele09/go-property-auth/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyRequestID stores the request id
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyClaims stores the verified token claims
	ContextKeyClaims ContextKey = "claims"
	// ContextKeyUser stores the authenticated user
	ContextKeyUser ContextKey = "user"
	// ContextKeyToken stores the raw bearer token
	ContextKeyToken ContextKey = "token"
)

// RequireAuth is middleware that validates a Bearer access token and loads its user.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}

			claims, err := s.issuer.Verify(r.Context(), raw)
			if err != nil {
				message := "Not authorized to access this route"
				switch {
				case autherrors.Is(err, autherrors.ErrTokenExpired):
					message = "Session expired"
				case !autherrors.Is(err, autherrors.ErrInvalidToken) && !autherrors.Is(err, autherrors.ErrTokenRevoked):
					logError(r.Method, r.URL.Path, err.Error())
				}
				writeError(w, http.StatusUnauthorized, message)
				return
			}

			user, err := s.users.GetByID(claims.Subject)
			if err != nil || !user.IsActive {
				writeError(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			ctx = context.WithValue(ctx, ContextKeyUser, user)
			ctx = context.WithValue(ctx, ContextKeyToken, raw)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole is middleware that allows only the given roles.
// Should be chained after RequireAuth to ensure the user is present
func (s *Server) RequireRole(roles ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user := userFromContext(r.Context())
			if !user.HasAnyRole(roles...) {
				role := "anonymous"
				if user != nil {
					role = string(user.Role)
				}
				writeError(w, http.StatusForbidden, "User role "+role+" is not authorized to access this route")
				return
			}
			next(w, r)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	raw := strings.TrimSpace(parts[1])
	return raw, raw != ""
}

func userFromContext(ctx context.Context) *users.User {
	user, _ := ctx.Value(ContextKeyUser).(*users.User)
	return user
}
