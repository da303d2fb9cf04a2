package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Dan9191/adboard/internal/auth"
	"github.com/Dan9191/adboard/internal/models"
	"github.com/Dan9191/adboard/internal/service"
)

// TokenCookie is the cookie consulted when no Authorization header is sent
const TokenCookie = "token"

// Authenticator resolves a raw bearer token to a user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error)
}

// BearerToken extracts the token from the Authorization header, falling
// back to the token cookie. The header wins when both are present.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer") {
		if parts := strings.Fields(h); len(parts) == 2 {
			return parts[1]
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate rejects requests without a valid token and attaches the
// resolved user to the request context.
func Authenticate(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			user, claims, err := a.Authenticate(ctx, BearerToken(r))
			if err != nil {
				var svcErr *service.Error
				if errors.As(err, &svcErr) {
					Logger(ctx).WithField("path", r.URL.Path).Debug("Rejected bearer token")
					WriteError(w, svcErr.Status, svcErr.Message)
					return
				}
				Logger(ctx).WithError(err).Error("Failed to authenticate request")
				WriteError(w, http.StatusInternalServerError, service.MsgServerError)
				return
			}

			ctx = WithUser(ctx, user, claims)
			ctx = WithLogger(ctx, Logger(ctx).WithField("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets through only authenticated users holding role
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, service.MsgNotAuthorized)
				return
			}
			if user.Role != role {
				msg := service.MsgNotAdmin
				if role != models.RoleAdmin {
					msg = "Is not " + string(role)
				}
				WriteError(w, http.StatusUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
