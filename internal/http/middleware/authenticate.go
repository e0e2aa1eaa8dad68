package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/diagnosis/accounts-api/internal/apperr"
	"github.com/diagnosis/accounts-api/internal/domain"
	"github.com/diagnosis/accounts-api/internal/http/response"
	"github.com/diagnosis/accounts-api/pkg/logger"
)

type ctxKey string

const ctxUser ctxKey = "user"

type TokenVerifier interface {
	Verify(token string) (string, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

type AuthOptions struct {
	// RequireAdmin lets only users with the admin role through.
	RequireAdmin bool
	// RequireVerified rejects users that have not been verified yet.
	RequireVerified bool
}

// Authenticate resolves the bearer token to a stored user and attaches it
// to the request context. Every failure is reported as UNAUTHORIZED.
func Authenticate(tokens TokenVerifier, users UserFinder, opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if authz == "" {
				response.Error(w, r, apperr.Unauthorized("Authorization header not found"))
				return
			}
			scheme, raw, ok := strings.Cut(authz, " ")
			raw = strings.TrimSpace(raw)
			if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
				response.Error(w, r, apperr.Unauthorized("Token not found"))
				return
			}

			userID, err := tokens.Verify(raw)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "error", err)
				response.Error(w, r, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				response.Error(w, r, apperr.Internal(fmt.Errorf("load user %s: %w", userID, err), "Failed to authenticate"))
				return
			}
			if user == nil {
				response.Error(w, r, apperr.Unauthorized("User not found"))
				return
			}
			if opts.RequireVerified && !user.IsVerified {
				response.Error(w, r, apperr.Unauthorized("User not verified"))
				return
			}
			if opts.RequireAdmin && !user.IsAdmin() {
				response.Error(w, r, apperr.Unauthorized("User not authorized"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUser, user)
			ctx = context.WithValue(ctx, logger.UserIDKey, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the user attached by Authenticate, if any.
func CurrentUser(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(ctxUser).(*domain.User)
	return u, ok && u != nil
}

// WithUser attaches u to ctx the same way Authenticate does.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, ctxUser, u)
}
