// Package authz gates protected operations on the claims carried in a
// verified token. Checks run strictly after token verification and strictly
// before any handler logic.
package authz

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/roadworthy/inspection-platform/pkg/auth"
	"github.com/roadworthy/inspection-platform/pkg/logger"
	"github.com/roadworthy/inspection-platform/pkg/response"
)

var ErrForbidden = errors.New("forbidden")

// RequireRole checks that the claims' role is one of the allowed roles.
// Allowed roles are always explicit: admin does not implicitly pass a
// technician-only gate.
func RequireRole(claims *auth.Claims, roles ...string) error {
	for _, role := range roles {
		if claims.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// RequireOwner checks that the claims' subject owns the resource.
func RequireOwner(claims *auth.Claims, ownerID uuid.UUID) error {
	if claims.Sub != ownerID {
		return ErrForbidden
	}
	return nil
}

type contextKey struct{}

// ClaimsFrom returns the verified claims stored by the Require middleware,
// or nil when the request did not pass through it.
func ClaimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(contextKey{}).(*auth.Claims)
	return claims
}

// Require verifies the bearer token and enforces role membership before the
// wrapped handler runs. An empty roles list means any authenticated caller.
func Require(authority *auth.Authority, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				response.Unauthorized(w, "missing authorization header")
				return
			}

			claims, err := authority.Verify(auth.FromHeader(header))
			if err != nil {
				// One message for every authentication failure so callers
				// cannot probe which check rejected them.
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			if len(roles) > 0 {
				if err := RequireRole(claims, roles...); err != nil {
					response.Forbidden(w, "insufficient permissions")
					return
				}
			}

			ctx := context.WithValue(r.Context(), contextKey{}, claims)
			ctx = context.WithValue(ctx, logger.UserIDKey, claims.Sub.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
