// Package auth authenticates requests and establishes the tenant context.
// Everything downstream (scoping, authorization, audit attribution) reads the
// identity this middleware installs; a request that skips it carries no
// tenant context and tenant-scoped stores will refuse to serve it.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"clinicore/internal/authz"
	"clinicore/internal/jwttoken"
	id "clinicore/pkg/domain"
	"clinicore/pkg/requestcontext"
)

// TokenValidator validates a bearer token into claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Invalid or expired token")
				return
			}

			identity, err := identityFromClaims(claims)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed claims",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Invalid token claims")
				return
			}

			ctx = authz.WithIdentity(ctx, identity)
			ctx = requestcontext.WithTenant(ctx, requestcontext.TenantContext{
				TenantID: identity.TenantID,
				UserID:   identity.SubjectID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFromClaims(claims *jwttoken.Claims) (authz.Identity, error) {
	subjectID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return authz.Identity{}, fmt.Errorf("subject: %w", err)
	}
	tenantID, err := id.ParseTenantID(claims.TenantID)
	if err != nil {
		return authz.Identity{}, fmt.Errorf("tenant: %w", err)
	}
	role, err := authz.ParseRole(claims.Role)
	if err != nil {
		return authz.Identity{}, err
	}

	branchIDs := make([]id.BranchID, 0, len(claims.BranchIDs))
	for _, raw := range claims.BranchIDs {
		branchID, err := id.ParseBranchID(raw)
		if err != nil {
			return authz.Identity{}, fmt.Errorf("branch: %w", err)
		}
		branchIDs = append(branchIDs, branchID)
	}

	return authz.Identity{
		SubjectID: subjectID,
		TenantID:  tenantID,
		Role:      role,
		BranchIDs: branchIDs,
	}, nil
}
