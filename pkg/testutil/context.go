// Package testutil provides common helpers for handler, service and
// integration tests.
package testutil

import (
	"context"

	"clinicore/internal/authz"
	id "clinicore/pkg/domain"
	"clinicore/pkg/requestcontext"
)

// AuthedContext builds a context as the auth middleware would leave it: an
// identity plus the matching tenant context.
func AuthedContext(ctx context.Context, tenantID id.TenantID, userID id.UserID, role authz.Role, branches ...id.BranchID) context.Context {
	ctx = authz.WithIdentity(ctx, authz.Identity{
		SubjectID: userID,
		TenantID:  tenantID,
		Role:      role,
		BranchIDs: branches,
	})
	return requestcontext.WithTenant(ctx, requestcontext.TenantContext{
		TenantID: tenantID,
		UserID:   userID,
	})
}

// TenantContext builds a bare tenant context without an identity, for tests
// exercising the scoping layer alone.
func TenantContext(ctx context.Context, tenantID id.TenantID) context.Context {
	return requestcontext.WithTenant(ctx, requestcontext.TenantContext{
		TenantID: tenantID,
		UserID:   id.NewUserID(),
	})
}
