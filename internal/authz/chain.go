// Package authz implements the layered authorization chain evaluated for every
// request: authenticated identity, then role permission, then tenant/branch
// membership. Each layer may short-circuit with a distinct, terminal error
// code; business logic never observes a partially authorized request.
package authz

import (
	"context"
	"strings"

	id "clinicore/pkg/domain"
	dErrors "clinicore/pkg/domain-errors"
)

// CheckRole enforces the role-permission layer. allowed is an allow-list; an
// empty list opens the operation to any authenticated subject. The rejection
// names the required roles so API consumers and tests can assert on them.
func CheckRole(identity Identity, allowed []Role) error {
	if len(allowed) == 0 {
		return nil
	}
	for _, role := range allowed {
		if identity.Role == role {
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeForbidden, "requires one of roles: %s", joinRoles(allowed))
}

// CheckBranch enforces the tenant/branch-membership layer against a specific
// resource's branch. The rejection message is deliberately generic: it must
// not reveal whether the resource exists in another tenant or branch.
func CheckBranch(identity Identity, branchID id.BranchID) error {
	if identity.MemberOfBranch(branchID) {
		return nil
	}
	return dErrors.New(dErrors.CodeScopeDenied, "access denied")
}

// CheckBranchCtx is CheckBranch with the identity resolved from context.
// Services use it after fetching a resource to gate on the row's actual
// branch, not just the branch the caller claimed to be asking about.
func CheckBranchCtx(ctx context.Context, branchID id.BranchID) error {
	identity, err := RequireIdentity(ctx)
	if err != nil {
		return err
	}
	return CheckBranch(identity, branchID)
}

// Authorize runs the identity and role layers in order for an operation's
// declared roles. Branch checks are resource-specific and run separately once
// the target resource is known.
func Authorize(ctx context.Context, allowed []Role) (Identity, error) {
	identity, err := RequireIdentity(ctx)
	if err != nil {
		return Identity{}, err
	}
	if err := CheckRole(identity, allowed); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

func joinRoles(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
