package authz

import (
	"context"

	id "clinicore/pkg/domain"
	dErrors "clinicore/pkg/domain-errors"
)

// Identity is the authenticated subject as resolved from a verified credential.
// Role and BranchIDs are immutable for the duration of a request; they are the
// sole inputs to authorization decisions.
type Identity struct {
	SubjectID id.UserID
	TenantID  id.TenantID
	Role      Role
	BranchIDs []id.BranchID
}

// MemberOfBranch reports whether the identity may access the given branch,
// either via explicit membership or the administrative override set.
func (i Identity) MemberOfBranch(branchID id.BranchID) bool {
	if i.Role.BypassesBranchScope() {
		return true
	}
	for _, b := range i.BranchIDs {
		if b == branchID {
			return true
		}
	}
	return false
}

type identityKey struct{}

// WithIdentity stores the authenticated identity in the context. Set once by
// the auth middleware after credential verification; never mutated afterwards.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// FromContext retrieves the authenticated identity, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

// RequireIdentity retrieves the authenticated identity or fails with an
// unauthenticated error. Business code runs only after the full chain has
// approved, so a missing identity here means a wiring bug or an anonymous
// route reaching a protected path.
func RequireIdentity(ctx context.Context) (Identity, error) {
	identity, ok := FromContext(ctx)
	if !ok {
		return Identity{}, dErrors.New(dErrors.CodeUnauthenticated, "authentication required")
	}
	return identity, nil
}
