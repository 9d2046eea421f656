package authz

import (
	dErrors "clinicore/pkg/domain-errors"
)

// Role is the fixed enumeration of staff roles. Authorization decisions take
// only the role and branch memberships as input; roles never change within a
// request.
type Role string

const (
	RoleOwner       Role = "OWNER"
	RoleSystemAdmin Role = "SYSTEM_ADMIN"
	RoleDoctor      Role = "DOCTOR"
	RoleNurse       Role = "NURSE"
	RoleReception   Role = "RECEPTION"
	RoleAccountant  Role = "ACCOUNTANT"
)

var validRoles = map[Role]bool{
	RoleOwner:       true,
	RoleSystemAdmin: true,
	RoleDoctor:      true,
	RoleNurse:       true,
	RoleReception:   true,
	RoleAccountant:  true,
}

// branchOverrideRoles bypass branch scoping entirely. Membership checks still
// apply to every other role regardless of its other permissions.
var branchOverrideRoles = map[Role]bool{
	RoleOwner:       true,
	RoleSystemAdmin: true,
}

// ParseRole validates a role arriving at a trust boundary (token claims).
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
	}
	return r, nil
}

// BypassesBranchScope reports whether the role is in the administrative
// override set.
func (r Role) BypassesBranchScope() bool {
	return branchOverrideRoles[r]
}
