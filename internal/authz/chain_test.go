package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicore/internal/authz"
	id "clinicore/pkg/domain"
	dErrors "clinicore/pkg/domain-errors"
)

func staffIdentity(role authz.Role, branches ...id.BranchID) authz.Identity {
	return authz.Identity{
		SubjectID: id.NewUserID(),
		TenantID:  id.NewTenantID(),
		Role:      role,
		BranchIDs: branches,
	}
}

func TestAuthorize_RejectsUnauthenticated(t *testing.T) {
	_, err := authz.Authorize(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
}

func TestAuthorize_RoleAllowList(t *testing.T) {
	tests := []struct {
		name    string
		role    authz.Role
		allowed []authz.Role
		wantErr bool
	}{
		{"empty list admits any authenticated subject", authz.RoleReception, nil, false},
		{"role in list approved", authz.RoleDoctor, []authz.Role{authz.RoleDoctor, authz.RoleNurse}, false},
		{"role not in list rejected", authz.RoleReception, []authz.Role{authz.RoleAccountant}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := authz.WithIdentity(context.Background(), staffIdentity(tt.role))
			identity, err := authz.Authorize(ctx, tt.allowed)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.role, identity.Role)
		})
	}
}

func TestCheckRole_RejectionNamesRequiredRoles(t *testing.T) {
	err := authz.CheckRole(staffIdentity(authz.RoleReception), []authz.Role{authz.RoleDoctor, authz.RoleNurse})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOCTOR")
	assert.Contains(t, err.Error(), "NURSE")
}

func TestCheckBranch_Membership(t *testing.T) {
	b1 := id.NewBranchID()
	b2 := id.NewBranchID()

	t.Run("member approved", func(t *testing.T) {
		assert.NoError(t, authz.CheckBranch(staffIdentity(authz.RoleReception, b1), b1))
	})

	t.Run("non-member rejected with generic message", func(t *testing.T) {
		err := authz.CheckBranch(staffIdentity(authz.RoleReception, b1), b2)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeScopeDenied))
		// Must not leak whether the branch or its rows exist elsewhere.
		assert.Equal(t, "access denied", dErrors.MessageOf(err))
	})

	t.Run("administrative override bypasses membership", func(t *testing.T) {
		assert.NoError(t, authz.CheckBranch(staffIdentity(authz.RoleOwner), b2))
		assert.NoError(t, authz.CheckBranch(staffIdentity(authz.RoleSystemAdmin), b2))
	})
}

func TestCheckBranchCtx_RequiresIdentityFirst(t *testing.T) {
	err := authz.CheckBranchCtx(context.Background(), id.NewBranchID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
}

func TestParseRole(t *testing.T) {
	role, err := authz.ParseRole("DOCTOR")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleDoctor, role)

	_, err = authz.ParseRole("JANITOR")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
