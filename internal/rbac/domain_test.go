package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectivePermissionsContainsSubsumedRoles(t *testing.T) {
	// Each role's effective set must be a superset of every role below it.
	order := []Role{RoleViewer, RoleDepartmentHead, RoleFinanceManager, RoleAdmin}
	for i := 1; i < len(order); i++ {
		higher := EffectivePermissions(order[i])
		lower := EffectivePermissions(order[i-1])
		for perm := range lower {
			_, ok := higher[perm]
			assert.True(t, ok, "%s should inherit %s from %s", order[i], perm, order[i-1])
		}
	}
}

func TestAdminHasEveryPermission(t *testing.T) {
	effective := EffectivePermissions(RoleAdmin)
	for _, perm := range AllPermissions() {
		_, ok := effective[perm]
		assert.True(t, ok, "admin missing %s", perm)
	}
}

func TestViewerIsReadOnly(t *testing.T) {
	assert.True(t, HasPermission(RoleViewer, PermReadBudget))
	assert.False(t, HasPermission(RoleViewer, PermCreateBudget))
	assert.False(t, HasPermission(RoleViewer, PermDeleteUser))
	assert.False(t, HasPermission(RoleViewer, PermReadAudit))
}

func TestDepartmentHeadCannotDeleteBudgets(t *testing.T) {
	assert.True(t, HasPermission(RoleDepartmentHead, PermUpdateBudget))
	assert.False(t, HasPermission(RoleDepartmentHead, PermDeleteBudget))
	assert.False(t, HasPermission(RoleDepartmentHead, PermDeleteTransaction))
}

func TestParseRoleRejectsUnknownValues(t *testing.T) {
	role, err := ParseRole("finance_manager")
	require.NoError(t, err)
	assert.Equal(t, RoleFinanceManager, role)

	_, err = ParseRole("superuser")
	require.Error(t, err)

	_, err = ParseRole("")
	require.Error(t, err)
}

func TestParsePermissionRejectsUnknownValues(t *testing.T) {
	perm, err := ParsePermission("read_audit")
	require.NoError(t, err)
	assert.Equal(t, PermReadAudit, perm)

	_, err = ParsePermission("launch_missiles")
	require.Error(t, err)
}

func TestEffectivePermissionsReturnsFreshCopy(t *testing.T) {
	first := EffectivePermissions(RoleViewer)
	delete(first, PermReadBudget)
	second := EffectivePermissions(RoleViewer)
	_, ok := second[PermReadBudget]
	assert.True(t, ok, "mutating a returned set must not affect later calls")
}
