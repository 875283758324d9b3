// Package rbac implements the role and permission model for CampusLedger:
// a fixed role hierarchy, resource-scoped access policies, a Redis-backed
// permission cache and the HTTP guard chain protected routes mount.
package rbac

import "fmt"

// Role is one of the fixed roles known to the system. Roles are not created
// or deleted at runtime; unknown values are rejected by ParseRole.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleFinanceManager Role = "finance_manager"
	RoleDepartmentHead Role = "department_head"
	RoleViewer         Role = "viewer"
)

// Permission is an atomic resource-action capability compiled into the system.
type Permission string

const (
	PermCreateUser Permission = "create_user"
	PermReadUser   Permission = "read_user"
	PermUpdateUser Permission = "update_user"
	PermDeleteUser Permission = "delete_user"

	PermCreateDepartment Permission = "create_department"
	PermReadDepartment   Permission = "read_department"
	PermUpdateDepartment Permission = "update_department"
	PermDeleteDepartment Permission = "delete_department"

	PermCreateBudget Permission = "create_budget"
	PermReadBudget   Permission = "read_budget"
	PermUpdateBudget Permission = "update_budget"
	PermDeleteBudget Permission = "delete_budget"

	PermCreateTransaction Permission = "create_transaction"
	PermReadTransaction   Permission = "read_transaction"
	PermUpdateTransaction Permission = "update_transaction"
	PermDeleteTransaction Permission = "delete_transaction"

	PermCreateReport Permission = "create_report"
	PermReadReport   Permission = "read_report"
	PermDeleteReport Permission = "delete_report"

	PermReadAudit   Permission = "read_audit"
	PermManageAudit Permission = "manage_audit"
)

// roleHierarchy maps each role to every role it subsumes. The sets are stored
// fully expanded, so lookups never chase the hierarchy transitively.
var roleHierarchy = map[Role][]Role{
	RoleAdmin:          {RoleFinanceManager, RoleDepartmentHead, RoleViewer},
	RoleFinanceManager: {RoleDepartmentHead, RoleViewer},
	RoleDepartmentHead: {RoleViewer},
	RoleViewer:         {},
}

// rolePermissions holds the directly granted set per role, before hierarchy
// expansion.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermCreateUser, PermReadUser, PermUpdateUser, PermDeleteUser,
		PermCreateDepartment, PermReadDepartment, PermUpdateDepartment, PermDeleteDepartment,
		PermCreateBudget, PermReadBudget, PermUpdateBudget, PermDeleteBudget,
		PermCreateTransaction, PermReadTransaction, PermUpdateTransaction, PermDeleteTransaction,
		PermCreateReport, PermReadReport, PermDeleteReport,
		PermReadAudit, PermManageAudit,
	},
	RoleFinanceManager: {
		PermReadUser,
		PermCreateDepartment, PermReadDepartment, PermUpdateDepartment, PermDeleteDepartment,
		PermCreateBudget, PermReadBudget, PermUpdateBudget, PermDeleteBudget,
		PermCreateTransaction, PermReadTransaction, PermUpdateTransaction, PermDeleteTransaction,
		PermCreateReport, PermReadReport,
	},
	RoleDepartmentHead: {
		PermReadUser,
		PermReadDepartment,
		PermCreateBudget, PermReadBudget, PermUpdateBudget,
		PermCreateTransaction, PermReadTransaction, PermUpdateTransaction,
		PermReadReport,
	},
	RoleViewer: {
		PermReadUser,
		PermReadDepartment,
		PermReadBudget,
		PermReadTransaction,
		PermReadReport,
	},
}

// ParseRole validates a stored role value. An unknown value is a
// configuration error, not a per-request condition.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleAdmin, RoleFinanceManager, RoleDepartmentHead, RoleViewer:
		return Role(value), nil
	}
	return "", fmt.Errorf("rbac: unknown role %q", value)
}

// ParsePermission validates a serialized permission value.
func ParsePermission(value string) (Permission, error) {
	for _, p := range rolePermissions[RoleAdmin] {
		if Permission(value) == p {
			return p, nil
		}
	}
	return "", fmt.Errorf("rbac: unknown permission %q", value)
}

// AllRoles returns the closed role set.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleFinanceManager, RoleDepartmentHead, RoleViewer}
}

// AllPermissions returns every defined permission. Admin's direct grant covers
// the whole set.
func AllPermissions() []Permission {
	perms := make([]Permission, len(rolePermissions[RoleAdmin]))
	copy(perms, rolePermissions[RoleAdmin])
	return perms
}

// EffectivePermissions returns the full permission set a role carries after
// hierarchy expansion: its own direct grants plus the direct grants of every
// role it subsumes. Pure, no I/O.
func EffectivePermissions(role Role) map[Permission]struct{} {
	effective := make(map[Permission]struct{}, len(rolePermissions[role]))
	for _, p := range rolePermissions[role] {
		effective[p] = struct{}{}
	}
	for _, inherited := range roleHierarchy[role] {
		for _, p := range rolePermissions[inherited] {
			effective[p] = struct{}{}
		}
	}
	return effective
}

// HasPermission reports whether the role's effective set contains perm.
func HasPermission(role Role, perm Permission) bool {
	_, ok := EffectivePermissions(role)[perm]
	return ok
}
