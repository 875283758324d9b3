package rbac

import "github.com/google/uuid"

// Resource-scoped access policies. Each predicate is pure: the caller resolves
// the resource's department beforehand. An actor without a department
// (uuid.Nil) never matches any scope-gated rule.

// CanAccessDepartment decides whether the role may act on a department.
func CanAccessDepartment(role Role, actorDept, targetDept uuid.UUID) bool {
	switch role {
	case RoleAdmin, RoleFinanceManager:
		return true
	case RoleDepartmentHead, RoleViewer:
		return actorDept != uuid.Nil && actorDept == targetDept
	}
	return false
}

// CanManageBudget decides whether the role may manage a budget belonging to
// budgetDept. Viewer reads are governed by permission, not by this policy.
func CanManageBudget(role Role, actorDept, budgetDept uuid.UUID) bool {
	switch role {
	case RoleAdmin, RoleFinanceManager:
		return true
	case RoleDepartmentHead:
		return actorDept != uuid.Nil && actorDept == budgetDept
	}
	return false
}

// CanManageTransaction decides whether the role may manage a transaction whose
// budget belongs to budgetDept. Resolving budgetDept takes a two-hop lookup
// (transaction -> budget -> department) through the persistence layer.
func CanManageTransaction(role Role, actorDept, budgetDept uuid.UUID) bool {
	switch role {
	case RoleAdmin, RoleFinanceManager:
		return true
	case RoleDepartmentHead:
		return actorDept != uuid.Nil && actorDept == budgetDept
	}
	return false
}

// CanModifyUser decides whether the actor may modify the target account.
// Non-admins may only modify themselves.
func CanModifyUser(role Role, actorID, targetID uuid.UUID) bool {
	if role == RoleAdmin {
		return true
	}
	return actorID == targetID
}
