// Package rbac implements static role-based access control: a fixed
// role-to-permission table, ownership checks and role-scoped data filtering.
package rbac

import (
	"github.com/imspidey6989/MediBridge/pkg/types"
)

// rolePermissions is the authoritative role-to-permission table. Roles and
// permissions are fixed at build time; unknown roles hold no permissions.
var rolePermissions = map[types.UserRole][]types.Permission{
	types.RolePatient: {
		types.PermReadOwnRecords,
		types.PermWriteOwnRecords,
		types.PermExportData,
	},
	types.RoleDoctor: {
		types.PermReadOwnRecords,
		types.PermWriteOwnRecords,
		types.PermReadAllRecords,
		types.PermWriteAllRecords,
		types.PermViewAnalytics,
		types.PermExportData,
	},
	types.RoleVerifier: {
		types.PermReadAllRecords,
		types.PermVerifyRecords,
		types.PermViewAnalytics,
	},
	types.RoleAdmin: {
		types.PermReadAllRecords,
		types.PermWriteAllRecords,
		types.PermVerifyRecords,
		types.PermManageUsers,
		types.PermViewAnalytics,
		types.PermExportData,
	},
}

// HasPermission reports whether the role grants the permission. Empty roles
// and unknown roles fail closed.
func HasPermission(role types.UserRole, permission types.Permission) bool {
	if role == "" || permission == "" {
		return false
	}
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// RolePermissions returns a copy of the permissions granted to a role
func RolePermissions(role types.UserRole) []types.Permission {
	perms := rolePermissions[role]
	out := make([]types.Permission, len(perms))
	copy(out, perms)
	return out
}

// CanAccessResource reports whether a user may touch a resource owned by
// resourceOwnerID. Clinical and administrative roles see everything;
// patients only their own.
func CanAccessResource(role types.UserRole, resourceOwnerID, currentUserID string) bool {
	switch role {
	case types.RoleAdmin, types.RoleVerifier, types.RoleDoctor:
		return true
	case types.RolePatient:
		return resourceOwnerID == currentUserID
	default:
		return false
	}
}

// FilterRecordsByRole drops records the role may not see. Privileged roles
// get the slice back untouched; patients get only their own rows; unknown
// roles get nothing.
func FilterRecordsByRole(records []types.HealthRecord, role types.UserRole, currentUserID string) []types.HealthRecord {
	switch role {
	case types.RoleAdmin, types.RoleVerifier, types.RoleDoctor:
		return records
	case types.RolePatient:
		filtered := make([]types.HealthRecord, 0, len(records))
		for _, rec := range records {
			if rec.UserID == currentUserID {
				filtered = append(filtered, rec)
			}
		}
		return filtered
	default:
		return []types.HealthRecord{}
	}
}
