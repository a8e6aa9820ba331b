package access

import "github.com/jrsteele09/go-property-auth/users"

// Subject is anything that can answer role questions about the current session.
// authstate.State satisfies it.
type Subject interface {
	Authenticated() bool
	HasRole(role users.RoleType) bool
	HasAnyRole(roles ...users.RoleType) bool
}

// Role sets for the hierarchical checks. Each "OrAbove" set contains every set above it.
var (
	superAdminRoles     = []users.RoleType{users.RoleSuperAdmin}
	adminRoles          = []users.RoleType{users.RoleAdmin, users.RoleSuperAdmin}
	managerOrAboveRoles = []users.RoleType{users.RoleManager, users.RoleAdmin, users.RoleSuperAdmin}
	ownerOrAboveRoles   = []users.RoleType{users.RoleOwner, users.RoleManager, users.RoleAdmin, users.RoleSuperAdmin}
	tenantRoles         = []users.RoleType{users.RoleTenant}
)

// CanAccess reports whether subject satisfies required, which may be a single role
// (users.RoleType or string) or a list of roles ([]users.RoleType or []string).
// Any other type is denied.
func CanAccess(subject Subject, required any) bool {
	if subject == nil || !subject.Authenticated() {
		return false
	}

	switch r := required.(type) {
	case users.RoleType:
		return subject.HasRole(r)
	case string:
		return subject.HasRole(users.RoleType(r))
	case []users.RoleType:
		return subject.HasAnyRole(r...)
	case []string:
		roles := make([]users.RoleType, 0, len(r))
		for _, role := range r {
			roles = append(roles, users.RoleType(role))
		}
		return subject.HasAnyRole(roles...)
	default:
		return false
	}
}

func IsSuperAdmin(subject Subject) bool {
	return CanAccess(subject, superAdminRoles)
}

func IsAdmin(subject Subject) bool {
	return CanAccess(subject, adminRoles)
}

func IsManagerOrAbove(subject Subject) bool {
	return CanAccess(subject, managerOrAboveRoles)
}

func IsOwnerOrAbove(subject Subject) bool {
	return CanAccess(subject, ownerOrAboveRoles)
}

func IsTenant(subject Subject) bool {
	return CanAccess(subject, tenantRoles)
}
