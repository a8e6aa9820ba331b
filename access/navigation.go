package access

import "github.com/jrsteele09/go-property-auth/users"

// NavItem is one entry of the main menu.
type NavItem struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Icon string `json:"icon"`
}

// NavigationItems returns the menu for role. Tenants get their own list; staff lists grow
// with privilege. The result is a fresh slice in a fixed order.
func NavigationItems(role users.RoleType) []NavItem {
	if role == users.RoleTenant {
		return []NavItem{
			{Name: "Dashboard", Path: "/tenant/dashboard", Icon: "home"},
			{Name: "My Apartment", Path: "/tenant/apartment", Icon: "key"},
			{Name: "Payments", Path: "/tenant/payments", Icon: "credit-card"},
			{Name: "Maintenance", Path: "/tenant/maintenance", Icon: "tool"},
			{Name: "Profile", Path: "/tenant/profile", Icon: "user"},
		}
	}
	if !role.IsValid() {
		return []NavItem{}
	}

	items := []NavItem{
		{Name: "Dashboard", Path: "/dashboard", Icon: "home"},
		{Name: "Properties", Path: "/properties", Icon: "building"},
		{Name: "Apartments", Path: "/apartments", Icon: "grid"},
	}

	if hasRole(role, managerOrAboveRoles) {
		items = append(items,
			NavItem{Name: "Tenants", Path: "/tenants", Icon: "users"},
			NavItem{Name: "Leases", Path: "/leases", Icon: "file-text"},
			NavItem{Name: "Maintenance", Path: "/maintenance", Icon: "tool"},
		)
	}

	items = append(items, NavItem{Name: "Payments", Path: "/payments", Icon: "credit-card"})

	if hasRole(role, adminRoles) {
		items = append(items,
			NavItem{Name: "Users", Path: "/users", Icon: "user-check"},
			NavItem{Name: "Settings", Path: "/settings", Icon: "settings"},
		)
	}
	if role == users.RoleSuperAdmin {
		items = append(items, NavItem{Name: "Permissions", Path: "/permissions", Icon: "shield"})
	}

	return append(items, NavItem{Name: "Profile", Path: "/profile", Icon: "user"})
}

func hasRole(role users.RoleType, set []users.RoleType) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}
