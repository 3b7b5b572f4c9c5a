// Package permission evaluates a user's role permissions. The functions
// are pure: they read the role graph already loaded on the user and keep
// no state between calls, so a change to a role's permissions is visible
// on the next evaluation.
//
// A nil user, a user without a loaded role, or a role whose permissions
// were not loaded evaluates as having no permissions at all.
package permission

import "github.com/iliyamo/party-logger/internal/model"

// Permission names from the seeded catalog.
const (
	ManageUsers = "manage_users"
	ViewUsers   = "view_users"

	ManageStudents = "manage_students"
	ViewStudents   = "view_students"

	ManageGuests = "manage_guests"
	ViewGuests   = "view_guests"

	ManageTickets = "manage_tickets"
	CreateTickets = "create_tickets"
	DeleteTickets = "delete_tickets"

	ViewStats         = "view_stats"
	ViewAdvancedStats = "view_advanced_stats"

	ViewLogs   = "view_logs"
	ManageLogs = "manage_logs"

	AdminPanel        = "admin_panel"
	ManageRoles       = "manage_roles"
	ManagePermissions = "manage_permissions"
)

// Role names.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

// HasPermission reports whether name is in the user's role permission set.
func HasPermission(u *model.User, name string) bool {
	if u == nil || u.Role == nil {
		return false
	}
	for _, p := range u.Role.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// HasAnyPermission is the logical OR of HasPermission over names.
func HasAnyPermission(u *model.User, names ...string) bool {
	for _, n := range names {
		if HasPermission(u, n) {
			return true
		}
	}
	return false
}

// HasAllPermissions is the logical AND of HasPermission over names.
// It is true for an empty list.
func HasAllPermissions(u *model.User, names ...string) bool {
	for _, n := range names {
		if !HasPermission(u, n) {
			return false
		}
	}
	return true
}

// HasRole reports an exact match on the role name.
func HasRole(u *model.User, roleName string) bool {
	return u != nil && u.Role != nil && u.Role.Name == roleName
}
