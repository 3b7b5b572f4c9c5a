package permission

// Definition describes one entry of the permission catalog.
type Definition struct {
	Name        string
	Description string
}

// Catalog lists every permission the application knows about, in seed order.
var Catalog = []Definition{
	{ManageUsers, "Manage users"},
	{ViewUsers, "View users"},
	{ManageStudents, "Manage students"},
	{ViewStudents, "View students"},
	{ManageGuests, "Manage guests"},
	{ViewGuests, "View guests"},
	{ManageTickets, "Manage all tickets"},
	{CreateTickets, "Create tickets"},
	{DeleteTickets, "Delete tickets"},
	{ViewStats, "View statistics"},
	{ViewAdvancedStats, "View advanced statistics"},
	{ViewLogs, "View logs"},
	{ManageLogs, "Manage logs"},
	{AdminPanel, "Access the administration panel"},
	{ManageRoles, "Manage roles"},
	{ManagePermissions, "Manage permissions"},
}

// RoleDefinition is a seeded role and the permissions granted to it.
type RoleDefinition struct {
	Name        string
	Description string
	Permissions []string
}

// DefaultRoles returns the three seeded roles. Admin holds the whole catalog.
func DefaultRoles() []RoleDefinition {
	all := make([]string, 0, len(Catalog))
	for _, d := range Catalog {
		all = append(all, d.Name)
	}
	return []RoleDefinition{
		{
			Name:        RoleAdmin,
			Description: "Administrator with every permission",
			Permissions: all,
		},
		{
			Name:        RoleModerator,
			Description: "Moderator with limited permissions",
			Permissions: []string{
				ViewUsers, ManageStudents, ViewStudents, ManageGuests, ViewGuests,
				CreateTickets, DeleteTickets, ViewStats, ViewLogs,
			},
		},
		{
			Name:        RoleUser,
			Description: "Door staff with basic permissions",
			Permissions: []string{ViewStudents, ViewGuests, CreateTickets, ViewStats},
		},
	}
}
