package model

import "time"

// User represents an operator account as stored in the `users` table.
// Every read through the repository layer loads the user's Role together
// with the role's permissions, so permission checks never need a second
// query.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  Email        – unique email address (also accepted at login).
//  PasswordHash – bcrypt hashed password, never serialized.
//  FirstName    – given name shown in the admin area.
//  LastName     – family name shown in the admin area.
//  RoleID       – foreign key into the roles table.
//  Role         – eagerly loaded role with its permissions.
//  IsActive     – inactive users cannot log in and lose their sessions.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`        // users.id
	Username     string    `json:"username"`  // users.username
	Email        string    `json:"email"`     // users.email
	PasswordHash string    `json:"-"`         // users.password_hash
	FirstName    string    `json:"firstName"` // users.first_name
	LastName     string    `json:"lastName"`  // users.last_name
	RoleID       uint64    `json:"roleId"`    // users.role_id
	Role         *Role     `json:"role"`      // joined from roles + role_permissions
	IsActive     bool      `json:"isActive"`  // users.is_active
	CreatedAt    time.Time `json:"createdAt"` // users.created_at
	UpdatedAt    time.Time `json:"updatedAt"` // users.updated_at
}

// Role is a named bundle of permissions (`roles` joined with
// `role_permissions`).
type Role struct {
	ID          uint64       `json:"id"`          // roles.id
	Name        string       `json:"name"`        // roles.name
	Description string       `json:"description"` // roles.description
	Permissions []Permission `json:"permissions"` // role_permissions -> permissions
}

// Permission is an atomic capability from the immutable catalog.
type Permission struct {
	ID          uint64 `json:"id"`          // permissions.id
	Name        string `json:"name"`        // permissions.name
	Description string `json:"description"` // permissions.description
}

// PermissionNames flattens the role's permission set. It returns nil when
// the role is missing.
func (u *User) PermissionNames() []string {
	if u == nil || u.Role == nil {
		return nil
	}
	out := make([]string, 0, len(u.Role.Permissions))
	for _, p := range u.Role.Permissions {
		out = append(out, p.Name)
	}
	return out
}
