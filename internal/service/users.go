package service

import (
	"context"
	"strings"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/party-logger/internal/metrics"
	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/permission"
	"github.com/iliyamo/party-logger/internal/repository"
	"github.com/iliyamo/party-logger/internal/utils"
)

const minPasswordLength = 8

// CreateUserInput is an admin request for a new operator account.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleID    uint64
}

// UpdateUserInput changes selected profile fields; nil fields are kept.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	RoleID    *uint64
	IsActive  *bool
}

// BootstrapAdmin is the first account created on an empty database.
type BootstrapAdmin struct {
	Username string
	Email    string
	Password string
}

// UserService manages operator accounts, roles and authentication.
type UserService struct {
	store  repository.Store
	logger *log.Logger
	cost   int
}

// NewUserService returns a UserService hashing passwords with bcrypt cost.
func NewUserService(store repository.Store, logger *log.Logger, cost int) *UserService {
	return &UserService{store: store, logger: logger, cost: cost}
}

// Authenticate checks credentials. login matches username or email; only
// active accounts can sign in. Every failure reads the same.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, validation("username and password are required")
	}
	u, err := s.store.Users().GetByLogin(ctx, login)
	if err != nil && !isNotFound(err) {
		return nil, unexpected("load user", err)
	}
	if u == nil || !u.IsActive {
		utils.BurnPasswordCheck(password)
		return nil, unauthenticated("invalid credentials")
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, unauthenticated("invalid credentials")
	}
	return u, nil
}

// Get returns one user with role and permissions.
func (s *UserService) Get(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.store.Users().GetByID(ctx, id)
	if isNotFound(err) {
		return nil, notFound("user %d not found", id)
	}
	if err != nil {
		return nil, unexpected("load user", err)
	}
	return u, nil
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, unexpected("list users", err)
	}
	return users, nil
}

func checkPassword(pw string) error {
	if len(pw) < minPasswordLength {
		return validation("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// Create adds an active account. A taken username or email is a conflict.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case in.Username == "":
		return nil, validation("username is required")
	case !strings.Contains(in.Email, "@"):
		return nil, validation("a valid email is required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, unexpected("hash password", err)
	}

	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		RoleID:       in.RoleID,
		IsActive:     true,
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Roles().GetByID(ctx, in.RoleID); err != nil {
			if isNotFound(err) {
				return validation("role %d does not exist", in.RoleID)
			}
			return unexpected("load role", err)
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			if isDuplicate(err) {
				return conflict("username or email already in use")
			}
			return unexpected("create user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infof("user: created %d %s", u.ID, u.Username)
	return u, nil
}

// Update applies in to user id. actorID is the signed-in admin, who may
// not deactivate their own account.
func (s *UserService) Update(ctx context.Context, actorID, id uint64, in UpdateUserInput) (*model.User, error) {
	if actorID == id && in.IsActive != nil && !*in.IsActive {
		return nil, validation("you cannot deactivate your own account")
	}
	var (
		out    *model.User
		killed int64
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		u, err := tx.Users().GetByID(ctx, id)
		if isNotFound(err) {
			return notFound("user %d not found", id)
		}
		if err != nil {
			return unexpected("load user", err)
		}
		if in.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*in.Email))
			if !strings.Contains(email, "@") {
				return validation("a valid email is required")
			}
			u.Email = email
		}
		if in.FirstName != nil {
			u.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			u.LastName = strings.TrimSpace(*in.LastName)
		}
		if in.RoleID != nil {
			if _, err := tx.Roles().GetByID(ctx, *in.RoleID); err != nil {
				if isNotFound(err) {
					return validation("role %d does not exist", *in.RoleID)
				}
				return unexpected("load role", err)
			}
			u.RoleID = *in.RoleID
		}
		deactivated := false
		if in.IsActive != nil {
			deactivated = u.IsActive && !*in.IsActive
			u.IsActive = *in.IsActive
		}
		if err := tx.Users().Update(ctx, u); err != nil {
			if isDuplicate(err) {
				return conflict("username or email already in use")
			}
			return unexpected("update user", err)
		}
		if deactivated {
			if killed, err = deleteUserSessions(ctx, tx, id); err != nil {
				return err
			}
		}
		out, err = tx.Users().GetByID(ctx, id)
		if err != nil {
			return unexpected("reload user", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.SessionEvents.WithLabelValues("invalidated").Add(float64(killed))
	return out, nil
}

// ResetPassword replaces the password of id and kills all its sessions.
func (s *UserService) ResetPassword(ctx context.Context, id uint64, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword, s.cost)
	if err != nil {
		return unexpected("hash password", err)
	}
	var killed int64
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().UpdatePassword(ctx, id, hash); err != nil {
			if isNotFound(err) {
				return notFound("user %d not found", id)
			}
			return unexpected("update password", err)
		}
		killed, err = deleteUserSessions(ctx, tx, id)
		return err
	})
	if err != nil {
		return err
	}
	metrics.SessionEvents.WithLabelValues("invalidated").Add(float64(killed))
	s.logger.Infof("user: password reset for %d", id)
	return nil
}

// Delete removes user id. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actorID, id uint64) error {
	if actorID == id {
		return validation("you cannot delete your own account")
	}
	if err := s.store.Users().Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return notFound("user %d not found", id)
		}
		return unexpected("delete user", err)
	}
	s.logger.Infof("user: deleted %d", id)
	return nil
}

// ListRoles returns the roles with their permissions.
func (s *UserService) ListRoles(ctx context.Context) ([]model.Role, error) {
	roles, err := s.store.Roles().List(ctx)
	if err != nil {
		return nil, unexpected("list roles", err)
	}
	return roles, nil
}

// ListPermissions returns the permission catalog.
func (s *UserService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	perms, err := s.store.Roles().ListPermissions(ctx)
	if err != nil {
		return nil, unexpected("list permissions", err)
	}
	return perms, nil
}

// SetRolePermissions replaces the permission set of a role. The change is
// visible on the very next permission check of every member.
func (s *UserService) SetRolePermissions(ctx context.Context, roleID uint64, names []string) (*model.Role, error) {
	var out *model.Role
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Roles().GetByID(ctx, roleID); err != nil {
			if isNotFound(err) {
				return notFound("role %d not found", roleID)
			}
			return unexpected("load role", err)
		}
		if err := tx.Roles().SetPermissions(ctx, roleID, names); err != nil {
			if isNotFound(err) {
				return validation("unknown permission in %v", names)
			}
			return unexpected("set role permissions", err)
		}
		var err error
		out, err = tx.Roles().GetByID(ctx, roleID)
		if err != nil {
			return unexpected("reload role", err)
		}
		return nil
	})
	return out, err
}

// EnsureAdmin seeds the permission catalog and default roles when missing
// and, on a database without users, creates the bootstrap admin. It
// reports whether the admin was created.
func (s *UserService) EnsureAdmin(ctx context.Context, admin BootstrapAdmin) (bool, error) {
	created := false
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		for _, d := range permission.Catalog {
			p := &model.Permission{Name: d.Name, Description: d.Description}
			if err := tx.Roles().EnsurePermission(ctx, p); err != nil {
				return unexpected("seed permission", err)
			}
		}
		var adminRole uint64
		for _, def := range permission.DefaultRoles() {
			role, err := tx.Roles().GetByName(ctx, def.Name)
			switch {
			case isNotFound(err):
				role = &model.Role{Name: def.Name, Description: def.Description}
				if err := tx.Roles().Create(ctx, role); err != nil {
					return unexpected("seed role", err)
				}
				if err := tx.Roles().SetPermissions(ctx, role.ID, def.Permissions); err != nil {
					return unexpected("seed role permissions", err)
				}
			case err != nil:
				return unexpected("load role", err)
			}
			if def.Name == permission.RoleAdmin {
				adminRole = role.ID
			}
		}

		n, err := tx.Users().Count(ctx)
		if err != nil {
			return unexpected("count users", err)
		}
		if n > 0 {
			return nil
		}
		if err := checkPassword(admin.Password); err != nil {
			return err
		}
		hash, err := utils.HashPassword(admin.Password, s.cost)
		if err != nil {
			return unexpected("hash password", err)
		}
		u := &model.User{
			Username:     admin.Username,
			Email:        admin.Email,
			PasswordHash: hash,
			FirstName:    "Admin",
			LastName:     "PartyLogger",
			RoleID:       adminRole,
			IsActive:     true,
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			return unexpected("create admin", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if created {
		s.logger.Infof("user: bootstrap admin %q created", admin.Username)
	}
	return created, nil
}
