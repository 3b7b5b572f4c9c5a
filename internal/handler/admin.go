package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/middleware"
	"github.com/iliyamo/party-logger/internal/service"
)

// AdminHandler serves operator accounts, roles and the permission catalog.
type AdminHandler struct {
	Users *service.UserService
}

func NewAdminHandler(u *service.UserService) *AdminHandler {
	return &AdminHandler{Users: u}
}

type createUserReq struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	RoleID    uint64 `json:"roleId" validate:"required,gt=0"`
}

type updateUserReq struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	RoleID    *uint64 `json:"roleId" validate:"omitempty,gt=0"`
	IsActive  *bool   `json:"isActive"`
}

type resetPasswordReq struct {
	Password string `json:"password" validate:"required"`
}

type rolePermissionsReq struct {
	Permissions []string `json:"permissions" validate:"required,dive,required"`
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		c.Logger().Errorf("admin: list users: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch users"})
	}
	return c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.Create(ctx, service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleID:    req.RoleID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusCreated, "user created", u)
}

func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req updateUserReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.Update(ctx, middleware.CurrentUser(c).ID, id, service.UpdateUserInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleID:    req.RoleID,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "user updated", u)
}

// ResetPassword sets a new password and signs the user out everywhere.
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req resetPasswordReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.ResetPassword(ctx, id, req.Password); err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "password reset", nil)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Delete(ctx, middleware.CurrentUser(c).ID, id); err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "user deleted", nil)
}

func (h *AdminHandler) ListRoles(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	roles, err := h.Users.ListRoles(ctx)
	if err != nil {
		c.Logger().Errorf("admin: list roles: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch roles"})
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *AdminHandler) ListPermissions(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	perms, err := h.Users.ListPermissions(ctx)
	if err != nil {
		c.Logger().Errorf("admin: list permissions: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch permissions"})
	}
	return c.JSON(http.StatusOK, perms)
}

// SetRolePermissions replaces the permission set of a role. The change
// applies to the next request of every holder of the role.
func (h *AdminHandler) SetRolePermissions(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	var req rolePermissionsReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	role, err := h.Users.SetRolePermissions(ctx, id, req.Permissions)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, http.StatusOK, "role permissions updated", role)
}
