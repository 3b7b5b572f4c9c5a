package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/config"
	"github.com/iliyamo/party-logger/internal/middleware"
	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/service"
	"github.com/iliyamo/party-logger/internal/utils"
)

// AuthHandler bundles dependencies for the login, logout and identity
// endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *service.UserService
	Sessions *service.SessionManager
	Now      service.Clock
}

func NewAuthHandler(cfg config.Config, u *service.UserService, s *service.SessionManager, now service.Clock) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Sessions: s, Now: now}
}

type loginReq struct {
	Login    string `json:"login" form:"login" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type meResp struct {
	User        *model.User `json:"user"`
	Permissions []string    `json:"permissions"`
}

// Login checks credentials, opens a session and sets the session cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Authenticate(ctx, req.Login, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	s, err := h.Sessions.Create(ctx, u.ID)
	if err != nil {
		return respondError(c, err)
	}
	middleware.SetSessionCookie(c, s, h.Cfg.IsProd())
	c.Logger().Infof("auth: %s signed in", u.Username)
	return success(c, http.StatusOK, "signed in", meResp{User: u, Permissions: u.PermissionNames()})
}

// Logout deletes the current session and its cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if s := middleware.CurrentSession(c); s != nil {
		if err := h.Sessions.Invalidate(ctx, s.ID); err != nil {
			return respondError(c, err)
		}
	}
	middleware.ClearSessionCookie(c, h.Cfg.IsProd())
	return success(c, http.StatusOK, "signed out", nil)
}

// Me returns the signed-in user with the permission names of their role.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	return c.JSON(http.StatusOK, meResp{User: u, Permissions: u.PermissionNames()})
}

// Token issues a short-lived bearer token for scanner devices. It requires
// a browser session; a bearer token cannot mint another one.
func (h *AuthHandler) Token(c echo.Context) error {
	if middleware.CurrentSession(c) == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "a session is required", "kind": service.KindUnauthenticated})
	}
	u := middleware.CurrentUser(c)
	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTL, h.Now())
	if err != nil {
		c.Logger().Errorf("auth: sign access token: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusCreated, tok)
}
