package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"passport/config"
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/response"
	"passport/internal/domain/entity"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AdminHandlerParams holds dependencies for AdminHandler, injected by Fx.
type AdminHandlerParams struct {
	fx.In

	AdminUC usecase.AdminUsecase
	Config  *config.Config
	Logger  *slog.Logger
}

// AdminHandler holds dependencies for administrator handlers
type AdminHandler struct {
	adminUC usecase.AdminUsecase
	cfg     *config.Config
	logger  *slog.Logger
}

// NewAdminHandler is the constructor for AdminHandler
func NewAdminHandler(params AdminHandlerParams) *AdminHandler {
	return &AdminHandler{
		adminUC: params.AdminUC,
		cfg:     params.Config,
		logger:  params.Logger,
	}
}

// SetRoleRequest represents the request body for changing a user's site role
type SetRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ListUsers pages through all accounts
func (h *AdminHandler) ListUsers(c echo.Context) error {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	users, err := h.adminUC.ListUsers(c.Request().Context(), adminID, usecase.ListUsersInput{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newUserViews(users))
}

// SetRole changes a user's site-wide role
func (h *AdminHandler) SetRole(c echo.Context) error {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid user ID")
	}

	var req SetRoleRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid role input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	user, err := h.adminUC.SetRole(c.Request().Context(), adminID, userID, entity.SiteRole(req.Role))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newUserView(user))
}

// Impersonate issues a session acting as the target user. The admin's own
// cookie is replaced; the way back is recorded on the impersonated session.
func (h *AdminHandler) Impersonate(c echo.Context) error {
	info, ok := middleware.GetSessionInfo(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid user ID")
	}

	out, err := h.adminUC.Impersonate(c.Request().Context(), info.User.ID, info.Session.ID, targetID, sessionMeta(c))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	setSessionCookie(c, h.cfg, out.Token, out.Session.ExpiresAt)

	return response.Success(c, http.StatusOK, newAuthView(out))
}

// StopImpersonating ends the impersonated session and hands back a fresh
// admin session.
func (h *AdminHandler) StopImpersonating(c echo.Context) error {
	info, ok := middleware.GetSessionInfo(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	out, err := h.adminUC.StopImpersonating(c.Request().Context(), info.Session.TokenHash, sessionMeta(c))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	setSessionCookie(c, h.cfg, out.Token, out.Session.ExpiresAt)

	return response.Success(c, http.StatusOK, newAuthView(out))
}

// RevokeUserSessions ends every session of the target user
func (h *AdminHandler) RevokeUserSessions(c echo.Context) error {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid user ID")
	}

	if err := h.adminUC.RevokeUserSessions(c.Request().Context(), adminID, userID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Sessions revoked"})
}
