package handler

import (
	"log/slog"
	"net/http"

	"passport/config"
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/response"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Config    *config.Config
	Logger    *slog.Logger
}

// SessionHandler holds dependencies for session-related handlers
type SessionHandler struct {
	sessionUC usecase.SessionUsecase
	cfg       *config.Config
	logger    *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler
func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{
		sessionUC: params.SessionUC,
		cfg:       params.Config,
		logger:    params.Logger,
	}
}

// SetActiveOrganizationRequest selects the session's active organization.
// A null organization_id clears the selection.
type SetActiveOrganizationRequest struct {
	OrganizationID *string `json:"organization_id" validate:"omitempty,uuid"`
}

// GetCurrent returns the validated session and its user
func (h *SessionHandler) GetCurrent(c echo.Context) error {
	info, ok := middleware.GetSessionInfo(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"session": newSessionView(info.Session),
		"user":    newUserView(info.User),
	})
}

// List returns the user's active sessions
func (h *SessionHandler) List(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	sessions, err := h.sessionUC.List(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newSessionViews(sessions))
}

// SignOut ends the current session and clears the cookie
func (h *SessionHandler) SignOut(c echo.Context) error {
	token := ""
	if cookie, err := c.Cookie(h.cfg.Session.CookieName); err == nil {
		token = cookie.Value
	}

	if token != "" {
		if err := h.sessionUC.SignOut(c.Request().Context(), token); err != nil {
			return response.HandleAppError(c, err)
		}
	}

	clearSessionCookie(c, h.cfg)

	return response.Success(c, http.StatusOK, map[string]string{"message": "Signed out"})
}

// RevokeByID ends one of the user's sessions
func (h *SessionHandler) RevokeByID(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid session ID")
	}

	if err := h.sessionUC.RevokeByID(c.Request().Context(), userID, sessionID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Session revoked"})
}

// RevokeOthers ends every session except the current one
func (h *SessionHandler) RevokeOthers(c echo.Context) error {
	info, ok := middleware.GetSessionInfo(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	if err := h.sessionUC.RevokeOthers(c.Request().Context(), info.User.ID, info.Session.TokenHash); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Other sessions revoked"})
}

// SetActiveOrganization switches the session's active organization
func (h *SessionHandler) SetActiveOrganization(c echo.Context) error {
	info, ok := middleware.GetSessionInfo(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	var req SetActiveOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid organization input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	var orgID *uuid.UUID
	if req.OrganizationID != nil {
		parsed, err := uuid.Parse(*req.OrganizationID)
		if err != nil {
			return response.BadRequest(c, "INVALID_ID", "Invalid organization ID")
		}
		orgID = &parsed
	}

	if err := h.sessionUC.SetActiveOrganization(c.Request().Context(), info.Session.ID, info.User.ID, orgID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Active organization updated"})
}
