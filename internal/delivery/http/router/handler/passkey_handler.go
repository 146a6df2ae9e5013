package handler

import (
	"encoding/json"
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

// PasskeyHandlerParams holds dependencies for PasskeyHandler, injected by Fx.
type PasskeyHandlerParams struct {
	fx.In

	PasskeyUC usecase.PasskeyUsecase
	Config    *config.Config
	Logger    *slog.Logger
}

// PasskeyHandler holds dependencies for WebAuthn passkey handlers
type PasskeyHandler struct {
	passkeyUC usecase.PasskeyUsecase
	cfg       *config.Config
	logger    *slog.Logger
}

// NewPasskeyHandler is the constructor for PasskeyHandler
func NewPasskeyHandler(params PasskeyHandlerParams) *PasskeyHandler {
	return &PasskeyHandler{
		passkeyUC: params.PasskeyUC,
		cfg:       params.Config,
		logger:    params.Logger,
	}
}

// FinishRegistrationRequest carries the authenticator's attestation response.
// The response is forwarded to the WebAuthn library verbatim.
type FinishRegistrationRequest struct {
	CeremonyID string          `json:"ceremony_id" validate:"required,uuid"`
	Name       string          `json:"name" validate:"omitempty,max=100"`
	Response   json.RawMessage `json:"response" validate:"required"`
}

// FinishLoginRequest carries the authenticator's assertion response
type FinishLoginRequest struct {
	CeremonyID string          `json:"ceremony_id" validate:"required,uuid"`
	Response   json.RawMessage `json:"response" validate:"required"`
}

// BeginRegistration starts a credential-creation ceremony
func (h *PasskeyHandler) BeginRegistration(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	out, err := h.passkeyUC.BeginRegistration(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"ceremony_id": out.CeremonyID,
		"options":     json.RawMessage(out.Options),
	})
}

// FinishRegistration validates the attestation response and stores the passkey
func (h *PasskeyHandler) FinishRegistration(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	var req FinishRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid registration input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	passkey, err := h.passkeyUC.FinishRegistration(c.Request().Context(), userID, req.CeremonyID, req.Name, req.Response)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, newPasskeyView(passkey))
}

// BeginLogin starts a discoverable assertion ceremony
func (h *PasskeyHandler) BeginLogin(c echo.Context) error {
	out, err := h.passkeyUC.BeginLogin(c.Request().Context())
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"ceremony_id": out.CeremonyID,
		"options":     json.RawMessage(out.Options),
	})
}

// FinishLogin validates the assertion and issues a session
func (h *PasskeyHandler) FinishLogin(c echo.Context) error {
	var req FinishLoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid login input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.passkeyUC.FinishLogin(c.Request().Context(), req.CeremonyID, req.Response, sessionMeta(c))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	setSessionCookie(c, h.cfg, out.Token, out.Session.ExpiresAt)

	return response.Success(c, http.StatusOK, newAuthView(out))
}

// List returns the user's registered passkeys
func (h *PasskeyHandler) List(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	passkeys, err := h.passkeyUC.List(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newPasskeyViews(passkeys))
}

// Delete removes one of the user's passkeys
func (h *PasskeyHandler) Delete(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	passkeyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid passkey ID")
	}

	if err := h.passkeyUC.Delete(c.Request().Context(), userID, passkeyID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Passkey removed"})
}
