package handler

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"passport/config"
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/response"
	"passport/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// TwoFactorHandlerParams holds dependencies for TwoFactorHandler, injected by Fx.
type TwoFactorHandlerParams struct {
	fx.In

	TwoFactorUC usecase.TwoFactorUsecase
	Config      *config.Config
	Logger      *slog.Logger
}

// TwoFactorHandler holds dependencies for two-factor handlers
type TwoFactorHandler struct {
	twoFactorUC usecase.TwoFactorUsecase
	cfg         *config.Config
	logger      *slog.Logger
}

// NewTwoFactorHandler is the constructor for TwoFactorHandler
func NewTwoFactorHandler(params TwoFactorHandlerParams) *TwoFactorHandler {
	return &TwoFactorHandler{
		twoFactorUC: params.TwoFactorUC,
		cfg:         params.Config,
		logger:      params.Logger,
	}
}

// PasswordRequest re-verifies the password for sensitive operations
type PasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// TotpCodeRequest carries a 6-digit TOTP code
type TotpCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// SecondFactorRequest completes a sign-in with the challenge token from the
// first factor plus a code
type SecondFactorRequest struct {
	ChallengeToken string `json:"challenge_token" validate:"required"`
	Code           string `json:"code" validate:"required"`
}

// Enable starts TOTP enrollment. The secret, QR code and backup codes are
// shown exactly once.
func (h *TwoFactorHandler) Enable(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	var req PasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.twoFactorUC.Enable(c.Request().Context(), userID, req.Password)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"secret":       out.Secret,
		"uri":          out.URI,
		"qr_code":      base64.StdEncoding.EncodeToString(out.QRCode),
		"backup_codes": out.BackupCodes,
	})
}

// ConfirmEnrollment commits a pending enrollment with a correct TOTP code
func (h *TwoFactorHandler) ConfirmEnrollment(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	var req TotpCodeRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid code input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	if err := h.twoFactorUC.ConfirmEnrollment(c.Request().Context(), userID, req.Code); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Two-factor authentication enabled"})
}

// Disable removes two-factor after re-verifying the password
func (h *TwoFactorHandler) Disable(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	var req PasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	if err := h.twoFactorUC.Disable(c.Request().Context(), userID, req.Password); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Two-factor authentication disabled"})
}

// VerifyTotp completes a two-factor sign-in with a TOTP code
func (h *TwoFactorHandler) VerifyTotp(c echo.Context) error {
	var req SecondFactorRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid verification input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.twoFactorUC.VerifyTotp(c.Request().Context(), req.ChallengeToken, req.Code, sessionMeta(c))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	setSessionCookie(c, h.cfg, out.Token, out.Session.ExpiresAt)

	return response.Success(c, http.StatusOK, newAuthView(out))
}

// VerifyBackupCode completes a two-factor sign-in with a single-use backup code
func (h *TwoFactorHandler) VerifyBackupCode(c echo.Context) error {
	var req SecondFactorRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid verification input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.twoFactorUC.VerifyBackupCode(c.Request().Context(), req.ChallengeToken, req.Code, sessionMeta(c))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	setSessionCookie(c, h.cfg, out.Token, out.Session.ExpiresAt)

	return response.Success(c, http.StatusOK, newAuthView(out))
}
