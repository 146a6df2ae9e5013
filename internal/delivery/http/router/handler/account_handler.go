package handler

import (
	"log/slog"
	"net/http"

	"passport/config"
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/response"
	"passport/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AccountHandlerParams holds dependencies for AccountHandler, injected by Fx.
type AccountHandlerParams struct {
	fx.In

	AccountUC usecase.AccountUsecase
	Config    *config.Config
	Logger    *slog.Logger
}

// AccountHandler holds dependencies for account and credential handlers
type AccountHandler struct {
	accountUC usecase.AccountUsecase
	cfg       *config.Config
	logger    *slog.Logger
}

// NewAccountHandler is the constructor for AccountHandler
func NewAccountHandler(params AccountHandlerParams) *AccountHandler {
	return &AccountHandler{
		accountUC: params.AccountUC,
		cfg:       params.Config,
		logger:    params.Logger,
	}
}

// SignUpRequest represents the request body for registering an account
type SignUpRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
	FavoriteNumber int    `json:"favorite_number"`
	Lang           string `json:"lang"`
}

// SignInRequest represents the request body for a password sign-in
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleSignInRequest represents the request body for a Google sign-in
type GoogleSignInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// EmailRequest represents a request carrying only an email address
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// TokenRequest represents a request carrying an emailed token
type TokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// ResetPasswordRequest represents the request body for completing a password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ChangePasswordRequest represents the request body for changing the password
type ChangePasswordRequest struct {
	CurrentPassword     string `json:"current_password" validate:"required"`
	NewPassword         string `json:"new_password" validate:"required"`
	RevokeOtherSessions bool   `json:"revoke_other_sessions"`
}

// ChangeEmailRequest represents the request body for requesting an email change
type ChangeEmailRequest struct {
	NewEmail string `json:"new_email" validate:"required,email"`
}

// UpdateProfileRequest represents the request body for updating the profile.
// Absent fields are left untouched.
type UpdateProfileRequest struct {
	Name           *string `json:"name" validate:"omitempty,max=100"`
	Image          *string `json:"image" validate:"omitempty,url"`
	FavoriteNumber *int    `json:"favorite_number"`
	Lang           *string `json:"lang" validate:"omitempty,max=10"`
}

// SignUp handles account registration
func (h *AccountHandler) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-up input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.accountUC.SignUp(c.Request().Context(), usecase.SignUpInput{
		Name:           req.Name,
		Email:          req.Email,
		Password:       req.Password,
		FavoriteNumber: req.FavoriteNumber,
		Lang:           req.Lang,
		Meta:           sessionMeta(c),
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	setSessionCookie(c, h.cfg, out.Token, out.Session.ExpiresAt)

	return response.Success(c, http.StatusCreated, newAuthView(out))
}

// SignIn handles a password sign-in. Accounts with two-factor enabled get a
// challenge token back instead of a session.
func (h *AccountHandler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-in input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.accountUC.SignIn(c.Request().Context(), usecase.SignInInput{
		Email:    req.Email,
		Password: req.Password,
		Meta:     sessionMeta(c),
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	if !out.TwoFactorRequired {
		setSessionCookie(c, h.cfg, out.Token, out.Session.ExpiresAt)
	}

	return response.Success(c, http.StatusOK, newAuthView(out))
}

// SignInWithGoogle handles a Google ID-token sign-in
func (h *AccountHandler) SignInWithGoogle(c echo.Context) error {
	var req GoogleSignInRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid Google sign-in input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	out, err := h.accountUC.SignInWithGoogle(c.Request().Context(), usecase.GoogleSignInInput{
		IDToken: req.IDToken,
		Meta:    sessionMeta(c),
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	setSessionCookie(c, h.cfg, out.Token, out.Session.ExpiresAt)

	return response.Success(c, http.StatusOK, newAuthView(out))
}

// RequestPasswordReset emails a reset link. Always answers 200 so the
// endpoint cannot be used to enumerate accounts.
func (h *AccountHandler) RequestPasswordReset(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid email input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	if err := h.accountUC.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "If the address exists, a reset email has been sent"})
}

// ResetPassword consumes a reset token and sets the new password
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid reset input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	if err := h.accountUC.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Password has been reset"})
}

// ChangePassword verifies the current password and sets a new one
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	info, ok := middleware.GetSessionInfo(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid password input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	err := h.accountUC.ChangePassword(c.Request().Context(), usecase.ChangePasswordInput{
		UserID:           info.User.ID,
		CurrentPassword:  req.CurrentPassword,
		NewPassword:      req.NewPassword,
		RevokeOthers:     req.RevokeOtherSessions,
		CurrentTokenHash: info.Session.TokenHash,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Password changed"})
}

// SendVerificationEmail emails a verification link, subject to a cooldown
func (h *AccountHandler) SendVerificationEmail(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	if err := h.accountUC.SendVerificationEmail(c.Request().Context(), userID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Verification email sent"})
}

// VerifyEmail consumes an emailed verification token
func (h *AccountHandler) VerifyEmail(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid token input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	if err := h.accountUC.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Email verified"})
}

// RequestEmailChange emails a confirmation link to the new address
func (h *AccountHandler) RequestEmailChange(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	var req ChangeEmailRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid email input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	if err := h.accountUC.RequestEmailChange(c.Request().Context(), userID, req.NewEmail); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Confirmation email sent to the new address"})
}

// ConfirmEmailChange consumes the token and moves the account to the new address
func (h *AccountHandler) ConfirmEmailChange(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid token input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	if err := h.accountUC.ConfirmEmailChange(c.Request().Context(), req.Token); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Email address updated"})
}

// RequestAccountDeletion emails a deletion confirmation link
func (h *AccountHandler) RequestAccountDeletion(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	if err := h.accountUC.RequestAccountDeletion(c.Request().Context(), userID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Deletion confirmation email sent"})
}

// ConfirmAccountDeletion consumes the token and deletes the account
func (h *AccountHandler) ConfirmAccountDeletion(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid token input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	if err := h.accountUC.ConfirmAccountDeletion(c.Request().Context(), req.Token); err != nil {
		return response.HandleAppError(c, err)
	}

	clearSessionCookie(c, h.cfg)

	return response.Success(c, http.StatusOK, map[string]string{"message": "Account deleted"})
}

// UpdateProfile updates the mutable profile fields
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid profile input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	user, err := h.accountUC.UpdateProfile(c.Request().Context(), userID, usecase.UpdateProfileInput{
		Name:           req.Name,
		Image:          req.Image,
		FavoriteNumber: req.FavoriteNumber,
		Lang:           req.Lang,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newUserView(user))
}

// GetAccount returns the signed-in user's account view
func (h *AccountHandler) GetAccount(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	account, err := h.accountUC.GetAccount(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"user":         newUserView(account.User),
		"credentials":  newCredentialViews(account.Credentials),
		"has_password": account.HasPassword,
	})
}
