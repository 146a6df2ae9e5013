// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// RouterParams holds the handlers and middleware injected by Fx.
type RouterParams struct {
	fx.In

	AccountHandler      *handler.AccountHandler
	SessionHandler      *handler.SessionHandler
	TwoFactorHandler    *handler.TwoFactorHandler
	PasskeyHandler      *handler.PasskeyHandler
	OrganizationHandler *handler.OrganizationHandler
	SubscriptionHandler *handler.SubscriptionHandler
	AdminHandler        *handler.AdminHandler
	HealthHandler       *handler.HealthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimit           *middleware.RateLimitMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	accountHandler      *handler.AccountHandler
	sessionHandler      *handler.SessionHandler
	twoFactorHandler    *handler.TwoFactorHandler
	passkeyHandler      *handler.PasskeyHandler
	organizationHandler *handler.OrganizationHandler
	subscriptionHandler *handler.SubscriptionHandler
	adminHandler        *handler.AdminHandler
	healthHandler       *handler.HealthHandler
	authMiddleware      *middleware.AuthMiddleware
	rateLimit           *middleware.RateLimitMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		accountHandler:      params.AccountHandler,
		sessionHandler:      params.SessionHandler,
		twoFactorHandler:    params.TwoFactorHandler,
		passkeyHandler:      params.PasskeyHandler,
		organizationHandler: params.OrganizationHandler,
		subscriptionHandler: params.SubscriptionHandler,
		adminHandler:        params.AdminHandler,
		healthHandler:       params.HealthHandler,
		authMiddleware:      params.AuthMiddleware,
		rateLimit:           params.RateLimit,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health endpoints
	e.GET("/health", r.healthHandler.Liveness)
	healthGroup := e.Group("/api/health")
	{
		healthGroup.GET("/db", r.healthHandler.Database)
		healthGroup.GET("/redis", r.healthHandler.Redis)
	}

	// Auth routes. Sign-in and the email-sending endpoints are rate limited.
	authGroup := e.Group("/api/auth")
	{
		authGroup.POST("/sign-up", r.accountHandler.SignUp)
		authGroup.POST("/sign-in", r.accountHandler.SignIn, r.rateLimit.Limit("sign-in"))
		authGroup.POST("/sign-in/google", r.accountHandler.SignInWithGoogle)
		authGroup.POST("/sign-out", r.sessionHandler.SignOut)

		authGroup.POST("/password/forgot", r.accountHandler.RequestPasswordReset, r.rateLimit.Limit("password-reset"))
		authGroup.POST("/password/reset", r.accountHandler.ResetPassword)

		authGroup.POST("/verify-email", r.accountHandler.VerifyEmail)
		authGroup.POST("/confirm-email-change", r.accountHandler.ConfirmEmailChange)
		authGroup.POST("/confirm-deletion", r.accountHandler.ConfirmAccountDeletion)

		// Second factor: bridges the challenge token from the first factor.
		authGroup.POST("/two-factor/verify-totp", r.twoFactorHandler.VerifyTotp, r.rateLimit.Limit("two-factor"))
		authGroup.POST("/two-factor/verify-backup-code", r.twoFactorHandler.VerifyBackupCode, r.rateLimit.Limit("two-factor"))

		// Usernameless passkey login.
		authGroup.POST("/passkey/login/begin", r.passkeyHandler.BeginLogin)
		authGroup.POST("/passkey/login/finish", r.passkeyHandler.FinishLogin)
	}

	// Account routes that require authentication
	accountGroup := e.Group("/api/account")
	accountGroup.Use(r.authMiddleware.Authenticate)
	{
		accountGroup.GET("", r.accountHandler.GetAccount)
		accountGroup.PATCH("/profile", r.accountHandler.UpdateProfile)
		accountGroup.POST("/password/change", r.accountHandler.ChangePassword)
		accountGroup.POST("/verification-email", r.accountHandler.SendVerificationEmail, r.rateLimit.Limit("verification-email"))
		accountGroup.POST("/email/change", r.accountHandler.RequestEmailChange)
		accountGroup.POST("/deletion", r.accountHandler.RequestAccountDeletion)

		accountGroup.POST("/two-factor/enable", r.twoFactorHandler.Enable)
		accountGroup.POST("/two-factor/confirm", r.twoFactorHandler.ConfirmEnrollment)
		accountGroup.POST("/two-factor/disable", r.twoFactorHandler.Disable)

		accountGroup.GET("/passkeys", r.passkeyHandler.List)
		accountGroup.POST("/passkeys/register/begin", r.passkeyHandler.BeginRegistration)
		accountGroup.POST("/passkeys/register/finish", r.passkeyHandler.FinishRegistration)
		accountGroup.DELETE("/passkeys/:id", r.passkeyHandler.Delete)
	}

	// Session routes that require authentication
	sessionGroup := e.Group("/api/sessions")
	sessionGroup.Use(r.authMiddleware.Authenticate)
	{
		sessionGroup.GET("/current", r.sessionHandler.GetCurrent)
		sessionGroup.GET("", r.sessionHandler.List)
		sessionGroup.DELETE("/others", r.sessionHandler.RevokeOthers)
		sessionGroup.DELETE("/:id", r.sessionHandler.RevokeByID)
		sessionGroup.PUT("/active-organization", r.sessionHandler.SetActiveOrganization)
	}

	// Organization routes that require authentication
	orgGroup := e.Group("/api/organizations")
	orgGroup.Use(r.authMiddleware.Authenticate)
	{
		orgGroup.POST("", r.organizationHandler.Create)
		orgGroup.GET("", r.organizationHandler.List)
		orgGroup.GET("/:id", r.organizationHandler.Get)
		orgGroup.PATCH("/:id", r.organizationHandler.Update)
		orgGroup.DELETE("/:id", r.organizationHandler.Delete)
		orgGroup.POST("/:id/leave", r.organizationHandler.Leave)

		orgGroup.POST("/:id/invitations", r.organizationHandler.Invite)
		orgGroup.DELETE("/:id/members/:memberId", r.organizationHandler.RemoveMember)
		orgGroup.PUT("/:id/members/:memberId/role", r.organizationHandler.UpdateMemberRole)

		// Billing bridge, scoped to the organization.
		orgGroup.GET("/:id/subscriptions", r.subscriptionHandler.List)
		orgGroup.POST("/:id/subscriptions/upgrade", r.subscriptionHandler.Upgrade)
		orgGroup.POST("/:id/subscriptions/cancel", r.subscriptionHandler.Cancel)
		orgGroup.POST("/:id/subscriptions/restore", r.subscriptionHandler.Restore)
		orgGroup.POST("/:id/subscriptions/portal", r.subscriptionHandler.Portal)
	}

	// Invitation routes addressed to the signed-in user
	invitationGroup := e.Group("/api/invitations")
	invitationGroup.Use(r.authMiddleware.Authenticate)
	{
		invitationGroup.POST("/:invitationId/accept", r.organizationHandler.AcceptInvitation)
		invitationGroup.POST("/:invitationId/reject", r.organizationHandler.RejectInvitation)
		invitationGroup.DELETE("/:invitationId", r.organizationHandler.CancelInvitation)
	}

	// Admin routes: authenticated plus the site-wide admin role.
	// StopImpersonating stays outside RequireAdmin because the caller holds
	// the impersonated (non-admin) session.
	adminGroup := e.Group("/api/admin")
	adminGroup.Use(r.authMiddleware.Authenticate)
	adminGroup.POST("/stop-impersonating", r.adminHandler.StopImpersonating)
	adminGroup.Use(r.authMiddleware.RequireAdmin)
	{
		adminGroup.GET("/users", r.adminHandler.ListUsers)
		adminGroup.PUT("/users/:id/role", r.adminHandler.SetRole)
		adminGroup.POST("/users/:id/impersonate", r.adminHandler.Impersonate)
		adminGroup.DELETE("/users/:id/sessions", r.adminHandler.RevokeUserSessions)
	}
}
