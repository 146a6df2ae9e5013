package middleware

import (
	"strings"

	"passport/config"
	"passport/internal/delivery/http/response"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

const (
	contextKeyUserID      = "userID"
	contextKeySessionInfo = "sessionInfo"

	// headerDisableCookieCache forces validation against the authoritative
	// store, bypassing the secondary-store cookie cache.
	headerDisableCookieCache = "X-Disable-Cookie-Cache"
)

// AuthMiddleware resolves the opaque session token from the httpOnly cookie
// (or a Bearer header for non-browser clients) into the session and user.
type AuthMiddleware struct {
	sessionUC usecase.SessionUsecase
	cfg       *config.Config
}

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Config    *config.Config
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{sessionUC: params.SessionUC, cfg: params.Config}
}

// Authenticate validates the session token and stores the resolved session
// info on the context for handlers to use.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := m.extractToken(c)
		if !ok {
			return response.Unauthorized(c, "SESSION_MISSING", "未登入")
		}

		fresh := c.Request().Header.Get(headerDisableCookieCache) == "true" ||
			c.QueryParam("disableCookieCache") == "true"

		info, err := m.sessionUC.Validate(c.Request().Context(), token, fresh)
		if err != nil {
			return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
		}

		c.Set(contextKeyUserID, info.User.ID)
		c.Set(contextKeySessionInfo, info)

		return next(c)
	}
}

// RequireAdmin rejects callers without the site-wide admin role.
// It must be used AFTER the Authenticate middleware. The usecase layer
// re-reads the role from the authoritative store on every admin operation;
// this check only short-circuits obvious non-admins at the edge.
func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		info, ok := GetSessionInfo(c)
		if !ok || !info.User.IsAdmin() {
			return response.Forbidden(c, "FORBIDDEN", "存取被拒絕")
		}

		return next(c)
	}
}

// extractToken reads the raw session token from the cookie, falling back to
// a Bearer Authorization header.
func (m *AuthMiddleware) extractToken(c echo.Context) (string, bool) {
	if cookie, err := c.Cookie(m.cfg.Session.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	authHeader := c.Request().Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader != "" && token != authHeader && token != "" {
		return token, true
	}

	return "", false
}

// GetUserID returns the authenticated user's ID set by Authenticate.
func GetUserID(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(contextKeyUserID).(uuid.UUID)

	return userID, ok
}

// GetSessionInfo returns the validated session info set by Authenticate.
func GetSessionInfo(c echo.Context) (*usecase.SessionInfo, bool) {
	info, ok := c.Get(contextKeySessionInfo).(*usecase.SessionInfo)

	return info, ok
}
