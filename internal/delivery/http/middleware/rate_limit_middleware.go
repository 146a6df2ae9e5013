package middleware

import (
	"log/slog"
	"strconv"

	"passport/config"
	deliverycontext "passport/internal/delivery/context"
	"passport/internal/delivery/http/response"
	"passport/internal/domain/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// RateLimitMiddleware throttles sensitive endpoints with a fixed window
// counter in the secondary store. The limiter is advisory: a store outage
// lets requests through rather than locking everyone out.
type RateLimitMiddleware struct {
	store  service.SecondaryStore
	cfg    *config.RateLimitConfig
	logger *slog.Logger
}

// RateLimitMiddlewareParams holds dependencies for RateLimitMiddleware, injected by Fx.
type RateLimitMiddlewareParams struct {
	fx.In

	Store  service.SecondaryStore
	Config *config.Config
	Logger *slog.Logger
}

// NewRateLimitMiddleware is the constructor for RateLimitMiddleware.
func NewRateLimitMiddleware(params RateLimitMiddlewareParams) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		store:  params.Store,
		cfg:    params.Config.RateLimit,
		logger: params.Logger,
	}
}

// Limit returns a middleware that counts requests per client IP within the
// named scope. Exceeding the window's budget answers 429 with X-Retry-After.
func (m *RateLimitMiddleware) Limit(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !m.cfg.Enabled {
				return next(c)
			}

			ctx := c.Request().Context()
			key := "rate-limit:" + scope + ":" + c.RealIP()

			count, err := m.store.Incr(ctx, key, m.cfg.Window)
			if err != nil {
				deliverycontext.GetLoggerOrDefault(ctx, m.logger).Warn("Rate limiter unavailable, allowing request",
					slog.String("scope", scope), slog.Any("error", err))

				return next(c)
			}

			if count > int64(m.cfg.Max) {
				retryAfter := int(m.cfg.Window.Seconds())
				c.Response().Header().Set("X-Retry-After", strconv.Itoa(retryAfter))

				return response.Error(c, 429, "RATE_LIMITED", "請求過於頻繁，請稍後再試", nil)
			}

			return next(c)
		}
	}
}
