package handler

import (
	"log/slog"
	"net/http"

	"passport/internal/domain/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// HealthHandlerParams holds dependencies for HealthHandler, injected by Fx.
type HealthHandlerParams struct {
	fx.In

	DB     *gorm.DB
	Store  service.SecondaryStore
	Logger *slog.Logger
}

// HealthHandler probes the process's critical dependencies.
type HealthHandler struct {
	db     *gorm.DB
	store  service.SecondaryStore
	logger *slog.Logger
}

// NewHealthHandler is the constructor for HealthHandler
func NewHealthHandler(params HealthHandlerParams) *HealthHandler {
	return &HealthHandler{
		db:     params.DB,
		store:  params.Store,
		logger: params.Logger,
	}
}

// healthResponse reports one dependency's liveness.
type healthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Error   string `json:"error,omitempty"`
}

// Liveness answers as long as the process is up
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Database pings the relational store
func (h *HealthHandler) Database(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}

	if err != nil {
		h.logger.Error("Database health check failed", slog.Any("error", err))

		return c.JSON(http.StatusInternalServerError, healthResponse{OK: false, Service: "postgres", Error: err.Error()})
	}

	return c.JSON(http.StatusOK, healthResponse{OK: true, Service: "postgres"})
}

// Redis pings the secondary store
func (h *HealthHandler) Redis(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		h.logger.Error("Redis health check failed", slog.Any("error", err))

		return c.JSON(http.StatusInternalServerError, healthResponse{OK: false, Service: "redis", Error: err.Error()})
	}

	return c.JSON(http.StatusOK, healthResponse{OK: true, Service: "redis"})
}
