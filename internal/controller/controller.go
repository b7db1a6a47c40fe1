package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/authsessions/internal/models"
	"github.com/rryowa/authsessions/internal/service"
	"github.com/rryowa/authsessions/internal/util"
)

type Controller struct {
	zapLogger   *zap.SugaredLogger
	authService *service.AuthService
}

func NewController(logger *zap.SugaredLogger, authService *service.AuthService) *Controller {
	return &Controller{
		zapLogger:   logger,
		authService: authService,
	}
}

// (GET /health/live).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (GET /health/ready).
func (c *Controller) CheckReady(ctx echo.Context) error {
	if err := c.authService.Ping(ctx.Request().Context()); err != nil {
		c.zapLogger.Warnw("readiness check failed", "error", err)
		return ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{Reason: "storage unavailable"})
	}
	return ctx.JSON(http.StatusOK, "ok")
}

// (GET /api/admin/ping).
func (c *Controller) AdminPing(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{"ok": true, "at": time.Now().UTC()})
}

func clientMetadata(ctx echo.Context) models.ClientMetadata {
	return models.ClientMetadata{
		UserAgent: ctx.Request().UserAgent(),
		IPAddress: ctx.RealIP(),
	}
}

func claimsFromContext(ctx echo.Context) (*service.AccessClaims, error) {
	claims, ok := ctx.Get(models.MwClaimsKey).(*service.AccessClaims)
	if !ok || claims == nil {
		return nil, util.NewResponseError(http.StatusUnauthorized, "missing access token")
	}
	return claims, nil
}
