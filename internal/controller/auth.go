package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"

	"github.com/rryowa/authsessions/internal/models"
	"github.com/rryowa/authsessions/internal/util"
)

// (POST /api/auth/register).
func (c *Controller) Register(ctx echo.Context) error {
	var req models.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}

	c.zapLogger.Infow("register requested", "username", req.Username)
	user, err := c.authService.Register(ctx.Request().Context(), req.Username, req.Password, req.Role)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, models.RegisterResponse{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
}

// (POST /api/auth/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}

	pair, err := c.authService.Login(ctx.Request().Context(), req.Username, req.Password, clientMetadata(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pair)
}

// (POST /api/auth/refresh).
func (c *Controller) Refresh(ctx echo.Context) error {
	var req models.TokenRefreshRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}

	pair, err := c.authService.Refresh(ctx.Request().Context(), req.RefreshToken, clientMetadata(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, pair)
}

// (POST /api/auth/logout). Always 204, even for unknown tokens.
func (c *Controller) Logout(ctx echo.Context) error {
	var req models.TokenRefreshRequest
	if err := ctx.Bind(&req); err != nil {
		return util.NewResponseError(http.StatusBadRequest, "invalid request body")
	}

	c.authService.Logout(ctx.Request().Context(), req.RefreshToken)
	return ctx.NoContent(http.StatusNoContent)
}

// (POST /api/auth/logout-all).
func (c *Controller) LogoutAll(ctx echo.Context) error {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return err
	}

	if _, err := c.authService.LogoutAll(ctx.Request().Context(), claims.UserID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// (GET /api/auth/sessions).
func (c *Controller) ListSessions(ctx echo.Context) error {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return err
	}

	sessions, err := c.authService.ListSessions(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sessions)
}

// (DELETE /api/auth/sessions/{id}).
func (c *Controller) RevokeSession(ctx echo.Context) error {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return err
	}

	var id int64
	err = runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return util.NewResponseError(http.StatusBadRequest, "Invalid format for parameter id: %s", err)
	}

	if err := c.authService.RevokeSession(ctx.Request().Context(), claims.UserID, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// (GET /api/auth/me).
func (c *Controller) Me(ctx echo.Context) error {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return err
	}

	resp := models.MeResponse{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return ctx.JSON(http.StatusOK, resp)
}
