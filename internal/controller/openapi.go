package controller

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
)

//go:embed openapi/openapi.yaml
var openapiSpec []byte

type ErrorResponse struct {
	Reason string `json:"reason"`
}

func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	return swagger, nil
}

// RegisterHandlers mounts every /api route on g. authMw guards routes that
// need a bearer token, adminMw additionally requires the admin role.
func RegisterHandlers(g *echo.Group, c *Controller, authMw, adminMw echo.MiddlewareFunc) {
	g.POST("/auth/register", c.Register)
	g.POST("/auth/login", c.Login)
	g.POST("/auth/refresh", c.Refresh)
	g.POST("/auth/logout", c.Logout)

	g.POST("/auth/logout-all", c.LogoutAll, authMw)
	g.GET("/auth/sessions", c.ListSessions, authMw)
	g.DELETE("/auth/sessions/:id", c.RevokeSession, authMw)
	g.GET("/auth/me", c.Me, authMw)

	g.GET("/admin/ping", c.AdminPing, authMw, adminMw)
}
