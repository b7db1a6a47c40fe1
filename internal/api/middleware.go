package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/rryowa/authsessions/internal/models"
	"github.com/rryowa/authsessions/internal/service"
)

const bearerPrefix = "Bearer "

type AccessTokenParser interface {
	ParseAccessToken(token string) (*service.AccessClaims, error)
}

// BearerAuthMiddleware проверяет access токен в заголовке Authorization.
// Если токен валиден, его claims сохраняются в контексте Echo.
func BearerAuthMiddleware(tokens AccessTokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				return echo.NewHTTPError(http.StatusUnauthorized, "access token is missing")
			}

			claims, err := tokens.ParseAccessToken(strings.TrimSpace(header[len(bearerPrefix):]))
			if err != nil {
				return err
			}

			c.Set(models.MwClaimsKey, claims)
			return next(c)
		}
	}
}

// RequireRole must run after BearerAuthMiddleware.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(models.MwClaimsKey).(*service.AccessClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "access token is missing")
			}
			if claims.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

func GetLoggerMiddlewareConfig(a *API) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogError:     true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"requestID", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				a.log.Errorw("Request", fields...)
			} else {
				a.log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
