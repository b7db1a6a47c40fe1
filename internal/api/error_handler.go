package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rryowa/authsessions/internal/controller"
	"github.com/rryowa/authsessions/internal/service"
	"github.com/rryowa/authsessions/internal/util"
)

const (
	reasonInvalidCredentials  = "invalid username or password"
	reasonInvalidRefreshToken = "invalid refresh token"
	reasonInvalidAccessToken  = "invalid access token"
	reasonInternal            = "internal server error"
)

// ErrorHandler maps service errors to responses. Login and refresh failures
// collapse into one reason each so callers cannot tell why they failed.
func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, reason := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI)
		}

		if err := c.JSON(status, controller.ErrorResponse{Reason: reason}); err != nil {
			log.Errorw("failed to write json response", "error", err)
		}
	}
}

func statusFor(err error) (int, string) {
	var (
		he      *echo.HTTPError
		respErr util.MyResponseError
	)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, reasonInvalidCredentials
	case isRefreshTokenError(err):
		return http.StatusUnauthorized, reasonInvalidRefreshToken
	case errors.Is(err, service.ErrTokenExpired), errors.Is(err, service.ErrTokenInvalid):
		return http.StatusUnauthorized, reasonInvalidAccessToken
	case errors.Is(err, service.ErrDuplicateUser):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests, err.Error()
	case errors.As(err, &respErr):
		return respErr.Status, respErr.Msg
	case errors.As(err, &he):
		if he.Code == http.StatusInternalServerError {
			return he.Code, reasonInternal
		}
		return he.Code, fmt.Sprint(he.Message)
	}
	return http.StatusInternalServerError, reasonInternal
}

func isRefreshTokenError(err error) bool {
	return errors.Is(err, service.ErrInvalidRefreshToken) ||
		errors.Is(err, service.ErrRefreshTokenRevoked) ||
		errors.Is(err, service.ErrRefreshTokenExpired)
}
