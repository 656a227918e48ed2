package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail logs the service error under event and converts it to an HTTP error.
// Server-side failures never leak their cause to the client.
func fail(l *slog.Logger, event string, err error) error {
	code := statusOf(err)
	switch code {
	case http.StatusInternalServerError:
		l.Error(event, "status", code, "error", err)
		return echo.NewHTTPError(code, "internal error")
	case http.StatusUnauthorized:
		l.Warn(event, "status", code, "error", err)
		if errors.Is(err, service.ErrInvalidCredentials) {
			return echo.NewHTTPError(code, "incorrect email or password")
		}
		return echo.NewHTTPError(code, "could not validate credentials")
	default:
		l.Warn(event, "status", code, "error", err)
		return echo.NewHTTPError(code, err.Error())
	}
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", 400, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}

func paramID(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || v == 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return uint(v), nil
}
