package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-management/internal/service"
)

// requestTimeout bounds every handler's calls into the services.
const requestTimeout = 5 * time.Second

// fail renders a service error.  Store failures are logged with their
// operation and answered with a generic body; everything else carries the
// error text, which never says which credential check failed.
func fail(c echo.Context, logger *slog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotActivated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.ErrNotActivated.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrAccessDenied):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "access denied"})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var se *service.StoreError
	if errors.As(err, &se) {
		logger.Error("store failure", slog.String("op", se.Op), slog.Any("error", se.Err),
			slog.String("path", c.Path()))
	} else {
		logger.Error("unhandled error", slog.Any("error", err), slog.String("path", c.Path()))
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
