package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"  // the guard consults the session store under the request context
    "errors"   // errors.Is classifies guard failures
    "log/slog" // structured logging of session store faults
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/salon-management/internal/model"
    "github.com/iliyamo/salon-management/internal/service"
    "github.com/iliyamo/salon-management/internal/utils"
)

// Context keys set by Authenticate.
const (
    ClaimsKey = "claims"
    UserIDKey = "user_id"
    RoleKey   = "role"
)

// Authorizer checks a raw access token; service.Guard implements it.
type Authorizer interface {
    Authorize(ctx context.Context, raw string, roles ...model.Role) (*utils.Claims, error)
}

// Authenticate returns an Echo middleware that extracts the Bearer access
// token, asks the guard to authorize it for roles (none means any role) and
// stores the verified claims in the context.  Handlers read them back with
// ClaimsFrom and pass them to services as the acting principal.
func Authenticate(guard Authorizer, logger *slog.Logger, roles ...model.Role) echo.MiddlewareFunc {
    if logger == nil {
        logger = slog.Default()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims, err := guard.Authorize(c.Request().Context(), raw, roles...)
            switch {
            case err == nil:
            case errors.Is(err, service.ErrForbidden):
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            case errors.Is(err, service.ErrStoreFailure):
                logger.Error("session lookup failed", slog.String("path", c.Path()), slog.Any("error", err))
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
            default:
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            // Downstream middleware (role checks, rate limiting) reads the
            // plain keys; handlers use the full claims.
            c.Set(ClaimsKey, claims)
            c.Set(UserIDKey, claims.Subject)
            c.Set(RoleKey, claims.Role)
            return next(c)
        }
    }
}
