package middleware

// identity.go holds the accessors for the principal that Authenticate put in
// the Echo context.  Anonymous requests (credential endpoints) have none.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/salon-management/internal/utils"
)

// ClaimsFrom returns the verified claims of the current request.
func ClaimsFrom(c echo.Context) (*utils.Claims, bool) {
    claims, ok := c.Get(ClaimsKey).(*utils.Claims)
    return claims, ok && claims != nil
}

// currentUserID returns the authenticated principal id, or "anon" when the
// request carries none.
func currentUserID(c echo.Context) string {
    if s, ok := c.Get(UserIDKey).(string); ok && s != "" {
        return s
    }
    return "anon"
}
