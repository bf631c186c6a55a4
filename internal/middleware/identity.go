package middleware

// identity.go holds the helpers that read the authenticated purchaser out of
// the Echo context.  JWTAuth stores the token subject under "user_id" as the
// decimal string form of the user id.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// subject returns the caller's user id as stored by JWTAuth, or "anon" when
// the request is not authenticated.
func subject(c echo.Context) string {
    if s, ok := c.Get("user_id").(string); ok && s != "" {
        return s
    }
    return "anon"
}

// UserID returns the authenticated user id.  It reports false when no
// valid numeric subject is present.
func UserID(c echo.Context) (uint64, bool) {
    s, ok := c.Get("user_id").(string)
    if !ok || s == "" {
        return 0, false
    }
    id, err := strconv.ParseUint(s, 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}
