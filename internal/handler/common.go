package handler // handler is the thin HTTP boundary over the booking engines

import (
    "errors"
    "log"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/middleware"
)

// getUserID reads the authenticated user id that JWTAuth put on the context.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := middleware.UserID(c); ok {
        return id, nil
    }
    return 0, errors.New("invalid user_id in context")
}

// gameParam parses the :id path parameter.
func gameParam(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    return id, err == nil && id > 0
}

// statusOf maps an engine reason code to an HTTP status.
func statusOf(reason string) int {
    switch reason {
    case "":
        return http.StatusOK
    case "INVALID_REQUEST", "INVALID_SEAT", "QTY_OUT_OF_RANGE":
        return http.StatusBadRequest
    case "GAME_NOT_FOUND", "NOT_FOUND":
        return http.StatusNotFound
    case "SESSION_MISSING", "OUT_OF_SENIOR_PHASE", "NOT_SENIOR":
        return http.StatusForbidden
    case "CONFIRM_FAIL":
        return http.StatusInternalServerError
    }
    return http.StatusConflict
}

// internalError logs err and renders a generic 500.
func internalError(c echo.Context, op string, err error) error {
    log.Printf("handler: %s %s: %v", op, c.Path(), err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
