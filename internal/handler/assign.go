package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/assign"
)

// AssignHandler exposes general-channel auto assignment.
type AssignHandler struct {
    Assign *assign.Engine
}

func NewAssignHandler(a *assign.Engine) *AssignHandler {
    if a == nil {
        panic("nil engine passed to NewAssignHandler")
    }
    return &AssignHandler{Assign: a}
}

// AutoAssign handles POST /v1/games/:id/auto-assign.  On success the seats
// are held, not sold; the caller confirms them within the hold TTL.  A
// PARTIAL result is still a success and answers 200.
func (h *AssignHandler) AutoAssign(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    req := assign.Request{Side: assign.SideAny}
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    res, err := h.Assign.Assign(c.Request().Context(), userID, gameID, req)
    if err != nil {
        return internalError(c, "auto-assign", err)
    }
    if !res.OK {
        return c.JSON(statusOf(res.Reason), res)
    }
    return c.JSON(http.StatusOK, res)
}
