package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/catalog"
    "github.com/iliyamo/ballpark-reservation/internal/seatlock"
)

// maxStatusSeats bounds one seat status query.
const maxStatusSeats = 500

// SeatHandler drives the seat lock engine for one purchaser: manual holds,
// releases, availability lookups and confirmation.  JWT authentication and
// role checks have already run.
type SeatHandler struct {
    Locks *seatlock.Engine
    Cat   *catalog.Catalog
}

func NewSeatHandler(locks *seatlock.Engine, cat *catalog.Catalog) *SeatHandler {
    if locks == nil || cat == nil {
        panic("nil dependency passed to NewSeatHandler")
    }
    return &SeatHandler{Locks: locks, Cat: cat}
}

type seatIDsBody struct {
    SeatIDs []string `json:"seat_ids"`
}

// Hold handles POST /v1/games/:id/holds with {"zone_id", "seat_id"}.  The
// zone may be omitted, in which case the seat's own zone is used.
func (h *SeatHandler) Hold(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    var body struct {
        ZoneID string `json:"zone_id"`
        SeatID string `json:"seat_id"`
    }
    if err := c.Bind(&body); err != nil || body.SeatID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_id is required", "reason": string(seatlock.InvalidRequest)})
    }
    if body.ZoneID == "" {
        if s, ok := h.Cat.Seat(body.SeatID); ok {
            body.ZoneID = s.ZoneID
        }
    }
    code, err := h.Locks.TryHold(c.Request().Context(), userID, gameID, body.ZoneID, body.SeatID)
    if err != nil {
        return internalError(c, "hold", err)
    }
    if code != seatlock.OK {
        return c.JSON(statusOf(string(code)), echo.Map{"ok": false, "reason": code, "seat_id": body.SeatID})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "ok":               true,
        "seat_id":          body.SeatID,
        "seat":             h.Cat.DisplayNameOf(body.SeatID),
        "hold_ttl_seconds": int(h.Locks.HoldTTL().Seconds()),
    })
}

// Release handles DELETE /v1/games/:id/holds/:seat.
func (h *SeatHandler) Release(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    seat, ok := h.Cat.Seat(c.Param("seat"))
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found", "reason": string(seatlock.InvalidSeat)})
    }
    released, err := h.Locks.Release(c.Request().Context(), userID, gameID, seat.ZoneID, seat.ID)
    if err != nil {
        return internalError(c, "release", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"released": released, "seat_id": seat.ID})
}

// ReleaseAll handles DELETE /v1/games/:id/holds and drops every hold the
// caller has for the game.
func (h *SeatHandler) ReleaseAll(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    n, err := h.Locks.ReleaseAll(c.Request().Context(), userID, gameID)
    if err != nil {
        return internalError(c, "release all", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"released": n})
}

// Status handles POST /v1/games/:id/seats/status.  Each requested seat gets
// one of AVAILABLE, HELD, HELD_BY_ME, SOLD or INVALID.
func (h *SeatHandler) Status(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    var body seatIDsBody
    if err := c.Bind(&body); err != nil || len(body.SeatIDs) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids is required"})
    }
    if len(body.SeatIDs) > maxStatusSeats {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "too many seat_ids"})
    }
    states, err := h.Locks.StatusFor(c.Request().Context(), userID, gameID, body.SeatIDs)
    if err != nil {
        return internalError(c, "seat status", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"seats": states})
}

// Confirm handles POST /v1/games/:id/confirm with {"seat_ids": [...]}.  All
// listed seats must be held by the caller; they are sold together or not at
// all.
func (h *SeatHandler) Confirm(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    var body seatIDsBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    res, err := h.Locks.Confirm(c.Request().Context(), userID, gameID, body.SeatIDs)
    if err != nil {
        return internalError(c, "confirm", err)
    }
    if !res.OK {
        return c.JSON(statusOf(string(res.Reason)), res)
    }
    return c.JSON(http.StatusCreated, res)
}
