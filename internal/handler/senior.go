package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/model"
    "github.com/iliyamo/ballpark-reservation/internal/senior"
    "github.com/iliyamo/ballpark-reservation/internal/store"
)

// reasonNotSenior is returned to callers below model.SeniorAge.
const reasonNotSenior = "NOT_SENIOR"

// SeniorHandler exposes the senior channel.  Eligibility is decided here
// from the purchaser's birth date; the engine trusts its caller.
type SeniorHandler struct {
    Senior *senior.Engine
    Fans   store.Fans
    now    func() time.Time
}

func NewSeniorHandler(s *senior.Engine, fans store.Fans) *SeniorHandler {
    if s == nil || fans == nil {
        panic("nil dependency passed to NewSeniorHandler")
    }
    return &SeniorHandler{Senior: s, Fans: fans, now: time.Now}
}

// Book handles POST /v1/games/:id/senior with {"qty": n}.  Seats are picked
// and sold in one step; qty is clamped to the per-game allowance.
func (h *SeniorHandler) Book(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    var body struct {
        Qty int `json:"qty"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx := c.Request().Context()
    birth, err := h.Fans.BirthDate(ctx, userID)
    if err != nil && !errors.Is(err, store.ErrUserNotFound) {
        return internalError(c, "birth date", err)
    }
    if !model.IsSeniorOn(birth, h.now()) {
        return c.JSON(statusOf(reasonNotSenior), echo.Map{"ok": false, "reason": reasonNotSenior})
    }
    res, err := h.Senior.Book(ctx, userID, gameID, body.Qty)
    if err != nil {
        return internalError(c, "senior book", err)
    }
    if !res.OK {
        return c.JSON(statusOf(res.Reason), res)
    }
    return c.JSON(http.StatusCreated, res)
}
