package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/gate"
    "github.com/iliyamo/ballpark-reservation/internal/store"
)

// GateHandler exposes the waiting room of a game.
type GateHandler struct {
    Gate  *gate.Gate
    Games store.Games
}

func NewGateHandler(g *gate.Gate, games store.Games) *GateHandler {
    if g == nil || games == nil {
        panic("nil dependency passed to NewGateHandler")
    }
    return &GateHandler{Gate: g, Games: games}
}

type gateView struct {
    State            string `json:"state"`
    Position         int64  `json:"position,omitempty"`
    RemainingSeconds int64  `json:"remaining_seconds,omitempty"`
    Waiting          int64  `json:"waiting"`
    AvailablePermits int    `json:"available_permits"`
}

// view combines the caller's state with the game-wide counters.
func (h *GateHandler) view(c echo.Context, gameID, userID uint64) (gateView, error) {
    ctx := c.Request().Context()
    us, err := h.Gate.StatusFor(ctx, gameID, userID)
    if err != nil {
        return gateView{}, err
    }
    st, err := h.Gate.Status(ctx, gameID)
    if err != nil {
        return gateView{}, err
    }
    return gateView{
        State:            us.State,
        Position:         us.Position,
        RemainingSeconds: int64(us.Remaining.Seconds()),
        Waiting:          st.Waiting,
        AvailablePermits: st.AvailablePermits,
    }, nil
}

// Enter handles POST /v1/games/:id/gate.  The caller is queued and, when a
// permit is free, admitted right away; 202 means still waiting.
func (h *GateHandler) Enter(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    ctx := c.Request().Context()
    if _, err := h.Games.FindGame(ctx, gameID); err != nil {
        if errors.Is(err, store.ErrGameNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "game not found", "reason": "GAME_NOT_FOUND"})
        }
        return internalError(c, "find game", err)
    }
    res, err := h.Gate.Enqueue(ctx, gameID, userID)
    if err != nil {
        return internalError(c, "enqueue", err)
    }
    if !res.Queued {
        return c.JSON(statusOf(res.Reason), echo.Map{"error": "cannot enter gate", "reason": res.Reason})
    }
    v, err := h.view(c, gameID, userID)
    if err != nil {
        return internalError(c, "gate status", err)
    }
    code := http.StatusOK
    if v.State != gate.StateActive {
        code = http.StatusAccepted
    }
    return c.JSON(code, v)
}

// Status handles GET /v1/games/:id/gate.
func (h *GateHandler) Status(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    v, err := h.view(c, gameID, userID)
    if err != nil {
        return internalError(c, "gate status", err)
    }
    return c.JSON(http.StatusOK, v)
}

// Leave handles DELETE /v1/games/:id/gate.
func (h *GateHandler) Leave(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    left, err := h.Gate.Leave(c.Request().Context(), gameID, userID)
    if err != nil {
        return internalError(c, "leave", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"left": left})
}

// Extend handles POST /v1/games/:id/gate/extend.
func (h *GateHandler) Extend(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    gameID, ok := gameParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid game id"})
    }
    res, err := h.Gate.ExtendSession(c.Request().Context(), gameID, userID)
    if err != nil {
        return internalError(c, "extend", err)
    }
    return c.JSON(statusOf(res.Reason), echo.Map{
        "ok":                res.OK,
        "reason":            res.Reason,
        "extensions":        res.Extensions,
        "remaining_seconds": int64(res.Remaining.Seconds()),
    })
}
