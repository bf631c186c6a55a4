package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/store"
)

// ReservationHandler lists a purchaser's sold seats across both channels.
type ReservationHandler struct {
    Ledger store.Ledger
}

func NewReservationHandler(ledger store.Ledger) *ReservationHandler {
    if ledger == nil {
        panic("nil ledger passed to NewReservationHandler")
    }
    return &ReservationHandler{Ledger: ledger}
}

// ListMine handles GET /v1/my-reservations.
func (h *ReservationHandler) ListMine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Ledger.ListByUser(c.Request().Context(), userID)
    if err != nil {
        return internalError(c, "list reservations", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}
