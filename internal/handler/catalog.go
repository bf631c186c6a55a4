package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ballpark-reservation/internal/catalog"
)

// CatalogHandler serves the static zone and seat catalog.  Responses never
// change while the process runs, so the routes sit behind the response
// cache.
type CatalogHandler struct {
    Cat *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
    if cat == nil {
        panic("nil catalog passed to NewCatalogHandler")
    }
    return &CatalogHandler{Cat: cat}
}

type zoneView struct {
    ID      string `json:"id"`
    Name    string `json:"name"`
    Side    string `json:"side"`
    Area    string `json:"area,omitempty"`
    Seats   int    `json:"seats"`
    Seniors int    `json:"senior_seats"`
}

type seatView struct {
    ID     string `json:"id"`
    Name   string `json:"name"`
    Senior bool   `json:"senior"`
}

type rowView struct {
    Label string     `json:"label"`
    Seats []seatView `json:"seats"`
}

// Zones handles GET /v1/zones.
func (h *CatalogHandler) Zones(c echo.Context) error {
    zones := h.Cat.Zones()
    out := make([]zoneView, 0, len(zones))
    for _, z := range zones {
        v := zoneView{ID: z.ID, Name: z.Name, Side: string(z.Side), Area: z.Area}
        for _, s := range h.Cat.SeatsInZone(z.ID) {
            v.Seats++
            if s.Senior {
                v.Seniors++
            }
        }
        out = append(out, v)
    }
    return c.JSON(http.StatusOK, echo.Map{"zones": out})
}

// ZoneSeats handles GET /v1/zones/:id/seats and returns the seats grouped
// by row.
func (h *CatalogHandler) ZoneSeats(c echo.Context) error {
    z, ok := h.Cat.Zone(c.Param("id"))
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "zone not found"})
    }
    rows := catalog.Rows(h.Cat.SeatsInZone(z.ID))
    out := make([]rowView, 0, len(rows))
    for _, r := range rows {
        rv := rowView{Label: r.Label, Seats: make([]seatView, 0, len(r.Seats))}
        for _, s := range r.Seats {
            rv.Seats = append(rv.Seats, seatView{ID: s.ID, Name: s.Name, Senior: s.Senior})
        }
        out = append(out, rv)
    }
    return c.JSON(http.StatusOK, echo.Map{"zone_id": z.ID, "zone_name": z.Name, "rows": out})
}
