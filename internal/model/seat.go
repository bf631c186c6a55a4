package model

// Side classifies a zone relative to the two teams.  It drives the
// side-preference filter of the auto-assignment channel.
type Side string

const (
    SideHome    Side = "HOME"
    SideAway    Side = "AWAY"
    SideNeutral Side = "NEUTRAL"
)

// Zone is a block of seats sold together in the catalog.
//
// Fields:
//  ID    – stable zone identifier (e.g. "1B-INFIELD").
//  Name  – display name.
//  Side  – HOME, AWAY or NEUTRAL.
//  Area  – coarse location used as the favorite-player hint (e.g. INFIELD).
type Zone struct {
    ID   string
    Name string
    Side Side
    Area string
}

// Seat describes a physical seat.  Seats are immutable catalog data; the
// display name encodes a row letter and a column number such as "A7".
//
// Fields:
//  ID     – unique seat identifier.
//  ZoneID – zone the seat belongs to.
//  Name   – display name (row + column).
//  Senior – whether the seat is reserved for the senior channel.
type Seat struct {
    ID     string
    ZoneID string
    Name   string
    Senior bool
}
