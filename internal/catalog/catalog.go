// Package catalog is the read-only seat and zone catalog.  It is loaded once
// at startup from a TOML file and never mutated afterwards, so it is safe for
// concurrent use without locking.
package catalog

import (
    "fmt"
    "os"
    "strings"

    "github.com/BurntSushi/toml"

    "github.com/iliyamo/ballpark-reservation/internal/model"
)

type fileRow struct {
    Label  string `toml:"label"`
    First  int    `toml:"first"`
    Last   int    `toml:"last"`
    Senior bool   `toml:"senior"`
}

type fileZone struct {
    ID   string    `toml:"id"`
    Name string    `toml:"name"`
    Side string    `toml:"side"`
    Area string    `toml:"area"`
    Rows []fileRow `toml:"rows"`
}

type file struct {
    Zones     []fileZone        `toml:"zones"`
    Positions map[string]string `toml:"positions"`
}

// Catalog indexes zones and seats.  Zones keep file order, which is also
// the default zone priority of both assignment channels.
type Catalog struct {
    zones     []model.Zone
    zoneByID  map[string]model.Zone
    seats     map[string][]model.Seat
    seatByID  map[string]model.Seat
    positions map[string]string
}

// Load reads and validates the catalog file at path.
func Load(path string) (*Catalog, error) {
    raw, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("read catalog: %w", err)
    }
    return Parse(string(raw))
}

// Parse builds a catalog from TOML text.
func Parse(text string) (*Catalog, error) {
    var f file
    if _, err := toml.Decode(text, &f); err != nil {
        return nil, fmt.Errorf("decode catalog: %w", err)
    }
    c := &Catalog{
        zoneByID:  make(map[string]model.Zone, len(f.Zones)),
        seats:     make(map[string][]model.Seat, len(f.Zones)),
        seatByID:  make(map[string]model.Seat),
        positions: make(map[string]string, len(f.Positions)),
    }
    for pos, area := range f.Positions {
        c.positions[strings.ToUpper(strings.TrimSpace(pos))] = strings.ToUpper(strings.TrimSpace(area))
    }
    for _, fz := range f.Zones {
        z, err := toZone(fz)
        if err != nil {
            return nil, err
        }
        if _, dup := c.zoneByID[z.ID]; dup {
            return nil, fmt.Errorf("duplicate zone %q", z.ID)
        }
        c.zones = append(c.zones, z)
        c.zoneByID[z.ID] = z
        for _, r := range fz.Rows {
            if err := validRow(z.ID, r); err != nil {
                return nil, err
            }
            for col := r.First; col <= r.Last; col++ {
                name := fmt.Sprintf("%s%d", strings.ToUpper(r.Label), col)
                s := model.Seat{ID: z.ID + "-" + name, ZoneID: z.ID, Name: name, Senior: r.Senior}
                if _, dup := c.seatByID[s.ID]; dup {
                    return nil, fmt.Errorf("duplicate seat %q", s.ID)
                }
                c.seatByID[s.ID] = s
                c.seats[z.ID] = append(c.seats[z.ID], s)
            }
        }
    }
    return c, nil
}

func toZone(fz fileZone) (model.Zone, error) {
    id := strings.TrimSpace(fz.ID)
    if id == "" || strings.ContainsAny(id, ": ") {
        return model.Zone{}, fmt.Errorf("invalid zone id %q", fz.ID)
    }
    side := model.Side(strings.ToUpper(strings.TrimSpace(fz.Side)))
    switch side {
    case model.SideHome, model.SideAway, model.SideNeutral:
    case "":
        side = model.SideNeutral
    default:
        return model.Zone{}, fmt.Errorf("zone %s: unknown side %q", id, fz.Side)
    }
    name := fz.Name
    if name == "" {
        name = id
    }
    return model.Zone{ID: id, Name: name, Side: side, Area: strings.ToUpper(fz.Area)}, nil
}

func validRow(zoneID string, r fileRow) error {
    if r.Label == "" {
        return fmt.Errorf("zone %s: row without label", zoneID)
    }
    for _, ch := range r.Label {
        if (ch < 'A' || ch > 'Z') && (ch < 'a' || ch > 'z') {
            return fmt.Errorf("zone %s: row label %q must be letters", zoneID, r.Label)
        }
    }
    if r.First < 1 || r.Last < r.First {
        return fmt.Errorf("zone %s row %s: bad range %d..%d", zoneID, r.Label, r.First, r.Last)
    }
    return nil
}

func (c *Catalog) ExistsZone(zoneID string) bool {
    _, ok := c.zoneByID[zoneID]
    return ok
}

// SeatsInZone returns the zone's seats in catalog order.  The slice is
// shared; callers must not modify it.
func (c *Catalog) SeatsInZone(zoneID string) []model.Seat { return c.seats[zoneID] }

func (c *Catalog) SeatBelongsToZone(zoneID, seatID string) bool {
    s, ok := c.seatByID[seatID]
    return ok && s.ZoneID == zoneID
}

func (c *Catalog) Seat(seatID string) (model.Seat, bool) {
    s, ok := c.seatByID[seatID]
    return s, ok
}

func (c *Catalog) DisplayNameOf(seatID string) string { return c.seatByID[seatID].Name }

func (c *Catalog) ZoneDisplayName(zoneID string) string { return c.zoneByID[zoneID].Name }

func (c *Catalog) Zone(zoneID string) (model.Zone, bool) {
    z, ok := c.zoneByID[zoneID]
    return z, ok
}

// Zones returns every zone in catalog order.
func (c *Catalog) Zones() []model.Zone { return c.zones }

// ZonesWithSenior returns, in catalog order, the zones holding at least one
// senior seat.
func (c *Catalog) ZonesWithSenior() []model.Zone {
    var out []model.Zone
    for _, z := range c.zones {
        for _, s := range c.seats[z.ID] {
            if s.Senior {
                out = append(out, z)
                break
            }
        }
    }
    return out
}

// AreaForPosition maps a player position to the zone area fans of that
// player prefer.  The empty string means no preference.
func (c *Catalog) AreaForPosition(position string) string {
    return c.positions[strings.ToUpper(strings.TrimSpace(position))]
}
