package catalog

import (
    "strings"
    "testing"

    "github.com/iliyamo/ballpark-reservation/internal/model"
)

func seatsNamed(names ...string) []model.Seat {
    out := make([]model.Seat, len(names))
    for i, n := range names {
        out[i] = model.Seat{ID: "Z-" + n, ZoneID: "Z", Name: n}
    }
    return out
}

func names(seats []model.Seat) string {
    parts := make([]string, len(seats))
    for i, s := range seats {
        parts[i] = s.Name
    }
    return strings.Join(parts, ",")
}

func TestFirstRun(t *testing.T) {
    for _, tc := range []struct {
        seats []string
        n     int
        want  string
    }{
        {[]string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "A10"}, 3, "A1,A2,A3"},
        {[]string{"A1", "A3", "A4", "A5", "B1", "B2"}, 3, "A3,A4,A5"},
        {[]string{"A1", "A3", "B7", "B5", "B6"}, 3, "B5,B6,B7"},
        {[]string{"A1", "A3", "B1"}, 2, ""},
        {[]string{"A9", "A10", "A11"}, 3, "A9,A10,A11"},
    } {
        if got := names(FirstRun(seatsNamed(tc.seats...), tc.n)); got != tc.want {
            t.Errorf("FirstRun(%v, %d) = %q, want %q", tc.seats, tc.n, got, tc.want)
        }
    }
}

func TestLongestRun(t *testing.T) {
    seats := seatsNamed("A1", "A2", "B4", "B5", "B6", "C1")
    if got := names(LongestRun(seats, 4)); got != "B4,B5,B6" {
        t.Errorf("LongestRun(4) = %q", got)
    }
    if got := names(LongestRun(seats, 2)); got != "A1,A2" {
        t.Errorf("LongestRun(2) = %q", got)
    }
}

func TestClosestPair(t *testing.T) {
    if got := names(ClosestPair(seatsNamed("S1", "S4", "T2", "T4"))); got != "T2,T4" {
        t.Errorf("ClosestPair = %q", got)
    }
    if got := ClosestPair(seatsNamed("S1", "T1")); got != nil {
        t.Errorf("ClosestPair across rows = %v", got)
    }
}

func TestIsRun(t *testing.T) {
    if !IsRun(seatsNamed("A3", "A2")) {
        t.Error("A2,A3 not a run")
    }
    if IsRun(seatsNamed("A1", "B2")) || IsRun(seatsNamed("A1", "A3")) || IsRun(nil) {
        t.Error("false positive")
    }
}
