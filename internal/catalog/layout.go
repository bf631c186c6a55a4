package catalog

import (
    "sort"

    "github.com/iliyamo/ballpark-reservation/internal/model"
)

// Row is one seat row ordered by column.
type Row struct {
    Label string
    Seats []model.Seat
    Cols  []int
}

// Rows groups seats by row letters in order of first appearance and sorts
// each row by column.  Seats whose names do not parse are dropped.
func Rows(seats []model.Seat) []Row {
    var rows []Row
    idx := map[string]int{}
    for _, s := range seats {
        label, col, ok := SplitName(s.Name)
        if !ok {
            continue
        }
        i, seen := idx[label]
        if !seen {
            i = len(rows)
            idx[label] = i
            rows = append(rows, Row{Label: label})
        }
        rows[i].Seats = append(rows[i].Seats, s)
        rows[i].Cols = append(rows[i].Cols, col)
    }
    for i := range rows {
        sort.Sort(byCol(rows[i]))
    }
    return rows
}

type byCol Row

func (r byCol) Len() int           { return len(r.Seats) }
func (r byCol) Less(i, j int) bool { return r.Cols[i] < r.Cols[j] }
func (r byCol) Swap(i, j int) {
    r.Seats[i], r.Seats[j] = r.Seats[j], r.Seats[i]
    r.Cols[i], r.Cols[j] = r.Cols[j], r.Cols[i]
}

// runs calls fn with every maximal run of consecutive columns, row by row.
// fn returns false to stop.
func runs(seats []model.Seat, fn func(run []model.Seat) bool) {
    for _, r := range Rows(seats) {
        start := 0
        for i := 1; i <= len(r.Seats); i++ {
            if i < len(r.Seats) && r.Cols[i] == r.Cols[i-1]+1 {
                continue
            }
            if !fn(r.Seats[start:i]) {
                return
            }
            start = i
        }
    }
}

// FirstRun returns the first n seats sharing a row with consecutive
// columns, or nil.
func FirstRun(seats []model.Seat, n int) []model.Seat {
    if n <= 0 {
        return nil
    }
    var out []model.Seat
    runs(seats, func(run []model.Seat) bool {
        if len(run) >= n {
            out = append([]model.Seat(nil), run[:n]...)
            return false
        }
        return true
    })
    return out
}

// LongestRun returns the first longest run, cut down to at most max seats.
func LongestRun(seats []model.Seat, max int) []model.Seat {
    var best []model.Seat
    runs(seats, func(run []model.Seat) bool {
        if len(run) > len(best) {
            best = run
        }
        return len(best) < max
    })
    if len(best) > max {
        best = best[:max]
    }
    return append([]model.Seat(nil), best...)
}

// ClosestPair returns the two seats in one row with the smallest column
// gap, earliest row first on ties, or nil when no row has two seats.
func ClosestPair(seats []model.Seat) []model.Seat {
    var out []model.Seat
    gap := -1
    for _, r := range Rows(seats) {
        for i := 1; i < len(r.Seats); i++ {
            if d := r.Cols[i] - r.Cols[i-1]; gap < 0 || d < gap {
                gap = d
                out = []model.Seat{r.Seats[i-1], r.Seats[i]}
            }
        }
    }
    return out
}

// IsRun reports whether seats occupy consecutive columns of a single row.
func IsRun(seats []model.Seat) bool {
    if len(seats) == 0 {
        return false
    }
    rows := Rows(seats)
    if len(rows) != 1 || len(rows[0].Seats) != len(seats) {
        return false
    }
    for i := 1; i < len(rows[0].Cols); i++ {
        if rows[0].Cols[i] != rows[0].Cols[i-1]+1 {
            return false
        }
    }
    return true
}
