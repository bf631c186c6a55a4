package catalog

import "strconv"

// SplitName parses a display name such as "B12" into its row letters and
// column number.
func SplitName(name string) (row string, col int, ok bool) {
    i := 0
    for i < len(name) && ((name[i] >= 'A' && name[i] <= 'Z') || (name[i] >= 'a' && name[i] <= 'z')) {
        i++
    }
    if i == 0 || i == len(name) {
        return "", 0, false
    }
    n, err := strconv.Atoi(name[i:])
    if err != nil || n < 0 {
        return "", 0, false
    }
    return name[:i], n, true
}
