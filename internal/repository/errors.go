// Package repository is the MySQL implementation of the store contracts.
// Sentinel values let higher layers tell failure kinds apart without
// inspecting driver errors.
package repository

import (
    "errors"
    "strings"
)

// ErrConflict is returned when a write collides with an existing row, such
// as reserving a seat that already has a reservation for the game.
// Handlers translate it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// isDuplicate reports a MySQL duplicate-key error (1062).
func isDuplicate(err error) bool {
    return err != nil && strings.Contains(err.Error(), "1062")
}
