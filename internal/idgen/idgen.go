// Package idgen mints short random tokens used as lock owners and request
// ids.
package idgen

import (
    "fmt"

    nanoid "github.com/matoous/go-nanoid/v2"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const size = 16

// Token prefixes.
const (
    LockPrefix    = "lk-"
    RequestPrefix = "rq-"
)

// New returns prefix followed by a random body.
func New(prefix string) (string, error) {
    body, err := nanoid.Generate(alphabet, size)
    if err != nil {
        return "", fmt.Errorf("idgen: %w", err)
    }
    return prefix + body, nil
}

// LockToken identifies the owner of a seat lock for one commit attempt.
func LockToken() (string, error) { return New(LockPrefix) }

// RequestID tags one HTTP request in the logs.
func RequestID() (string, error) { return New(RequestPrefix) }
