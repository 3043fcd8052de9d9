// Package repository persists users, refresh tokens, streaks, whitelist
// entries, cards and purchases in MySQL. Sentinel errors defined here let
// handlers map storage outcomes to HTTP statuses without inspecting driver
// errors.
package repository

import "errors"

// ErrEmailExists is returned when inserting a user whose email is already
// registered. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrEmailWhitelisted is returned when inserting a whitelist entry for an
// email that is already present. Handlers translate this into HTTP 409.
var ErrEmailWhitelisted = errors.New("email already whitelisted")

// ErrTokenNotFound is returned by rotation and deletion when no live
// refresh-token row matches. A rotation loser in a concurrent race observes
// this error and must fail closed.
var ErrTokenNotFound = errors.New("refresh token not found")

// ErrNotFound is returned when a requested row does not exist. Handlers
// translate this into HTTP 404.
var ErrNotFound = errors.New("not found")
