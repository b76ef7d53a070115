// Package repository defines the persistence contract used by the
// reservation services and its MySQL and in-memory implementations.
// Sentinel errors let higher layers tell expected outcomes apart from
// storage failures without inspecting driver-specific error types.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
// Services translate it into a not-found validation failure.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits a unique constraint, such
// as attaching the same reservation to a phase twice.
var ErrDuplicate = errors.New("duplicate")

// ErrStaleState is returned by conditional updates whose precondition no
// longer holds, e.g. approving a reservation that left "pending" between
// the read and the write.
var ErrStaleState = errors.New("stale state")
