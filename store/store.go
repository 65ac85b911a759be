// Package store persists the last session id between runs.
//
// Every backend satisfies the same three methods; the session package only
// sees them through its Store interface.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Load when no session id is cached.
	ErrNotFound = errors.New("no cached session")
	// ErrUnsupported signals a backend that is not available on this platform.
	ErrUnsupported = errors.New("session store not supported on this platform")
)

// Nop caches nothing; it backs the "none" store setting.
type Nop struct{}

// Load always reports ErrNotFound.
func (Nop) Load(context.Context) (string, error) { return "", ErrNotFound }

// Save discards the session id.
func (Nop) Save(context.Context, string) error { return nil }

// Clear is a no-op.
func (Nop) Clear(context.Context) error { return nil }
