//go:build !darwin

package store

import "context"

// KeychainStore is only available on macOS.
type KeychainStore struct{}

// NewKeychainStore always fails off macOS.
func NewKeychainStore(string) (*KeychainStore, error) {
	return nil, ErrUnsupported
}

// Load is unavailable on non-macOS platforms.
func (*KeychainStore) Load(context.Context) (string, error) { return "", ErrUnsupported }

// Save is unavailable on non-macOS platforms.
func (*KeychainStore) Save(context.Context, string) error { return ErrUnsupported }

// Clear is unavailable on non-macOS platforms.
func (*KeychainStore) Clear(context.Context) error { return ErrUnsupported }
