//go:build darwin

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	keychain "github.com/keybase/go-keychain"
)

const (
	keychainService = "de.fritzer.session"
	keychainLabel   = "fritzer gateway session"
)

// KeychainStore keeps the session id in the macOS Keychain as a generic
// password item, one per gateway. Items are device-local and readable only
// while the device is unlocked.
type KeychainStore struct {
	account string
}

// NewKeychainStore binds the store to gateway, which becomes the Keychain account.
func NewKeychainStore(gateway string) (*KeychainStore, error) {
	gateway = strings.TrimSpace(gateway)
	if gateway == "" {
		return nil, errors.New("gateway is required")
	}
	return &KeychainStore{account: gateway}, nil
}

// Load reads the session id from the Keychain.
func (k *KeychainStore) Load(_ context.Context) (string, error) {
	data, err := keychain.GetGenericPassword(keychainService, k.account, "", "")
	if err != nil {
		return "", fmt.Errorf("read keychain session: %w", err)
	}
	if len(data) == 0 {
		return "", ErrNotFound
	}
	return string(data), nil
}

// Save adds or updates the Keychain item.
func (k *KeychainStore) Save(_ context.Context, sid string) error {
	item := keychain.NewGenericPassword(keychainService, k.account, keychainLabel, []byte(sid), "")
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlockedThisDeviceOnly)

	if err := keychain.AddItem(item); err != nil {
		if err != keychain.ErrorDuplicateItem {
			return fmt.Errorf("add keychain session: %w", err)
		}
		query := keychain.NewGenericPassword(keychainService, k.account, "", nil, "")
		update := keychain.NewItem()
		update.SetData([]byte(sid))
		if err := keychain.UpdateItem(query, update); err != nil {
			return fmt.Errorf("update keychain session: %w", err)
		}
	}
	return nil
}

// Clear deletes the Keychain item; a missing item is not an error.
func (k *KeychainStore) Clear(_ context.Context) error {
	query := keychain.NewGenericPassword(keychainService, k.account, "", nil, "")
	if err := keychain.DeleteItem(query); err != nil && err != keychain.ErrorItemNotFound {
		return fmt.Errorf("remove keychain session: %w", err)
	}
	return nil
}
