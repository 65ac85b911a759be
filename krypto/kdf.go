package krypto

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

// KeyLen is the output size of every derivation in this package (one SHA-256 block).
const KeyLen = sha256.Size

// DeriveKeyPBKDF2SHA256 derives a KeyLen-byte key using PBKDF2 with HMAC-SHA-256.
//
// secret may be any byte string, including the raw output of a previous call;
// an empty secret is allowed because the gateway accepts empty passwords.
func DeriveKeyPBKDF2SHA256(secret, salt []byte, iterations int) ([]byte, error) {
	if len(salt) == 0 {
		return nil, errors.New("salt is required")
	}
	if iterations <= 0 {
		return nil, errors.New("iteration count must be positive")
	}

	return pbkdf2.Key(secret, salt, iterations, KeyLen, sha256.New), nil
}
