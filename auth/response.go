package auth

import (
	"encoding/hex"
	"fmt"

	"github.com/Hussein-Mazeh/fritzer/krypto"
)

// responseSeparator is "$" percent-encoded; the gateway expects it verbatim in the form body.
const responseSeparator = "%24"

// Credential is a 32-byte PBKDF2-HMAC-SHA-256 digest.
type Credential [krypto.KeyLen]byte

// String renders the credential as lowercase hex.
func (c Credential) String() string {
	return hex.EncodeToString(c[:])
}

// ChallengeResponse computes the login response for a parsed challenge.
//
// Behavior:
//  1. hash1 = PBKDF2(password, Salt1, Iterations1).
//  2. hash2 = PBKDF2(hash1, Salt2, Iterations2), keyed with the raw digest bytes of hash1.
//  3. Returns hex(Salt2) + "%24" + hex(hash2).
//
// The challenge must come from ParseChallenge; a hand-built Challenge with
// empty salts or non-positive iterations panics.
func ChallengeResponse(ch Challenge, password string) string {
	hash1 := mustDerive([]byte(password), ch.Salt1, ch.Iterations1)
	hash2 := mustDerive(hash1[:], ch.Salt2, ch.Iterations2)
	defer zeroize(hash1[:])

	return hex.EncodeToString(ch.Salt2) + responseSeparator + hash2.String()
}

func mustDerive(secret, salt []byte, iterations int) Credential {
	key, err := krypto.DeriveKeyPBKDF2SHA256(secret, salt, iterations)
	if err != nil {
		panic(fmt.Sprintf("auth: derive credential: %v", err))
	}
	var c Credential
	copy(c[:], key)
	zeroize(key)
	return c
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
