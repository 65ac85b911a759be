package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SupportedVersion is the only challenge version accepted: PBKDF2 in two rounds.
const SupportedVersion = "2"

const challengeFields = 5

var (
	// ErrMalformedChallenge indicates the challenge string cannot be split into its parameters.
	ErrMalformedChallenge = errors.New("malformed challenge")
	// ErrUnsupportedProtocolVersion indicates a challenge version other than SupportedVersion.
	ErrUnsupportedProtocolVersion = errors.New("unsupported challenge protocol version")
)

// Challenge holds the parameters the gateway issues for a login attempt.
type Challenge struct {
	Version     string
	Iterations1 int
	Salt1       []byte
	Iterations2 int
	Salt2       []byte
}

// ParseChallenge decodes a challenge of the form
// "2$<iter1>$<salt1 hex>$<iter2>$<salt2 hex>".
func ParseChallenge(raw string) (Challenge, error) {
	fields := strings.Split(raw, "$")
	if len(fields) != challengeFields {
		return Challenge{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedChallenge, challengeFields, len(fields))
	}
	if fields[0] != SupportedVersion {
		return Challenge{}, fmt.Errorf("%w: %q", ErrUnsupportedProtocolVersion, fields[0])
	}

	iter1, err := parseIterations(fields[1])
	if err != nil {
		return Challenge{}, fmt.Errorf("%w: first iteration count: %v", ErrMalformedChallenge, err)
	}
	salt1, err := hex.DecodeString(fields[2])
	if err != nil || len(salt1) == 0 {
		return Challenge{}, fmt.Errorf("%w: first salt is not hex", ErrMalformedChallenge)
	}
	iter2, err := parseIterations(fields[3])
	if err != nil {
		return Challenge{}, fmt.Errorf("%w: second iteration count: %v", ErrMalformedChallenge, err)
	}
	salt2, err := hex.DecodeString(fields[4])
	if err != nil || len(salt2) == 0 {
		return Challenge{}, fmt.Errorf("%w: second salt is not hex", ErrMalformedChallenge)
	}

	return Challenge{
		Version:     fields[0],
		Iterations1: iter1,
		Salt1:       salt1,
		Iterations2: iter2,
		Salt2:       salt2,
	}, nil
}

func parseIterations(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if n <= 0 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}
