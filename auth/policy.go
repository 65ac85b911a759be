package auth

import (
	"strings"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// WeakScore is the highest zxcvbn score still considered weak (0 = trivially guessable, 4 = strong).
const WeakScore = 1

// Strength summarises how guessable a gateway password is.
type Strength struct {
	Score   int
	Entropy float64
}

// Weak reports whether the password should be flagged to the user.
func (s Strength) Weak() bool {
	return s.Score <= WeakScore
}

// PasswordStrength rates a password with zxcvbn. hints are user-specific words
// (username, gateway host) that make a password easier to guess.
func PasswordStrength(pw string, hints ...string) Strength {
	inputs := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.TrimSpace(h)
		if h != "" {
			inputs = append(inputs, h)
		}
	}

	match := zxcvbn.PasswordStrength(pw, inputs)
	return Strength{Score: match.Score, Entropy: match.Entropy}
}
