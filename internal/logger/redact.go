package logger

import (
	"log/slog"
	"strings"
)

// Keys that are fully redacted.
var secretKeyPatterns = []string{
	"password",
	"response",
	"secret",
}

// Keys that are partially masked so two runs can still be correlated.
var maskedKeyPatterns = []string{
	"sid",
	"token",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	val := a.Value.String()
	if val == "" {
		return a
	}

	key := strings.ToLower(a.Key)
	for _, p := range secretKeyPatterns {
		if strings.Contains(key, p) {
			return slog.String(a.Key, redactedValue)
		}
	}
	for _, p := range maskedKeyPatterns {
		if strings.Contains(key, p) {
			return slog.String(a.Key, MaskSID(val))
		}
	}
	return a
}

// MaskSID keeps the first and last four characters of a session id.
// The all-zero sentinel carries no secret and is returned unchanged.
func MaskSID(sid string) string {
	if strings.Trim(sid, "0") == "" {
		return sid
	}
	if len(sid) <= 8 {
		return strings.Repeat("*", len(sid))
	}
	return sid[:4] + "..." + sid[len(sid)-4:]
}
