package session

import "errors"

var (
	// ErrConnectivity wraps transport failures while probing or logging in.
	ErrConnectivity = errors.New("gateway unreachable")
	// ErrInvalidCredentials is returned when the gateway rejects username and response.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameRequired means the gateway flags no default user and none was supplied.
	ErrUsernameRequired = errors.New("username required")
	// ErrPasswordRequired means credential login was needed but no password source is configured.
	ErrPasswordRequired = errors.New("password required")
	// ErrStorePersist marks a failed cache write. It is logged, never returned by Connect.
	ErrStorePersist = errors.New("persist session")
	// ErrNotConnected is returned by calls that need an authenticated session.
	ErrNotConnected = errors.New("not connected")
)
