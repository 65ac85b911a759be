package session

// State is a step of one authentication run.
type State int

const (
	Unauthenticated State = iota
	Probed
	CachedTokenAccepted
	CachedTokenRejected
	CredentialAuthAttempted
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Probed:
		return "probed"
	case CachedTokenAccepted:
		return "cached-token-accepted"
	case CachedTokenRejected:
		return "cached-token-rejected"
	case CredentialAuthAttempted:
		return "credential-auth-attempted"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Method reports which path produced the current session.
type Method int

const (
	MethodNone Method = iota
	MethodCachedSID
	MethodCredentials
)

func (m Method) String() string {
	switch m {
	case MethodCachedSID:
		return "cached session"
	case MethodCredentials:
		return "credentials"
	default:
		return "none"
	}
}
