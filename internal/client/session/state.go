package session

// State is the authentication state of the controller.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	// StateAuthError is entered when a sign-in or sign-up is rejected. The
	// controller falls back to StateAnonymous right after reporting it.
	StateAuthError
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthError:
		return "auth_error"
	default:
		return "unknown"
	}
}
