package models

// Session is the in-memory record of the current authenticated identity.
type Session struct {
	Token string      `json:"token"`
	User  *UserRecord `json:"user,omitempty"`
}

// IsAuthenticated is true iff a token is present.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// Clone returns a deep copy safe to hand out of a lock.
func (s Session) Clone() Session {
	out := Session{Token: s.Token}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}
