package session

import "errors"

// ErrUnknownUser is returned by UpdateProfile when neither the caller nor the
// session knows the user id.
var ErrUnknownUser = errors.New("user id is unknown")
