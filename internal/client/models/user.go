// Package models defines the session-side data the client keeps about the
// signed-in resident.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// UserRecord is the server-reported projection of the user used for session
// purposes. It is only ever filled from server replies.
type UserRecord struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Bio        string `json:"bio"`
	IsVerified bool   `json:"isVerified"`
	Token      string `json:"token,omitempty"`
}

// fieldAliases lists accepted wire names per field, camelCase first.
var fieldAliases = struct {
	id, email, firstName, lastName, phone, bio, verified []string
}{
	id:        []string{"id", "userId", "user_id", "_id"},
	email:     []string{"email"},
	firstName: []string{"firstName", "first_name"},
	lastName:  []string{"lastName", "last_name"},
	phone:     []string{"phone", "phoneNumber", "phone_number"},
	bio:       []string{"bio"},
	verified:  []string{"isVerified", "is_verified", "verified"},
}

// Merge overlays the fields present in m onto u. Absent keys leave the
// current value alone and the token is never taken from m.
func (u *UserRecord) Merge(m map[string]any) {
	if m == nil {
		return
	}
	mergeString(&u.ID, m, fieldAliases.id)
	mergeString(&u.Email, m, fieldAliases.email)
	mergeString(&u.FirstName, m, fieldAliases.firstName)
	mergeString(&u.LastName, m, fieldAliases.lastName)
	mergeString(&u.Phone, m, fieldAliases.phone)
	mergeString(&u.Bio, m, fieldAliases.bio)
	for _, key := range fieldAliases.verified {
		if v, ok := m[key]; ok {
			u.IsVerified = ParseVerified(v)
			break
		}
	}
}

// LooksLikeUser reports whether m carries at least one user attribute, for
// endpoints that return the user object without a "user" wrapper.
func LooksLikeUser(m map[string]any) bool {
	for _, group := range [][]string{fieldAliases.id, fieldAliases.email, fieldAliases.verified} {
		for _, key := range group {
			if _, ok := m[key]; ok {
				return true
			}
		}
	}
	return false
}

// ParseVerified collapses the backend's boolean-or-string flag into a bool.
// true, "true" (any case), 1 and "1" are verified; anything else is not.
func ParseVerified(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		s := strings.TrimSpace(val)
		return strings.EqualFold(s, "true") || s == "1"
	case json.Number:
		return val.String() == "1"
	case float64:
		return val == 1
	}
	return false
}

func mergeString(dst *string, m map[string]any, keys []string) {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		*dst = stringify(v)
		return
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
