package session

import (
	"strings"

	"github.com/dmitrijs2005/smartaccess/internal/client/models"
)

var tokenKeys = []string{"token", "access_token", "accessToken"}

// extractToken finds the session token in a sign-in or sign-up reply. It
// looks at the top level, then under "data", then at "user.token". The first
// non-empty string wins.
func extractToken(doc map[string]any) string {
	if doc == nil {
		return ""
	}
	if tok := tokenIn(doc); tok != "" {
		return tok
	}
	if data, ok := doc["data"].(map[string]any); ok {
		if tok := tokenIn(data); tok != "" {
			return tok
		}
	}
	if user, ok := doc["user"].(map[string]any); ok {
		if tok, ok := user["token"].(string); ok {
			return strings.TrimSpace(tok)
		}
	}
	return ""
}

func tokenIn(m map[string]any) string {
	for _, key := range tokenKeys {
		if tok, ok := m[key].(string); ok && strings.TrimSpace(tok) != "" {
			return strings.TrimSpace(tok)
		}
	}
	return ""
}

// extractUser returns the user object carried by a reply: "user", then
// "data.user", then the object itself when it looks like a user.
func extractUser(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	if user, ok := doc["user"].(map[string]any); ok {
		return user
	}
	if data, ok := doc["data"].(map[string]any); ok {
		if user, ok := data["user"].(map[string]any); ok {
			return user
		}
		if models.LooksLikeUser(data) {
			return data
		}
	}
	if models.LooksLikeUser(doc) {
		return doc
	}
	return nil
}
