package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// messageKeys in priority order.
var messageKeys = []string{"message", "error", "msg"}

// UserMessage derives text suitable for showing to a person: the first of
// message, error, msg (top level, then under data), with validation maps and
// lists flattened one message per line. A decoded body without any usable
// message yields fallback; without a body r.Message is used first.
func (r Response) UserMessage(fallback string) string {
	if msg := extractMessage(r.Body); msg != "" {
		return msg
	}
	if r.Body != nil {
		return fallback
	}
	if r.Message != "" {
		return r.Message
	}
	return fallback
}

func extractMessage(doc any) string {
	m, ok := doc.(map[string]any)
	if !ok {
		return ""
	}
	if msg := messageFrom(m); msg != "" {
		return msg
	}
	if data, ok := m["data"].(map[string]any); ok {
		return messageFrom(data)
	}
	return ""
}

func messageFrom(m map[string]any) string {
	for _, key := range messageKeys {
		if v, ok := m[key]; ok {
			if lines := flatten(v); len(lines) > 0 {
				return strings.Join(lines, "\n")
			}
		}
	}
	return ""
}

// flatten turns a message value into lines. Maps are walked in key order so
// the output is stable.
func flatten(v any) []string {
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	case json.Number:
		return []string{val.String()}
	case []any:
		var out []string
		for _, item := range val {
			out = append(out, flatten(item)...)
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, flatten(val[k])...)
		}
		return out
	case nil, bool:
	default:
		return []string{fmt.Sprint(val)}
	}
	return nil
}
