package oracle

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrTruncated marks a response that stopped mid-structure. Callers shrink
// their batch and retry instead of trusting a partial parse.
var ErrTruncated = errors.New("oracle: truncated response")

// IsTruncated inspects bracket balance before any JSON parsing: an answer
// that ends inside a string or with open braces/brackets was cut off.
func IsTruncated(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}

	var curly, square int
	inString := false
	escaped := false
	for _, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				curly++
			}
		case '}':
			if !inString {
				curly--
			}
		case '[':
			if !inString {
				square++
			}
		case ']':
			if !inString {
				square--
			}
		}
	}
	return inString || curly != 0 || square != 0
}

// BalancedPrefix returns the first balanced JSON object in s, or "" when
// none closes. Used to salvage a usable prefix from an otherwise noisy
// response before giving up.
func BalancedPrefix(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// decodeObject parses a raw response into a map, trying a balanced-prefix
// salvage when the full text fails, and reporting ErrTruncated for
// cut-off responses.
func decodeObject(raw string) (map[string]any, error) {
	if IsTruncated(raw) {
		return nil, ErrTruncated
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj, nil
	}
	if prefix := BalancedPrefix(raw); prefix != "" {
		if err := json.Unmarshal([]byte(prefix), &obj); err == nil {
			return obj, nil
		}
	}
	return nil, errors.New("oracle: unparseable response")
}

func getString(obj map[string]any, key string) string {
	if obj == nil {
		return ""
	}
	if v, ok := obj[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func getFloat(obj map[string]any, key string) float64 {
	if obj == nil {
		return 0
	}
	if v, ok := obj[key].(float64); ok {
		return v
	}
	return 0
}

func getArray(obj map[string]any, key string) []any {
	if obj == nil {
		return nil
	}
	if v, ok := obj[key].([]any); ok {
		return v
	}
	return nil
}
