// Package llmjson pulls structured payloads out of free-form model output.
package llmjson

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrNoJSONObject = errors.New("no JSON object in response")

// ExtractObject returns the first well-formed JSON object in raw. Markdown
// fences and surrounding prose are ignored.
func ExtractObject(raw string) (string, error) {
	cleaned := stripFences(raw)
	if strings.HasPrefix(cleaned, "{") && gjson.Valid(cleaned) {
		return cleaned, nil
	}

	for start := strings.IndexByte(cleaned, '{'); start >= 0; {
		end := matchingBrace(cleaned, start)
		if end > start {
			candidate := cleaned[start : end+1]
			if gjson.Valid(candidate) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(cleaned[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSONObject
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "```json", "")
	raw = strings.ReplaceAll(raw, "```JSON", "")
	raw = strings.ReplaceAll(raw, "```", "")
	return strings.TrimSpace(raw)
}

// matchingBrace returns the index of the brace closing s[start], or -1.
func matchingBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// String reads a field as text whether the model sent a string or a number.
func String(obj gjson.Result, path string) string {
	v := obj.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// Int64 reads a field as an integer, accepting numeric strings.
func Int64(obj gjson.Result, path string) (int64, bool) {
	v := obj.Get(path)
	switch v.Type {
	case gjson.Number:
		return v.Int(), true
	case gjson.String:
		s := strings.TrimSpace(strings.ReplaceAll(v.Str, ",", ""))
		if s == "" {
			return 0, false
		}
		parsed := gjson.Parse(s)
		if parsed.Type != gjson.Number {
			return 0, false
		}
		return parsed.Int(), true
	default:
		return 0, false
	}
}
