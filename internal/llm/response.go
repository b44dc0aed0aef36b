package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when a response holds no complete JSON object.
var ErrNoJSONObject = errors.New("response contains no JSON object")

// ResponseObject returns the first valid JSON object in a model response. Code
// fences and prose around the object are ignored, as are braces inside strings.
func ResponseObject(text string) (string, error) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if obj, ok := balancedObject(text[start:]); ok && json.Valid([]byte(obj)) {
			return obj, nil
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSONObject
}

// balancedObject returns the prefix of s up to the brace closing s[0].
func balancedObject(s string) (string, bool) {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
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
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// TruncateText cuts text to maxRunes, appending "..." when shortened.
func TruncateText(text string, maxRunes int) string {
	runes := []rune(text)
	if maxRunes <= 0 || len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
