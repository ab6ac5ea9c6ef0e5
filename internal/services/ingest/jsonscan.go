package ingest

import "errors"

// ErrNoJSON marks a model reply containing no JSON object at all, as
// distinct from one containing a malformed object.
var ErrNoJSON = errors.New("no JSON object in reply")

// firstJSONObject returns the first balanced {...} span in s. Model replies
// often wrap the object in prose or markdown fences, so position in the
// reply carries no meaning; only brace balance does.
func firstJSONObject(s string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if start == -1 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}
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
					return s[start : i+1], nil
				}
			}
		}
	}
	return "", ErrNoJSON
}
