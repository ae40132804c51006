// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrNoJSON is returned when model output holds no usable JSON object.
var ErrNoJSON = errors.New("no JSON object in model output")

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")

// StripCodeFences returns the body of the first fenced code block in s, or
// s trimmed when there is none.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// ExtractObject finds the first JSON object in raw model output that has
// requiredKey at its top level (any object when requiredKey is empty). It
// tries the whole text, then the first fenced block, then every balanced
// {...} span in order.
func ExtractObject(raw, requiredKey string) (string, error) {
	accept := func(s string) bool {
		if !gjson.Valid(s) {
			return false
		}
		res := gjson.Parse(s)
		if !res.IsObject() {
			return false
		}
		return requiredKey == "" || res.Get(gjson.Escape(requiredKey)).Exists()
	}

	trimmed := strings.TrimSpace(raw)
	if accept(trimmed) {
		return trimmed, nil
	}
	if inner := StripCodeFences(trimmed); inner != trimmed && accept(inner) {
		return inner, nil
	}
	for _, span := range balancedSpans(trimmed) {
		if accept(span) {
			return span, nil
		}
	}
	return "", ErrNoJSON
}

// balancedSpans returns every balanced {...} substring starting at each
// opening brace, skipping braces inside string literals.
func balancedSpans(s string) []string {
	var spans []string
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s, start); end > start {
			spans = append(spans, s[start:end+1])
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return spans
}

func matchBrace(s string, start int) int {
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
