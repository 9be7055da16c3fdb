package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/snarg/meeting-intel/internal/meeting"
)

// ErrMalformed is returned when model output cannot be read as an analysis.
var ErrMalformed = errors.New("malformed analysis output")

// Parse reads model output into a StrategicAnalysis. Markdown fences and
// surrounding prose are tolerated; the first balanced JSON object is used.
// The object must name at least one known category. Anything else wraps
// ErrMalformed and no partial result is returned.
func Parse(content string) (meeting.StrategicAnalysis, error) {
	obj := extractJSON(content)
	if obj == "" {
		return meeting.StrategicAnalysis{}, fmt.Errorf("%w: no JSON object found", ErrMalformed)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &keys); err != nil {
		return meeting.StrategicAnalysis{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	known := false
	for k := range keys {
		if _, ok := meeting.ParseCategory(k); ok {
			known = true
			break
		}
	}
	if !known {
		return meeting.StrategicAnalysis{}, fmt.Errorf("%w: no analysis categories", ErrMalformed)
	}

	var a meeting.StrategicAnalysis
	if err := json.Unmarshal([]byte(obj), &a); err != nil {
		return meeting.StrategicAnalysis{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return a, nil
}

// extractJSON returns the first balanced {...} in s, skipping braces inside
// string literals. Returns "" when there is none.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

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
				return s[start : i+1]
			}
		}
	}
	return ""
}
