// Package literal parses the loosely-typed field values authored in case
// data. Spreadsheet cells arrive as text; document values that went through
// placeholder substitution arrive as text too. Parse coerces both back into
// the semi-structured shape (nil, bool, float64, string, []any,
// map[string]any) the materializer expects.
//
// Historical data encodes structures Python-style (single quotes, True,
// False, None), so after a plain JSON parse fails the parser retries with
// those spellings normalized.
package literal

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Parse coerces a text value. Order of attempts: null, boolean, integer,
// float, JSON, Python-style literal, raw string.
func Parse(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}

	switch strings.ToLower(trimmed) {
	case "none", "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}

	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return float64(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if v, ok := tryJSON(trimmed); ok {
			return v
		}
		if v, ok := tryJSON(pythonToJSON(trimmed)); ok {
			return v
		}
	}

	// Python tuples appear in older spreadsheets; treat them as lists.
	if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		inner := "[" + trimmed[1:len(trimmed)-1] + "]"
		if v, ok := tryJSON(pythonToJSON(inner)); ok {
			return v
		}
	}

	return s
}

func tryJSON(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// pythonToJSON rewrites Python literal spellings into JSON ones: single
// quotes become double quotes (outside of double-quoted strings) and the
// bare words True/False/None become their JSON equivalents.
func pythonToJSON(s string) string {
	var out strings.Builder
	inDouble := false
	inSingle := false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '\\' && i+1 < len(s):
			out.WriteByte(ch)
			i++
			out.WriteByte(s[i])
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			out.WriteByte(ch)
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			out.WriteByte('"')
		case !inDouble && !inSingle:
			if word, n := matchBareWord(s[i:]); n > 0 {
				out.WriteString(word)
				i += n - 1
			} else {
				out.WriteByte(ch)
			}
		default:
			out.WriteByte(ch)
		}
	}
	return out.String()
}

func matchBareWord(s string) (string, int) {
	for from, to := range map[string]string{"True": "true", "False": "false", "None": "null"} {
		if strings.HasPrefix(s, from) && !followedByIdent(s, len(from)) {
			return to, len(from)
		}
	}
	return "", 0
}

func followedByIdent(s string, at int) bool {
	if at >= len(s) {
		return false
	}
	ch := s[at]
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
