// Package extract evaluates the data-extraction paths of assertion specs,
// dependency declarations and cache-write instructions. Paths are authored
// in JSONPath style ($.data.id, $.list[0].name, $.items[*].id) and
// evaluated through gjson.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Error reports an extraction path that matched nothing. It is distinct
// from a comparison failure and names both the searched structure and the
// path used.
type Error struct {
	Structure string
	Path      string
}

func (e *Error) Error() string {
	structure := e.Structure
	if len(structure) > 300 {
		structure = structure[:300] + "..."
	}
	return fmt.Sprintf("jsonpath extraction failed, searched: %s, path: %s", structure, e.Path)
}

var (
	indexPattern    = regexp.MustCompile(`\[(\d+)\]`)
	wildcardPattern = regexp.MustCompile(`\[\*\]`)
)

// toGJSON converts a JSONPath expression to gjson syntax: the leading $ is
// dropped, [N] becomes .N and [*] becomes .#.
func toGJSON(path string) string {
	p := strings.TrimSpace(path)
	p = strings.TrimPrefix(p, "$")
	p = indexPattern.ReplaceAllString(p, ".$1")
	p = wildcardPattern.ReplaceAllString(p, ".#")
	p = strings.TrimPrefix(p, ".")
	return p
}

// FromJSON extracts the value at path from a JSON document. A wildcard
// match with exactly one element collapses to that element; otherwise the
// full collection is returned. A path matching nothing is an *Error.
func FromJSON(body []byte, path string) (any, error) {
	gpath := toGJSON(path)

	var result gjson.Result
	if gpath == "" {
		result = gjson.ParseBytes(body)
	} else {
		result = gjson.GetBytes(body, gpath)
	}
	if !result.Exists() && gpath != "" {
		return nil, &Error{Structure: string(body), Path: path}
	}

	value := result.Value()
	if strings.Contains(gpath, "#") {
		matches, ok := value.([]any)
		if !ok || len(matches) == 0 {
			return nil, &Error{Structure: string(body), Path: path}
		}
		if len(matches) == 1 {
			return matches[0], nil
		}
		return matches, nil
	}
	return value, nil
}

// FromValue extracts from an already-decoded structure (a request body map,
// a SQL result map) by round-tripping it through JSON.
func FromValue(v any, path string) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode structure for extraction: %w", err)
	}
	return FromJSON(data, path)
}
