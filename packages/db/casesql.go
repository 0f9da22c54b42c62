package db

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tianxiaolong/pytest-auto-api2/packages/extract"
)

// jsonRefPattern matches response references embedded in assertion SQL:
// $json($.data.id)$ is replaced with the value extracted from the response
// body before the statement runs.
var jsonRefPattern = regexp.MustCompile(`\$json\((.*?)\)\$`)

// ReplaceJSONRefs substitutes every $json(path)$ reference in stmt with the
// value gjson extracts from responseBody. A reference that matches nothing
// is a hard error naming the path.
func ReplaceJSONRefs(stmt string, responseBody []byte) (string, error) {
	var firstErr error
	out := jsonRefPattern.ReplaceAllStringFunc(stmt, func(match string) string {
		path := jsonRefPattern.FindStringSubmatch(match)[1]
		value, err := extract.FromJSON(responseBody, path)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("sql reference %s: %w", match, err)
			}
			return match
		}
		return fmt.Sprintf("%v", value)
	})
	return out, firstErr
}

// SetupSQL runs the case's setup statements before the request is sent.
// SELECT statements have their first row's columns merged into the returned
// map; any other statement is executed for effect.
func (c *Client) SetupSQL(stmts []string) (map[string]any, error) {
	data := make(map[string]any)
	for _, stmt := range stmts {
		if isSelect(stmt) {
			result, err := c.Query(stmt)
			if err != nil {
				return nil, err
			}
			if len(result.Rows) == 0 {
				return nil, fmt.Errorf("setup sql returned no rows: %s", stmt)
			}
			for k, v := range result.Rows[0] {
				data[k] = v
			}
			continue
		}
		if _, err := c.Exec(stmt); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// AssertionData runs the case's assertion statements and merges every first
// row into one column→value map for the assertion engine. Only SELECT
// statements are allowed here; response references are resolved first.
func (c *Client) AssertionData(stmts []string, responseBody []byte) (map[string]any, error) {
	data := make(map[string]any)
	for _, stmt := range stmts {
		if !isSelect(stmt) {
			return nil, fmt.Errorf("assertion sql must be a SELECT statement, got: %s", stmt)
		}
		resolved, err := ReplaceJSONRefs(stmt, responseBody)
		if err != nil {
			return nil, err
		}
		result, err := c.Query(resolved)
		if err != nil {
			return nil, err
		}
		if len(result.Rows) == 0 {
			return nil, fmt.Errorf("assertion sql returned no rows: %s", resolved)
		}
		for k, v := range result.Rows[0] {
			data[k] = v
		}
	}
	return data, nil
}

// TeardownSQL executes the case's cleanup statements after the assertions
// ran.
func (c *Client) TeardownSQL(stmts []string) error {
	for _, stmt := range stmts {
		if isSelect(stmt) {
			if _, err := c.Query(stmt); err != nil {
				return err
			}
			continue
		}
		if _, err := c.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func isSelect(stmt string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "SELECT")
}
