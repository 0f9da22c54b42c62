package assertion

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"pkt.systems/pslog"

	"github.com/tianxiaolong/pytest-auto-api2/packages/core/model"
	"github.com/tianxiaolong/pytest-auto-api2/packages/extract"
	"github.com/tianxiaolong/pytest-auto-api2/packages/http"
)

// StatusError is the reserved status-code check failing. It halts every
// other assertion for the case.
type StatusError struct {
	Expected int
	Actual   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status code assertion failed: expected %d, got %d", e.Expected, e.Actual)
}

// ComparisonError is an assertion whose extracted value did not satisfy the
// operator. Both sides are reported together with the extraction path and
// the optional authored message.
type ComparisonError struct {
	Path     string
	Operator model.Operator
	Expected any
	Actual   any
	Message  string
	Detail   string
}

func (e *ComparisonError) Error() string {
	msg := fmt.Sprintf("assertion failed at %s: %s (operator %s, expected %v, actual %v)",
		e.Path, e.Detail, e.Operator, e.Expected, e.Actual)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Engine performs the typed comparisons of a case's assertion
// configuration. One Engine is constructed per session; it carries the
// database-subsystem switch and a logger for skip warnings.
type Engine struct {
	sqlEnabled bool
	log        pslog.Base
}

type Option func(*Engine)

// WithLogger replaces the default logger.
func WithLogger(log pslog.Base) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithSQLEnabled turns the database-assertion subsystem on.
func WithSQLEnabled(enabled bool) Option {
	return func(e *Engine) {
		e.sqlEnabled = enabled
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		log: pslog.NewWithOptions(os.Stderr, pslog.Options{MinLevel: pslog.InfoLevel}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assert evaluates the case's assertion configuration against the produced
// response, the outbound request body and (optionally) the SQL assertion
// data. The reserved status-code check runs first and fails fast; the
// remaining specs run in authored order, stopping at the first failure.
func (e *Engine) Assert(cfg model.AssertConfig, requestBody any, resp *http.Response, sqlData map[string]any) error {
	if cfg.StatusCode != nil && *cfg.StatusCode != resp.StatusCode {
		return &StatusError{Expected: *cfg.StatusCode, Actual: resp.StatusCode}
	}

	for _, spec := range cfg.Specs {
		if err := e.assertOne(spec, requestBody, resp, sqlData); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) assertOne(spec model.AssertSpec, requestBody any, resp *http.Response, sqlData map[string]any) error {
	switch spec.Kind {
	case model.AssertLiteral:
		actual, err := extract.FromJSON(resp.Body, spec.JSONPath)
		if err != nil {
			return err
		}
		return e.compare(spec, actual, spec.Expected)

	case model.AssertSQL, model.AssertDSQL:
		if !e.sqlEnabled {
			e.skip(spec)
			return nil
		}
		actual, err := extract.FromJSON(resp.Body, spec.JSONPath)
		if err != nil {
			return err
		}
		expected, err := e.sqlExpected(spec, sqlData)
		if err != nil {
			return err
		}
		return e.compare(spec, actual, expected)

	case model.AssertRequestSQL:
		if !e.sqlEnabled {
			e.skip(spec)
			return nil
		}
		actual, err := extract.FromValue(requestBody, spec.JSONPath)
		if err != nil {
			return err
		}
		expected, err := e.sqlExpected(spec, sqlData)
		if err != nil {
			return err
		}
		return e.compare(spec, actual, expected)

	default:
		return fmt.Errorf("unsupported assertion kind %q, only response and database assertions are supported", spec.Kind)
	}
}

// sqlExpected resolves a database-sourced expected value. For SQL-kind
// assertions the expected field holds the extraction path into the
// query result, not a literal.
func (e *Engine) sqlExpected(spec model.AssertSpec, sqlData map[string]any) (any, error) {
	path, ok := spec.Expected.(string)
	if !ok {
		return nil, fmt.Errorf("database assertion value must be an extraction path, got %T", spec.Expected)
	}
	if len(sqlData) == 0 {
		return nil, fmt.Errorf("database assertion at %s has no sql data, add the query to the case's sql field", spec.JSONPath)
	}
	return extract.FromValue(sqlData, path)
}

func (e *Engine) skip(spec model.AssertSpec) {
	e.log.Warn("database switch is off, assertion skipped",
		"jsonpath", spec.JSONPath, "kind", string(spec.Kind))
}

func (e *Engine) compare(spec model.AssertSpec, actual, expected any) error {
	passed, detail := evaluate(spec.Operator, actual, expected)
	if passed {
		return nil
	}
	return &ComparisonError{
		Path:     spec.JSONPath,
		Operator: spec.Operator,
		Expected: expected,
		Actual:   actual,
		Message:  spec.Message,
		Detail:   detail,
	}
}

// evaluate applies one operator. The switch is exhaustive over the closed
// operator set; adding an operator without a case here fails review, not
// production.
func evaluate(op model.Operator, actual, expected any) (bool, string) {
	switch op {
	case model.OpEqual:
		return equals(actual, expected)
	case model.OpNotEqual:
		if passed, _ := equals(actual, expected); passed {
			return false, fmt.Sprintf("expected not to equal %v", expected)
		}
		return true, ""
	case model.OpStringEqual:
		if fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected) {
			return true, ""
		}
		return false, "string values differ"
	case model.OpLess:
		return compareNumeric(actual, expected, "<")
	case model.OpLessOrEqual:
		return compareNumeric(actual, expected, "<=")
	case model.OpGreater:
		return compareNumeric(actual, expected, ">")
	case model.OpGreaterOrEqual:
		return compareNumeric(actual, expected, ">=")
	case model.OpLengthEqual:
		return compareLength(actual, expected, "==")
	case model.OpLengthGreater:
		return compareLength(actual, expected, ">")
	case model.OpLengthGreaterOrEqual:
		return compareLength(actual, expected, ">=")
	case model.OpLengthLess:
		return compareLength(actual, expected, "<")
	case model.OpLengthLessOrEqual:
		return compareLength(actual, expected, "<=")
	case model.OpContains:
		return contains(actual, expected)
	case model.OpContainedBy:
		passed, _ := contains(expected, actual)
		if passed {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v to be contained by %v", actual, expected)
	case model.OpStartsWith:
		if strings.HasPrefix(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v to start with %v", actual, expected)
	case model.OpEndsWith:
		if strings.HasSuffix(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v to end with %v", actual, expected)
	}
	return false, fmt.Sprintf("unknown operator %v", op)
}

func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	// Numeric equality bridges representation differences between decoded
	// and authored numbers (float64 vs int) but never coerces strings; "5"
	// is not equal to 5.
	_, aStr := actual.(string)
	_, eStr := expected.(string)
	if !aStr && !eStr {
		actualNum, aOk := toFloat64(actual)
		expectedNum, eOk := toFloat64(expected)
		if aOk && eOk && actualNum == expectedNum {
			return true, ""
		}
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func compareNumeric(actual, expected any, op string) (bool, string) {
	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if !aOk || !eOk {
		return false, fmt.Sprintf("cannot compare non-numeric values: %v %s %v", actual, op, expected)
	}

	var passed bool
	switch op {
	case "<":
		passed = actualNum < expectedNum
	case "<=":
		passed = actualNum <= expectedNum
	case ">":
		passed = actualNum > expectedNum
	case ">=":
		passed = actualNum >= expectedNum
	}
	if passed {
		return true, ""
	}
	return false, fmt.Sprintf("expected %v %s %v", actual, op, expected)
}

func compareLength(actual, expected any, op string) (bool, string) {
	length := valueLength(actual)
	if length < 0 {
		return false, fmt.Sprintf("cannot get length of %T", actual)
	}
	return compareNumeric(length, expected, op)
}

func valueLength(v any) int {
	switch t := v.(type) {
	case string:
		return len([]rune(t))
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	case nil:
		return -1
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return rv.Len()
		default:
			return -1
		}
	}
}

func contains(haystack, needle any) (bool, string) {
	switch h := haystack.(type) {
	case []any:
		for _, item := range h {
			if passed, _ := equals(item, needle); passed {
				return true, ""
			}
		}
		return false, fmt.Sprintf("expected %v to contain %v", haystack, needle)
	case map[string]any:
		key := fmt.Sprintf("%v", needle)
		if _, ok := h[key]; ok {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v to contain key %v", haystack, needle)
	default:
		if strings.Contains(fmt.Sprintf("%v", haystack), fmt.Sprintf("%v", needle)) {
			return true, ""
		}
		return false, fmt.Sprintf("expected %v to contain %v", haystack, needle)
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
