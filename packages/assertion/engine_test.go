package assertion

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianxiaolong/pytest-auto-api2/packages/core/model"
	"github.com/tianxiaolong/pytest-auto-api2/packages/extract"
	"github.com/tianxiaolong/pytest-auto-api2/packages/http"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
		Duration:   50 * time.Millisecond,
	}
}

func intPtr(v int) *int { return &v }

func TestAssert_StatusCodePass(t *testing.T) {
	e := NewEngine()
	cfg := model.AssertConfig{StatusCode: intPtr(200)}

	err := e.Assert(cfg, nil, makeResponse(200, `{}`), nil)
	assert.NoError(t, err)
}

func TestAssert_StatusCodeFailsFast(t *testing.T) {
	e := NewEngine()
	cfg := model.AssertConfig{
		StatusCode: intPtr(200),
		Specs: []model.AssertSpec{
			// Would error on extraction if it ever ran.
			{JSONPath: "$.missing", Operator: model.OpEqual, Expected: float64(0)},
		},
	}

	err := e.Assert(cfg, nil, makeResponse(404, `{}`), nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 200, statusErr.Expected)
	assert.Equal(t, 404, statusErr.Actual)
}

func TestAssert_JSONPathEquality(t *testing.T) {
	e := NewEngine()
	resp := makeResponse(200, `{"code": 0, "msg": "success"}`)

	pass := model.AssertConfig{Specs: []model.AssertSpec{
		{JSONPath: "$.code", Operator: model.OpEqual, Expected: float64(0)},
	}}
	assert.NoError(t, e.Assert(pass, nil, resp, nil))

	fail := model.AssertConfig{Specs: []model.AssertSpec{
		{JSONPath: "$.code", Operator: model.OpEqual, Expected: float64(1), Message: "business code"},
	}}
	err := e.Assert(fail, nil, resp, nil)
	require.Error(t, err)

	var cmpErr *ComparisonError
	require.ErrorAs(t, err, &cmpErr)
	assert.Equal(t, "$.code", cmpErr.Path)
	assert.Equal(t, float64(1), cmpErr.Expected)
	assert.Equal(t, float64(0), cmpErr.Actual)
	assert.Contains(t, err.Error(), "business code")
}

func TestAssert_ExtractionFailureIsNotComparison(t *testing.T) {
	e := NewEngine()
	cfg := model.AssertConfig{Specs: []model.AssertSpec{
		{JSONPath: "$.does.not.exist", Operator: model.OpEqual, Expected: "x"},
	}}

	err := e.Assert(cfg, nil, makeResponse(200, `{"code": 0}`), nil)
	require.Error(t, err)

	var extractErr *extract.Error
	assert.ErrorAs(t, err, &extractErr)
	var cmpErr *ComparisonError
	assert.False(t, errors.As(err, &cmpErr))
}

func TestAssert_StopsAtFirstFailure(t *testing.T) {
	e := NewEngine()
	cfg := model.AssertConfig{Specs: []model.AssertSpec{
		{JSONPath: "$.code", Operator: model.OpEqual, Expected: float64(1)},
		{JSONPath: "$.missing", Operator: model.OpEqual, Expected: "never reached"},
	}}

	err := e.Assert(cfg, nil, makeResponse(200, `{"code": 0}`), nil)
	require.Error(t, err)

	var cmpErr *ComparisonError
	require.ErrorAs(t, err, &cmpErr)
	assert.Equal(t, "$.code", cmpErr.Path)
}

func TestAssert_SQLKindSkippedWhenDisabled(t *testing.T) {
	e := NewEngine(WithSQLEnabled(false))
	cfg := model.AssertConfig{Specs: []model.AssertSpec{
		{JSONPath: "$.data.name", Operator: model.OpEqual, Expected: "$.username", Kind: model.AssertSQL},
	}}

	// No sql data supplied; the assertion never evaluates, so no error.
	err := e.Assert(cfg, nil, makeResponse(200, `{"data": {"name": "Alice"}}`), nil)
	assert.NoError(t, err)
}

func TestAssert_SQLKindAgainstQueryData(t *testing.T) {
	e := NewEngine(WithSQLEnabled(true))
	resp := makeResponse(200, `{"data": {"name": "Alice"}}`)
	sqlData := map[string]any{"username": "Alice"}

	pass := model.AssertConfig{Specs: []model.AssertSpec{
		{JSONPath: "$.data.name", Operator: model.OpEqual, Expected: "$.username", Kind: model.AssertSQL},
	}}
	assert.NoError(t, e.Assert(pass, nil, resp, sqlData))

	fail := model.AssertConfig{Specs: []model.AssertSpec{
		{JSONPath: "$.data.name", Operator: model.OpEqual, Expected: "$.username", Kind: model.AssertSQL},
	}}
	err := e.Assert(fail, nil, resp, map[string]any{"username": "Bob"})
	require.Error(t, err)
	var cmpErr *ComparisonError
	require.ErrorAs(t, err, &cmpErr)
	assert.Equal(t, "Bob", cmpErr.Expected)
}

func TestAssert_SQLKindWithoutData(t *testing.T) {
	e := NewEngine(WithSQLEnabled(true))
	cfg := model.AssertConfig{Specs: []model.AssertSpec{
		{JSONPath: "$.data.name", Operator: model.OpEqual, Expected: "$.username", Kind: model.AssertSQL},
	}}

	err := e.Assert(cfg, nil, makeResponse(200, `{"data": {"name": "Alice"}}`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sql data")
}

func TestAssert_RequestSQLKind(t *testing.T) {
	e := NewEngine(WithSQLEnabled(true))
	requestBody := map[string]any{"phone": "13800000000"}
	sqlData := map[string]any{"phone": "13800000000"}

	cfg := model.AssertConfig{Specs: []model.AssertSpec{
		{JSONPath: "$.phone", Operator: model.OpEqual, Expected: "$.phone", Kind: model.AssertRequestSQL},
	}}
	assert.NoError(t, e.Assert(cfg, requestBody, makeResponse(200, `{}`), sqlData))
}

func TestEvaluate_Operators(t *testing.T) {
	tests := []struct {
		name     string
		op       model.Operator
		actual   any
		expected any
		passed   bool
	}{
		{name: "eq numbers cross-type", op: model.OpEqual, actual: float64(200), expected: 200, passed: true},
		{name: "eq strings", op: model.OpEqual, actual: "ok", expected: "ok", passed: true},
		{name: "eq string not coerced to number", op: model.OpEqual, actual: "5", expected: float64(5), passed: false},
		{name: "not_eq string vs number", op: model.OpNotEqual, actual: "5", expected: float64(5), passed: true},
		{name: "eq fails", op: model.OpEqual, actual: "ok", expected: "fail", passed: false},
		{name: "not_eq", op: model.OpNotEqual, actual: float64(1), expected: float64(2), passed: true},
		{name: "not_eq fails", op: model.OpNotEqual, actual: "same", expected: "same", passed: false},
		{name: "str_eq across types", op: model.OpStringEqual, actual: float64(200), expected: "200", passed: true},
		{name: "lt", op: model.OpLess, actual: float64(1), expected: float64(2), passed: true},
		{name: "le equal", op: model.OpLessOrEqual, actual: float64(2), expected: float64(2), passed: true},
		{name: "gt", op: model.OpGreater, actual: float64(3), expected: float64(2), passed: true},
		{name: "gt fails non-numeric", op: model.OpGreater, actual: "abc", expected: float64(2), passed: false},
		{name: "ge", op: model.OpGreaterOrEqual, actual: float64(2), expected: float64(2), passed: true},
		{name: "len_eq string runes", op: model.OpLengthEqual, actual: "你好", expected: float64(2), passed: true},
		{name: "len_eq list", op: model.OpLengthEqual, actual: []any{1, 2, 3}, expected: float64(3), passed: true},
		{name: "len_gt", op: model.OpLengthGreater, actual: []any{1, 2}, expected: float64(1), passed: true},
		{name: "len_ge", op: model.OpLengthGreaterOrEqual, actual: "ab", expected: float64(2), passed: true},
		{name: "len_lt", op: model.OpLengthLess, actual: "a", expected: float64(2), passed: true},
		{name: "len_le", op: model.OpLengthLessOrEqual, actual: []any{}, expected: float64(0), passed: true},
		{name: "contains substring", op: model.OpContains, actual: "hello world", expected: "world", passed: true},
		{name: "contains list member", op: model.OpContains, actual: []any{float64(1), float64(2)}, expected: float64(2), passed: true},
		{name: "contains map key", op: model.OpContains, actual: map[string]any{"id": 1}, expected: "id", passed: true},
		{name: "contains fails", op: model.OpContains, actual: []any{"a"}, expected: "b", passed: false},
		{name: "contained_by", op: model.OpContainedBy, actual: "world", expected: "hello world", passed: true},
		{name: "startswith", op: model.OpStartsWith, actual: "https://api", expected: "https", passed: true},
		{name: "endswith", op: model.OpEndsWith, actual: "file.yaml", expected: ".yaml", passed: true},
		{name: "endswith fails", op: model.OpEndsWith, actual: "file.yaml", expected: ".xlsx", passed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, _ := evaluate(tt.op, tt.actual, tt.expected)
			assert.Equal(t, tt.passed, passed)
		})
	}
}
