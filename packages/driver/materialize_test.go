package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianxiaolong/pytest-auto-api2/packages/cache"
	"github.com/tianxiaolong/pytest-auto-api2/packages/core/model"
	"github.com/tianxiaolong/pytest-auto-api2/packages/resolver"
)

func baseFields() map[string]any {
	return map[string]any{
		"url":             "/api/login",
		"host":            "https://api.example.com",
		"method":          "POST",
		"detail":          "login",
		"headers":         map[string]any{},
		"requestType":     "json",
		"is_run":          true,
		"data":            nil,
		"dependence_case": false,
		"assert":          map[string]any{"status_code": float64(200)},
	}
}

func materializeOne(t *testing.T, fields map[string]any) (*model.TestCase, error) {
	t.Helper()
	m := NewMaterializer(resolver.New(cache.New()), false)
	ds := &RawDataset{
		File:  "login.yaml",
		Cases: []RawCase{{ID: "login_01", Fields: fields}},
	}
	cases, err := m.Materialize(ds, make(map[string]string))
	if err != nil {
		return nil, err
	}
	return &cases[0], nil
}

func TestMaterialize_MissingRequiredField(t *testing.T) {
	fields := baseFields()
	delete(fields, "url")

	_, err := materializeOne(t, fields)
	require.Error(t, err)

	var caseErr *model.CaseError
	require.ErrorAs(t, err, &caseErr)
	assert.Equal(t, "login_01", caseErr.CaseID)
	assert.Equal(t, "login.yaml", caseErr.File)
	assert.Equal(t, "url", caseErr.Field)
}

func TestMaterialize_AssertColumnRenamed(t *testing.T) {
	// Either spelling satisfies the schema; "assert" is the historical one.
	withOldName := baseFields()
	tc, err := materializeOne(t, withOldName)
	require.NoError(t, err)
	require.NotNil(t, tc.Assert.StatusCode)

	withNewName := baseFields()
	withNewName["assert_data"] = withNewName["assert"]
	delete(withNewName, "assert")
	tc, err = materializeOne(t, withNewName)
	require.NoError(t, err)
	require.NotNil(t, tc.Assert.StatusCode)
}

func TestMaterialize_FailedFileLeavesNoIDsRegistered(t *testing.T) {
	bad := baseFields()
	bad["method"] = "TELEPORT"
	m := NewMaterializer(resolver.New(cache.New()), false)
	ds := &RawDataset{
		File: "login.yaml",
		Cases: []RawCase{
			{ID: "login_01", Fields: baseFields()},
			{ID: "login_02", Fields: bad},
		},
	}

	seen := make(map[string]string)
	_, err := m.Materialize(ds, seen)
	var caseErr *model.CaseError
	require.ErrorAs(t, err, &caseErr)
	assert.Equal(t, "login_02", caseErr.CaseID)
	assert.Empty(t, seen)

	// A second attempt reports the same offending case, not a duplicate of
	// the case that materialized before the failure.
	_, err = m.Materialize(ds, seen)
	require.ErrorAs(t, err, &caseErr)
	assert.Equal(t, "login_02", caseErr.CaseID)
	assert.Equal(t, "method", caseErr.Field)
}

func TestMaterialize_DuplicateIDWithinFile(t *testing.T) {
	m := NewMaterializer(resolver.New(cache.New()), false)
	ds := &RawDataset{
		File: "login.yaml",
		Cases: []RawCase{
			{ID: "login_01", Fields: baseFields()},
			{ID: "login_01", Fields: baseFields()},
		},
	}

	_, err := m.Materialize(ds, make(map[string]string))
	var caseErr *model.CaseError
	require.ErrorAs(t, err, &caseErr)
	assert.Equal(t, "login_01", caseErr.CaseID)
	assert.Contains(t, caseErr.Reason, "duplicate case id")
}

func TestMaterialize_InvalidMethod(t *testing.T) {
	fields := baseFields()
	fields["method"] = "FETCH"

	_, err := materializeOne(t, fields)
	var caseErr *model.CaseError
	require.ErrorAs(t, err, &caseErr)
	assert.Equal(t, "method", caseErr.Field)
}

func TestMaterialize_InvalidOperator(t *testing.T) {
	fields := baseFields()
	fields["assert"] = map[string]any{
		"assert_01": map[string]any{"jsonpath": "$.code", "type": "regex", "value": "x"},
	}

	_, err := materializeOne(t, fields)
	var caseErr *model.CaseError
	require.ErrorAs(t, err, &caseErr)
	assert.Equal(t, "assert_data", caseErr.Field)
	assert.Contains(t, caseErr.Reason, "regex")
}

func TestMaterialize_NumberedSpecsKeepOrder(t *testing.T) {
	fields := baseFields()
	fields["assert"] = map[string]any{
		"status_code": float64(200),
		"assert_01":   map[string]any{"jsonpath": "$.code", "type": "==", "value": float64(0)},
		"assert_02":   map[string]any{"jsonpath": "$.msg", "type": "==", "value": "ok"},
		"assert_03":   map[string]any{"jsonpath": "$.data", "type": "len_gt", "value": float64(0)},
	}

	tc, err := materializeOne(t, fields)
	require.NoError(t, err)
	require.Len(t, tc.Assert.Specs, 3)
	assert.Equal(t, "$.code", tc.Assert.Specs[0].JSONPath)
	assert.Equal(t, "$.msg", tc.Assert.Specs[1].JSONPath)
	assert.Equal(t, "$.data", tc.Assert.Specs[2].JSONPath)
}

func TestMaterialize_DependentWithoutDeclarations(t *testing.T) {
	fields := baseFields()
	fields["dependence_case"] = true

	_, err := materializeOne(t, fields)
	require.Error(t, err)

	var caseErr *model.CaseError
	require.ErrorAs(t, err, &caseErr)
	assert.Equal(t, "dependence_case_data", caseErr.Field)
	assert.Contains(t, caseErr.Reason, "indentation")
}

func TestMaterialize_DependentDeclarations(t *testing.T) {
	fields := baseFields()
	fields["dependence_case"] = true
	fields["dependence_case_data"] = []any{
		map[string]any{
			"case_id": "register_01",
			"dependent_data": []any{
				map[string]any{
					"dependent_type": "response",
					"jsonpath":       "$.data.id",
					"set_cache":      "user_id",
				},
			},
		},
	}

	tc, err := materializeOne(t, fields)
	require.NoError(t, err)
	require.Len(t, tc.DependenceCaseData, 1)
	assert.Equal(t, "register_01", tc.DependenceCaseData[0].CaseID)
	require.Len(t, tc.DependenceCaseData[0].DependentData, 1)
	assert.Equal(t, "user_id", tc.DependenceCaseData[0].DependentData[0].SetCache)
}

func TestMaterialize_FunctionPlaceholders(t *testing.T) {
	res := resolver.New(cache.New())
	res.Funcs().Register("host", func([]string) any { return "https://resolved.example.com" })
	m := NewMaterializer(res, false)

	fields := baseFields()
	fields["host"] = "${{host()}}"
	fields["data"] = map[string]any{"phone": "${{random_phone()}}"}

	ds := &RawDataset{File: "f.yaml", Cases: []RawCase{{ID: "c_01", Fields: fields}}}
	cases, err := m.Materialize(ds, make(map[string]string))
	require.NoError(t, err)

	tc := cases[0]
	assert.Equal(t, "https://resolved.example.com/api/login", tc.URL)
	phone, _ := tc.Data.(map[string]any)["phone"].(string)
	assert.Regexp(t, `^1\d{10}$`, phone)
}

func TestMaterialize_CacheReferencesStay(t *testing.T) {
	fields := baseFields()
	fields["headers"] = map[string]any{"Authorization": "Bearer $cache{token}"}

	tc, err := materializeOne(t, fields)
	require.NoError(t, err)
	assert.Equal(t, "Bearer $cache{token}", tc.Headers["Authorization"])
}

func TestMaterialize_SQLGatedOnSwitch(t *testing.T) {
	fields := baseFields()
	fields["sql"] = []any{"SELECT 1"}

	off, err := materializeOne(t, fields)
	require.NoError(t, err)
	assert.Nil(t, off.SQL)

	m := NewMaterializer(resolver.New(cache.New()), true)
	ds := &RawDataset{File: "f.yaml", Cases: []RawCase{{ID: "c_01", Fields: fields}}}
	cases, err := m.Materialize(ds, make(map[string]string))
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1"}, cases[0].SQL)
}

func TestMaterialize_AssertTypeTags(t *testing.T) {
	fields := baseFields()
	fields["assert"] = map[string]any{
		"assert_01": map[string]any{
			"jsonpath":   "$.data.name",
			"type":       "==",
			"value":      "$.username",
			"AssertType": "SQL",
		},
	}

	tc, err := materializeOne(t, fields)
	require.NoError(t, err)
	require.Len(t, tc.Assert.Specs, 1)
	assert.Equal(t, model.AssertSQL, tc.Assert.Specs[0].Kind)

	bad := baseFields()
	bad["assert"] = map[string]any{
		"assert_01": map[string]any{
			"jsonpath":   "$.x",
			"type":       "==",
			"value":      "y",
			"AssertType": "WHATEVER",
		},
	}
	_, err = materializeOne(t, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WHATEVER")
}
