package driver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tianxiaolong/pytest-auto-api2/packages/core/model"
	"github.com/tianxiaolong/pytest-auto-api2/packages/resolver"
)

// requiredFields must be present in every case's field map; absence is a
// hard materialization error naming the case and file. The assert column
// is checked under its post-rename key.
var requiredFields = []string{
	"url", "host", "method", "detail", "is_run",
	"headers", "requestType", "data", "dependence_case", "assert_data",
}

// Materializer turns one adapter's raw field maps into canonical TestCase
// records, enforcing the structural invariants of the case schema.
type Materializer struct {
	res        *resolver.Resolver
	sqlEnabled bool
}

func NewMaterializer(res *resolver.Resolver, sqlEnabled bool) *Materializer {
	return &Materializer{res: res, sqlEnabled: sqlEnabled}
}

// Materialize converts every case of a dataset. seen maps case ids already
// loaded in this session to their source file; a duplicate identifier is a
// hard error, never a silent overwrite. Loading stops at the first error
// for the file.
func (m *Materializer) Materialize(ds *RawDataset, seen map[string]string) ([]model.TestCase, error) {
	cases := make([]model.TestCase, 0, len(ds.Cases))
	// Ids are staged locally and only merged into the session map once the
	// whole file materializes. A half-loaded file must not leave its ids
	// registered, or a reload would misreport them as duplicates.
	staged := make(map[string]string, len(ds.Cases))
	for _, raw := range ds.Cases {
		prev, dup := seen[raw.ID]
		if !dup {
			prev, dup = staged[raw.ID]
		}
		if dup {
			return nil, &model.CaseError{
				CaseID: raw.ID,
				File:   ds.File,
				Reason: fmt.Sprintf("duplicate case id, first defined in %s", prev),
			}
		}
		tc, err := m.materializeCase(raw, ds.File)
		if err != nil {
			return nil, err
		}
		staged[raw.ID] = ds.File
		cases = append(cases, *tc)
	}
	for id, file := range staged {
		seen[id] = file
	}
	return cases, nil
}

func (m *Materializer) materializeCase(raw RawCase, file string) (*model.TestCase, error) {
	fields := make(map[string]any, len(raw.Fields))
	for k, v := range raw.Fields {
		fields[k] = v
	}

	// Historical data names the assertion column "assert", a reserved word
	// in several languages. Rename once here, consistently for both
	// adapters.
	if v, ok := fields["assert"]; ok {
		fields["assert_data"] = v
		delete(fields, "assert")
	}

	for _, name := range requiredFields {
		if _, ok := fields[name]; !ok {
			return nil, &model.CaseError{
				CaseID: raw.ID, File: file, Field: name,
				Reason: "required field is missing, check the case against the schema",
			}
		}
	}

	// Phase one: function placeholders are substituted on the text
	// serialization of the whole field map, so a call can sit inside what
	// will become a boolean, list or nested object. Phase two parses the
	// substituted text back into structured values. Cache references stay
	// in place here; they resolve per invocation.
	fields, err := m.resolveFuncs(fields)
	if err != nil {
		return nil, &model.CaseError{CaseID: raw.ID, File: file, Reason: err.Error()}
	}

	tc := &model.TestCase{CaseID: raw.ID}
	fail := func(field, reason string) error {
		return &model.CaseError{CaseID: raw.ID, File: file, Field: field, Reason: reason}
	}

	method, _ := fields["method"].(string)
	if tc.Method, err = model.ParseMethod(method); err != nil {
		return nil, fail("method", err.Error())
	}
	kind, _ := fields["requestType"].(string)
	if tc.RequestKind, err = model.ParseRequestKind(kind); err != nil {
		return nil, fail("requestType", err.Error())
	}

	host, _ := fields["host"].(string)
	path, _ := fields["url"].(string)
	// A host that is itself a cache placeholder concatenates as text and
	// resolves later with the rest of the case.
	tc.URL = host + path

	tc.Detail, _ = fields["detail"].(string)
	tc.Data = fields["data"]
	tc.Headers = asStringMap(fields["headers"])
	tc.IsRun = asRunFlag(fields["is_run"])
	tc.Sleep = asFloat(fields["sleep"])

	tc.DependenceCase = asBool(fields["dependence_case"])
	if deps, ok := fields["dependence_case_data"]; ok && deps != nil {
		if err := reshape(deps, &tc.DependenceCaseData); err != nil {
			return nil, fail("dependence_case_data", err.Error())
		}
	}
	if tc.DependenceCase && len(tc.DependenceCaseData) == 0 {
		return nil, fail("dependence_case_data",
			"case is marked dependent but declares no dependency data, check the indentation")
	}

	tc.Assert, err = parseAssertConfig(fields["assert_data"])
	if err != nil {
		return nil, fail("assert_data", err.Error())
	}

	// SQL fields are only meaningful when the database subsystem is on.
	// When it is off an unset field is tolerated; it is never populated
	// behind the author's back.
	if m.sqlEnabled {
		if tc.SQL, err = asStringSlice(fields["sql"]); err != nil {
			return nil, fail("sql", err.Error())
		}
	}
	if tc.SetupSQL, err = asStringSlice(fields["setup_sql"]); err != nil {
		return nil, fail("setup_sql", err.Error())
	}
	if tc.TeardownSQL, err = asStringSlice(fields["teardown_sql"]); err != nil {
		return nil, fail("teardown_sql", err.Error())
	}

	if td, ok := fields["teardown"]; ok && td != nil {
		if err := reshape(td, &tc.Teardown); err != nil {
			return nil, fail("teardown", err.Error())
		}
	}
	if sc, ok := fields["current_request_set_cache"]; ok && sc != nil {
		if err := reshape(sc, &tc.SetCache); err != nil {
			return nil, fail("current_request_set_cache", err.Error())
		}
	}

	return tc, nil
}

func (m *Materializer) resolveFuncs(fields map[string]any) (map[string]any, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("serialize fields: %w", err)
	}
	text, err := m.res.ResolveFuncs(string(data))
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("reparse substituted fields: %w", err)
	}
	return out, nil
}

// parseAssertConfig splits the authored assertion map into the reserved
// status-code check and the typed comparison specs. Spec keys are walked
// in sorted order; authored data numbers its keys (assert_01, assert_02)
// so sorted order is authored order.
func parseAssertConfig(v any) (model.AssertConfig, error) {
	var cfg model.AssertConfig
	raw, ok := v.(map[string]any)
	if !ok || len(raw) == 0 {
		return cfg, fmt.Errorf("assertion config must be a non-empty mapping, got %T", v)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "status_code" {
			code, ok := asInt(raw[key])
			if !ok {
				return cfg, fmt.Errorf("status_code must be an integer, got %v", raw[key])
			}
			cfg.StatusCode = &code
			continue
		}
		spec, err := parseAssertSpec(raw[key])
		if err != nil {
			return cfg, fmt.Errorf("assertion %q: %w", key, err)
		}
		cfg.Specs = append(cfg.Specs, spec)
	}
	return cfg, nil
}

func parseAssertSpec(v any) (model.AssertSpec, error) {
	var spec model.AssertSpec
	raw, ok := v.(map[string]any)
	if !ok {
		return spec, fmt.Errorf("must be a mapping with jsonpath, type and value, got %T", v)
	}

	jsonpath, ok := raw["jsonpath"].(string)
	if !ok || jsonpath == "" {
		return spec, fmt.Errorf("missing jsonpath")
	}
	opName, ok := raw["type"].(string)
	if !ok {
		return spec, fmt.Errorf("missing type")
	}
	op, err := model.ParseOperator(opName)
	if err != nil {
		return spec, err
	}
	expected, ok := raw["value"]
	if !ok {
		return spec, fmt.Errorf("missing value")
	}

	spec.JSONPath = jsonpath
	spec.Operator = op
	spec.Expected = expected
	if kind, ok := raw["AssertType"].(string); ok {
		switch k := model.AssertKind(kind); k {
		case model.AssertSQL, model.AssertDSQL, model.AssertRequestSQL, model.AssertLiteral:
			spec.Kind = k
		default:
			return spec, fmt.Errorf("unsupported AssertType %q", kind)
		}
	}
	if msg, ok := raw["message"].(string); ok {
		spec.Message = msg
	}
	return spec, nil
}

// reshape converts a loosely-typed value into a typed structure through a
// JSON round trip.
func reshape(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func asStringMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asRunFlag(v any) *bool {
	switch t := v.(type) {
	case bool:
		return &t
	case string:
		b := strings.EqualFold(t, "true")
		if b || strings.EqualFold(t, "false") {
			return &b
		}
	}
	return nil
}

func asBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	}
	return 0
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	}
	return 0, false
}

func asStringSlice(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a list of sql strings, got element %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return []string{t}, nil
	default:
		return nil, fmt.Errorf("expected a list of sql strings, got %T", v)
	}
}
