package model

import (
	"fmt"
	"sort"
	"strings"
)

// Method is the HTTP method of a test case.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
	MethodHead   Method = "HEAD"
	MethodOption Method = "OPTION"
)

var methods = map[string]Method{
	"GET":    MethodGet,
	"POST":   MethodPost,
	"PUT":    MethodPut,
	"PATCH":  MethodPatch,
	"DELETE": MethodDelete,
	"HEAD":   MethodHead,
	"OPTION": MethodOption,
}

// ParseMethod normalizes a user-authored method value. Input is
// case-insensitive; the result is always upper-case.
func ParseMethod(s string) (Method, error) {
	m, ok := methods[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unsupported method %q, allowed: %s", s, allowed(methods))
	}
	return m, nil
}

// RequestKind describes how the request body/parameters are sent.
type RequestKind string

const (
	KindJSON   RequestKind = "JSON"
	KindParams RequestKind = "PARAMS"
	KindData   RequestKind = "DATA"
	KindFile   RequestKind = "FILE"
	KindExport RequestKind = "EXPORT"
	KindNone   RequestKind = "NONE"
)

var requestKinds = map[string]RequestKind{
	"JSON":   KindJSON,
	"PARAMS": KindParams,
	"DATA":   KindData,
	"FILE":   KindFile,
	"EXPORT": KindExport,
	"NONE":   KindNone,
}

// ParseRequestKind normalizes a user-authored request kind value.
func ParseRequestKind(s string) (RequestKind, error) {
	k, ok := requestKinds[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unsupported requestType %q, allowed: %s", s, allowed(requestKinds))
	}
	return k, nil
}

func allowed[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// Operator is one comparison operator of an assertion spec. The set is
// closed: the engine matches it exhaustively, so adding an operator is a
// compile-time-checked change.
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpStringEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpLengthEqual
	OpLengthGreater
	OpLengthGreaterOrEqual
	OpLengthLess
	OpLengthLessOrEqual
	OpContains
	OpContainedBy
	OpStartsWith
	OpEndsWith
)

var operatorNames = map[string]Operator{
	"==":           OpEqual,
	"not_eq":       OpNotEqual,
	"str_eq":       OpStringEqual,
	"lt":           OpLess,
	"le":           OpLessOrEqual,
	"gt":           OpGreater,
	"ge":           OpGreaterOrEqual,
	"len_eq":       OpLengthEqual,
	"len_gt":       OpLengthGreater,
	"len_ge":       OpLengthGreaterOrEqual,
	"len_lt":       OpLengthLess,
	"len_le":       OpLengthLessOrEqual,
	"contains":     OpContains,
	"contained_by": OpContainedBy,
	"startswith":   OpStartsWith,
	"endswith":     OpEndsWith,
}

func (o Operator) String() string {
	for name, op := range operatorNames {
		if op == o {
			return name
		}
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// ParseOperator maps an authored operator name ("==", "lt", "len_eq", ...)
// to its Operator value.
func ParseOperator(s string) (Operator, error) {
	op, ok := operatorNames[strings.TrimSpace(s)]
	if !ok {
		return 0, fmt.Errorf("unsupported assertion type %q, allowed: %s", s, allowed(operatorNames))
	}
	return op, nil
}

// AssertKind tags where an assertion's expected value comes from.
type AssertKind string

const (
	// AssertLiteral compares a response extraction against the authored value.
	AssertLiteral AssertKind = ""
	// AssertSQL compares a response extraction against a database query result.
	AssertSQL AssertKind = "SQL"
	// AssertDSQL is an alias for AssertSQL kept for historical data.
	AssertDSQL AssertKind = "D_SQL"
	// AssertRequestSQL compares a request-body extraction against a database
	// query result.
	AssertRequestSQL AssertKind = "R_SQL"
)

// AssertSpec is one comparison unit within a case's assertion collection.
type AssertSpec struct {
	JSONPath string     `json:"jsonpath"`
	Operator Operator   `json:"operator"`
	Expected any        `json:"expected"`
	Kind     AssertKind `json:"kind,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// AssertConfig is a case's full assertion configuration. StatusCode is the
// reserved check compared directly against the HTTP status; Specs are
// evaluated in authored order.
type AssertConfig struct {
	StatusCode *int         `json:"status_code,omitempty"`
	Specs      []AssertSpec `json:"specs,omitempty"`
}

// DependentData declares one value to pull in before a dependent case runs.
type DependentData struct {
	DependentType string `yaml:"dependent_type" json:"dependent_type"`
	JSONPath      string `yaml:"jsonpath" json:"jsonpath"`
	SetCache      string `yaml:"set_cache" json:"set_cache"`
	ReplaceKey    string `yaml:"replace_key" json:"replace_key"`
}

// Dependent type values for DependentData.
const (
	DependResponse = "response"
	DependRequest  = "request"
	DependSQLData  = "sqlData"
	DependCache    = "cache"
)

// DependentCase links a dependent case to one upstream case and the values
// that must be copied from it.
type DependentCase struct {
	CaseID        string          `yaml:"case_id" json:"case_id"`
	DependentData []DependentData `yaml:"dependent_data" json:"dependent_data"`
}

// SetCacheSpec instructs the engine to write a value extracted from the
// current request or response into the cache bus after execution.
type SetCacheSpec struct {
	Type     string `yaml:"type" json:"type"`
	JSONPath string `yaml:"jsonpath" json:"jsonpath"`
	Name     string `yaml:"name" json:"name"`
}

// ParamPrepare and SendRequest make up a teardown instruction. The engine
// passes teardown data through untouched; a post-execution collaborator
// interprets it.
type ParamPrepare struct {
	DependentType string `yaml:"dependent_type" json:"dependent_type"`
	JSONPath      string `yaml:"jsonpath" json:"jsonpath"`
	SetCache      string `yaml:"set_cache" json:"set_cache"`
}

type SendRequest struct {
	DependentType string `yaml:"dependent_type" json:"dependent_type"`
	JSONPath      string `yaml:"jsonpath" json:"jsonpath"`
	CacheData     string `yaml:"cache_data" json:"cache_data"`
	SetCache      string `yaml:"set_cache" json:"set_cache"`
	ReplaceKey    string `yaml:"replace_key" json:"replace_key"`
}

type Teardown struct {
	CaseID       string         `yaml:"case_id" json:"case_id"`
	ParamPrepare []ParamPrepare `yaml:"param_prepare" json:"param_prepare"`
	SendRequest  []SendRequest  `yaml:"send_request" json:"send_request"`
}

// TestCase is the canonical, schema-validated representation of one case.
// It is immutable after materialization; per-invocation copies carry the
// placeholder-resolved values.
type TestCase struct {
	CaseID             string          `json:"case_id"`
	URL                string          `json:"url"`
	Method             Method          `json:"method"`
	Detail             string          `json:"detail"`
	Headers            map[string]any  `json:"headers"`
	RequestKind        RequestKind     `json:"requestType"`
	Data               any             `json:"data"`
	IsRun              *bool           `json:"is_run"` // nil means "run"
	DependenceCase     bool            `json:"dependence_case"`
	DependenceCaseData []DependentCase `json:"dependence_case_data,omitempty"`
	Assert             AssertConfig    `json:"assert_data"`
	SQL                []string        `json:"sql,omitempty"`
	SetupSQL           []string        `json:"setup_sql,omitempty"`
	TeardownSQL        []string        `json:"teardown_sql,omitempty"`
	Teardown           []Teardown      `json:"teardown,omitempty"`
	SetCache           []SetCacheSpec  `json:"current_request_set_cache,omitempty"`
	Sleep              float64         `json:"sleep,omitempty"` // seconds
}

// ShouldRun reports whether the case is enabled. An absent run flag means
// the case runs.
func (c *TestCase) ShouldRun() bool {
	return c.IsRun == nil || *c.IsRun
}

// CommonConfig is the reserved non-case entry of a data file: report
// taxonomy tags consumed by the reporting layer.
type CommonConfig struct {
	AllureEpic    string `yaml:"allureEpic" json:"allureEpic"`
	AllureFeature string `yaml:"allureFeature" json:"allureFeature"`
	AllureStory   string `yaml:"allureStory" json:"allureStory"`
}

// CaseError is a materialization error. It names the offending case and the
// source file so the case can be located without re-running with extra
// verbosity.
type CaseError struct {
	CaseID string
	File   string
	Field  string
	Reason string
}

func (e *CaseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("case %q (%s): field %q: %s", e.CaseID, e.File, e.Field, e.Reason)
	}
	return fmt.Sprintf("case %q (%s): %s", e.CaseID, e.File, e.Reason)
}
