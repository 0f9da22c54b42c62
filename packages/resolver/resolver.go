package resolver

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tianxiaolong/pytest-auto-api2/packages/builtin"
	"github.com/tianxiaolong/pytest-auto-api2/packages/cache"
)

var (
	funcPattern       = regexp.MustCompile(`\$\{\{(.*?)\}\}`)
	cachePattern      = regexp.MustCompile(`\$cache\{([^}]*)\}`)
	typedCachePattern = regexp.MustCompile(`['"]\$cache\{(int|float|bool|list|dict|tuple):([^}]*)\}['"]`)
)

// Resolver evaluates the embedded dynamic expressions of case data against
// the cache bus and the builtin function registry.
//
// The grammar is deliberately small. Inside any string three forms are
// recognized:
//
//	${{fn(a, b)}}          call fn from the function registry
//	$cache{name}           substitute the cached value in place
//	'$cache{int:name}'     substitute the cached value and drop the
//	                       surrounding quotes, so the literal parser
//	                       re-types the fragment (int, float, bool, list,
//	                       dict or tuple)
//
// Substitution happens on the text serialization of a field map before
// structural parsing, which is what lets a placeholder sit inside what will
// become a boolean, list or nested object.
type Resolver struct {
	bus   cache.Bus
	funcs *builtin.Registry
}

func New(bus cache.Bus) *Resolver {
	return &Resolver{
		bus:   bus,
		funcs: builtin.NewRegistry(),
	}
}

// Funcs exposes the registry so the environment layer can register
// configuration-bound functions such as host().
func (r *Resolver) Funcs() *builtin.Registry {
	return r.funcs
}

// Resolve substitutes every placeholder in text. An unset cache name or an
// unknown function is a hard error naming the expression, never a silent
// default.
func (r *Resolver) Resolve(text string) (string, error) {
	text, err := r.ResolveCache(text)
	if err != nil {
		return text, err
	}
	return r.ResolveFuncs(text)
}

// ResolveCache substitutes only the $cache{...} references. The driver runs
// it per test invocation, after earlier cases have had a chance to write
// the values.
func (r *Resolver) ResolveCache(text string) (string, error) {
	var firstErr error

	keep := func(match string, err error) string {
		if firstErr == nil {
			firstErr = err
		}
		return match
	}

	// Typed cache references consume their surrounding quotes so the
	// substituted fragment literal-parses into the declared type.
	text = typedCachePattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := typedCachePattern.FindStringSubmatch(match)
		value, err := r.bus.Get(sub[2])
		if err != nil {
			return keep(match, err)
		}
		return render(value)
	})

	text = cachePattern.ReplaceAllStringFunc(text, func(match string) string {
		name := cachePattern.FindStringSubmatch(match)[1]
		value, err := r.bus.Get(name)
		if err != nil {
			return keep(match, err)
		}
		return render(value)
	})

	return text, firstErr
}

// ResolveFuncs substitutes only the ${{fn(...)}} function calls. The
// materializer runs it once per data load.
func (r *Resolver) ResolveFuncs(text string) (string, error) {
	var firstErr error

	text = funcPattern.ReplaceAllStringFunc(text, func(match string) string {
		expr := strings.TrimSpace(funcPattern.FindStringSubmatch(match)[1])
		result, ok := r.funcs.Call(expr)
		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("unresolved function call %q", expr)
			}
			return match
		}
		return render(result)
	})

	return text, firstErr
}

// render turns a substituted value into text the literal parser can take
// back apart. Substitutions land inside a JSON serialization, so string
// content is escaped to keep the surrounding document parseable.
func render(v any) string {
	switch t := v.(type) {
	case string:
		return escapeString(t)
	case float64:
		// Keep integral floats free of a trailing ".0" wobble so numeric
		// fields round-trip through the text phase.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case []any, map[string]any:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// escapeString JSON-escapes a string without its enclosing quotes, so it can
// replace a placeholder that already sits between quotes.
func escapeString(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return string(data[1 : len(data)-1])
}
