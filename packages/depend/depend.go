// Package depend resolves declared inter-case dependencies. A dependent
// case names its upstream cases and, per declaration, where to pull a
// value from (request, response, SQL data, or the cache bus) and what to
// do with it (store under a cache name, or splice into the dependent
// case's own request).
package depend

import (
	"context"
	"fmt"
	"os"
	"strings"

	"pkt.systems/pslog"

	"github.com/tianxiaolong/pytest-auto-api2/packages/cache"
	"github.com/tianxiaolong/pytest-auto-api2/packages/core/model"
	"github.com/tianxiaolong/pytest-auto-api2/packages/extract"
	"github.com/tianxiaolong/pytest-auto-api2/packages/http"
)

// Outcome is what an upstream case execution produced, as far as
// dependency extraction is concerned.
type Outcome struct {
	RequestBody any
	Response    *http.Response
	SQLData     map[string]any
}

// Executor obtains the outcome of the named upstream case, either by
// running it or by reusing a kept result from earlier in the session.
type Executor func(ctx context.Context, caseID string) (*Outcome, error)

// Manager applies dependence_case_data declarations before a case runs and
// current_request_set_cache instructions after it.
type Manager struct {
	bus  cache.Bus
	exec Executor
	log  pslog.Base
}

type Option func(*Manager)

func WithLogger(log pslog.Base) Option {
	return func(m *Manager) {
		m.log = log
	}
}

func NewManager(bus cache.Bus, exec Executor, opts ...Option) *Manager {
	m := &Manager{
		bus:  bus,
		exec: exec,
		log:  pslog.NewWithOptions(os.Stderr, pslog.Options{MinLevel: pslog.InfoLevel}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Prepare walks the case's dependency declarations, pulls each declared
// value, and mutates tc in place where a replace_key target is given.
// A case without the dependence flag is left untouched.
func (m *Manager) Prepare(ctx context.Context, tc *model.TestCase) error {
	if !tc.DependenceCase {
		return nil
	}
	for _, dep := range tc.DependenceCaseData {
		var outcome *Outcome
		for _, d := range dep.DependentData {
			value, err := m.pull(ctx, dep.CaseID, d, &outcome)
			if err != nil {
				return fmt.Errorf("case %q depends on %q: %w", tc.CaseID, dep.CaseID, err)
			}
			if d.SetCache != "" {
				m.bus.Set(d.SetCache, value)
			}
			if d.ReplaceKey != "" {
				if err := replaceByPath(tc, d.ReplaceKey, value); err != nil {
					return fmt.Errorf("case %q: replace %q: %w", tc.CaseID, d.ReplaceKey, err)
				}
			}
		}
	}
	return nil
}

// pull extracts one declared value. The upstream case is executed at most
// once per declaration block, and only when a declaration actually needs
// its outcome.
func (m *Manager) pull(ctx context.Context, upstreamID string, d model.DependentData, outcome **Outcome) (any, error) {
	if d.DependentType == model.DependCache {
		value, err := m.bus.Get(d.JSONPath)
		if err != nil {
			return nil, err
		}
		return value, nil
	}

	if *outcome == nil {
		out, err := m.exec(ctx, upstreamID)
		if err != nil {
			return nil, err
		}
		*outcome = out
	}
	out := *outcome

	switch d.DependentType {
	case model.DependResponse:
		return extract.FromJSON(out.Response.Body, d.JSONPath)
	case model.DependRequest:
		return extract.FromValue(out.RequestBody, d.JSONPath)
	case model.DependSQLData:
		return extract.FromValue(out.SQLData, d.JSONPath)
	default:
		return nil, fmt.Errorf("unknown dependent_type %q, supported: %s, %s, %s, %s",
			d.DependentType, model.DependResponse, model.DependRequest, model.DependSQLData, model.DependCache)
	}
}

// SetCurrentRequestCache runs the case's post-execution cache writes. An
// extraction miss is a hard error: a later case named this value, so
// silently writing nothing would only move the failure somewhere less
// explicable.
func (m *Manager) SetCurrentRequestCache(specs []model.SetCacheSpec, requestBody any, resp *http.Response) error {
	for _, spec := range specs {
		var (
			value any
			err   error
		)
		switch spec.Type {
		case "request":
			value, err = extract.FromValue(requestBody, spec.JSONPath)
		case "response":
			value, err = extract.FromJSON(resp.Body, spec.JSONPath)
		default:
			return fmt.Errorf("set_cache %q: unknown source %q, want request or response", spec.Name, spec.Type)
		}
		if err != nil {
			return fmt.Errorf("set_cache %q: %w", spec.Name, err)
		}
		m.bus.Set(spec.Name, value)
		m.log.Info("cached value from current request", "name", spec.Name, "source", spec.Type)
	}
	return nil
}

// replaceByPath splices value into the case at a "$.segment.segment" path.
// The first segment picks the case field (headers or data); the rest walk
// nested maps, which are created on the way down.
func replaceByPath(tc *model.TestCase, path string, value any) error {
	trimmed := strings.TrimPrefix(path, "$.")
	if trimmed == path || trimmed == "" {
		return fmt.Errorf("replace_key must look like $.data.field, got %q", path)
	}
	segments := strings.Split(trimmed, ".")

	switch segments[0] {
	case "headers":
		if len(segments) != 2 {
			return fmt.Errorf("header replacement takes exactly one key, got %q", path)
		}
		if tc.Headers == nil {
			tc.Headers = make(map[string]any)
		}
		tc.Headers[segments[1]] = value
		return nil
	case "data":
		segments = segments[1:]
		if len(segments) == 0 {
			tc.Data = value
			return nil
		}
	}

	target, ok := tc.Data.(map[string]any)
	if !ok {
		if tc.Data != nil {
			return fmt.Errorf("request data is %T, cannot set nested key", tc.Data)
		}
		target = make(map[string]any)
		tc.Data = target
	}
	for _, seg := range segments[:len(segments)-1] {
		next, ok := target[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			target[seg] = next
		}
		target = next
	}
	target[segments[len(segments)-1]] = value
	return nil
}
