package driver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLAdapter reads the nested-document format: a mapping whose keys are
// case identifiers and whose values are per-case field maps, with the
// reserved case_common entry holding report-taxonomy tags.
type YAMLAdapter struct{}

func (a *YAMLAdapter) Extensions() []string {
	return []string{".yaml", ".yml"}
}

func (a *YAMLAdapter) Load(path string) (*RawDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case file %s: %w", path, err)
	}

	// Decode through yaml.Node first so case order survives: a plain map
	// decode would shuffle the identifiers.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse case file %s: %w", path, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("case file %s: empty document", path)
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("case file %s: top level must be a mapping of case ids", path)
	}

	ds := &RawDataset{File: path, Common: make(map[string]any)}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keyNode, valueNode := doc.Content[i], doc.Content[i+1]
		id := keyNode.Value

		if id == commonKey {
			if err := valueNode.Decode(&ds.Common); err != nil {
				return nil, fmt.Errorf("case file %s: decode %s: %w", path, commonKey, err)
			}
			continue
		}

		fields := make(map[string]any)
		if err := valueNode.Decode(&fields); err != nil {
			return nil, fmt.Errorf("case file %s: decode case %q: %w", path, id, err)
		}
		ds.Cases = append(ds.Cases, RawCase{ID: id, Fields: normalizeFields(fields)})
	}
	return ds, nil
}

// normalizeFields rewrites yaml's map[any]any-style nesting into the JSON
// shapes the rest of the pipeline expects. yaml.v3 already decodes string
// keys, so only nested values need the walk.
func normalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalizeFields(t)
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}
