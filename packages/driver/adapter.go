package driver

// RawCase is one case as a source adapter read it: an identifier plus a
// loosely-typed field map. Field values are the semi-structured types
// (nil, bool, float64, string, []any, map[string]any); the materializer
// coerces them once into the canonical schema.
type RawCase struct {
	ID     string
	Fields map[string]any
}

// RawDataset is one physical file's content in the shared adapter schema:
// the common report-taxonomy config plus the cases in authored order.
type RawDataset struct {
	File   string
	Common map[string]any
	Cases  []RawCase
}

// Adapter reads one physical file format. Both implementations emit
// structurally interchangeable RawDatasets so the materializer never needs
// to know which one produced a record.
type Adapter interface {
	Load(path string) (*RawDataset, error)
	Extensions() []string
}

// commonKey is the reserved identifier holding report-taxonomy tags; it is
// never a case.
const commonKey = "case_common"
