// Package driver loads data-driven case files and turns them into
// validated, executable case records.
//
// Two source adapters cover the supported physical formats: nested YAML
// documents and Excel workbooks. Both produce the same raw shape, which
// the materializer validates, coerces, and resolves into model.TestCase
// values. The Driver facade selects the active adapter, caches loaded
// datasets per module file, and invalidates them on adapter switches or
// file changes.
package driver
