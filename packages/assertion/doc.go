// Package assertion implements the multi-modal assertion engine. Given a
// case's assertion configuration, the produced HTTP response, the outbound
// request body and an optional SQL query result, it performs the authored
// typed comparisons:
//
//   - the reserved status_code check runs first and fails fast
//   - untagged specs compare a response extraction against a literal
//   - SQL/D_SQL specs compare a response extraction against a database
//     query result
//   - R_SQL specs compare a request-body extraction against a database
//     query result
//
// A failed extraction is a distinct error from a failed comparison, and the
// first failure aborts the remaining assertions for that case. When the
// database subsystem is off, database-sourced specs are skipped with a
// warning rather than failed.
package assertion
