// Package model defines the canonical case schema shared by every data
// source: the TestCase record, the closed Method/RequestKind/Operator
// enumerations, assertion specs, and the dependency and teardown structures.
//
// Source adapters emit loosely-typed field maps; the driver materializer
// coerces them once into these strict types. After materialization a
// TestCase is never mutated, only copied with placeholders resolved.
package model
