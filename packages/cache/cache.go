// Package cache implements the cross-case data bus: a named key/value store
// written by one executed case and read by later cases or assertions.
//
// Two backends co-exist. Store keeps values in memory for the lifetime of a
// test session and is the default. FileStore keeps one JSON-encoded value per
// file so a value can outlive a process restart; it is single-writer by
// convention and carries no locking against concurrent processes.
//
// Reading an unset name is always a hard error. The engine relies on this to
// catch dependency-wiring bugs early, so neither backend ever returns a
// default.
package cache

import (
	"fmt"
	"sync"
)

// Bus is the contract both backends satisfy.
type Bus interface {
	Set(name string, value any)
	Get(name string) (any, error)
	ClearAll() error
}

// NotFoundError is returned when a name has never been written.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cache value %q not found, check that an earlier case stored it", e.Name)
}

// Store is the in-memory cache bus. One Store is constructed per test
// session and passed by reference to every component that needs it; it is
// never shared across worker processes.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

func New() *Store {
	return &Store{values: make(map[string]any)}
}

// Set writes a value, unconditionally overwriting any previous one. There
// are no merge semantics.
func (s *Store) Set(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// Get returns the current value for name. An unset name is a hard error.
func (s *Store) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return v, nil
}

// ClearAll wipes the entire namespace. Used at session boundaries.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]any)
	return nil
}

// Len reports the number of stored values.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
