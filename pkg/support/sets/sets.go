// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sets implements a set type as a `map[T]struct{}` with better ergonomics.
package sets

// Set of keys of type T.
type Set[T comparable] map[T]struct{}

// Make returns an empty Set. The optional size reserves space for the expected number of keys.
func Make[T comparable](size ...int) Set[T] {
	if len(size) == 0 {
		return make(Set[T])
	}
	return make(Set[T], size[0])
}

// MakeWith returns a Set holding the given keys.
func MakeWith[T comparable](keys ...T) Set[T] {
	s := Make[T](len(keys))
	s.Insert(keys...)
	return s
}

// Has returns whether key is in the set.
func (s Set[T]) Has(key T) bool {
	_, found := s[key]
	return found
}

// Insert keys into the set.
func (s Set[T]) Insert(keys ...T) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// Visit inserts key and returns true if it was not yet in the set.
// It's the usual test of graph walks: `if !visited.Visit(node) { continue }`.
func (s Set[T]) Visit(key T) bool {
	if s.Has(key) {
		return false
	}
	s[key] = struct{}{}
	return true
}

// Equal returns whether s and s2 hold the same keys.
func (s Set[T]) Equal(s2 Set[T]) bool {
	if len(s) != len(s2) {
		return false
	}
	for key := range s {
		if !s2.Has(key) {
			return false
		}
	}
	return true
}
