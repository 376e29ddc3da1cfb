/*
 *	Copyright 2025 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package xslices provide missing functionality to the slices package.
package xslices

import (
	"flag"
	"fmt"
	"math"
	"math/cmplx"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
)

// Copy creates a new (shallow) copy of T. A short cut to a call to `make` and then `copy`.
func Copy[T any](slice []T) []T {
	if len(slice) == 0 {
		return nil
	}
	slice2 := make([]T, len(slice))
	copy(slice2, slice)
	return slice2
}

// FillSlice with fill the slice with the given value.
func FillSlice[T any](slice []T, value T) {
	// Apparently, the fastest way is by using copy.
	if len(slice) == 0 {
		return
	}
	slice[0] = value
	filled := 1
	for ; filled < len(slice); filled *= 2 {
		copy(slice[filled:], slice[:filled])
	}
}

// Map executes the given function sequentially for every element on in, and returns a mapped slice.
func Map[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}

// SortedKeys returns the sorted keys of a map.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// SlicesInDelta checks whether multidimensional slices s0 and s1 have the same shape and types,
// and that each of their values are within the given delta. Works with any numeric
// types.
//
// If delta <= 0, it checks for equality.
func SlicesInDelta(s0, s1 any, delta float64) bool {
	cmpFn := func(e0, e1 any) bool {
		if reflect.TypeOf(e0) != reflect.TypeOf(e1) {
			return false
		}
		if reflect.DeepEqual(e0, e1) {
			return true
		}
		if delta <= 0 {
			return false
		}

		e0v := reflect.ValueOf(e0)
		e1v := reflect.ValueOf(e1)
		kind := e0v.Kind()
		if kind == reflect.Complex64 || kind == reflect.Complex128 {
			return cmplx.Abs(e0v.Complex()-e1v.Complex()) <= delta
		}

		// Other numbers:
		deltaType := reflect.TypeOf(delta)
		if !e0v.CanConvert(deltaType) {
			// Not numeric, cannot check for delta.
			return false
		}
		e0Float := e0v.Convert(deltaType).Float()
		e1Float := e1v.Convert(deltaType).Float()
		return math.Abs(e0Float-e1Float) <= delta
	}
	return DeepSliceCmp(s0, s1, cmpFn)
}

// DeepSliceCmp returns false if the slices given are of different shapes, or if the given cmpFn
// returns false for any of the corresponding elements.
func DeepSliceCmp(s0, s1 any, cmpFn func(e0, e1 any) bool) bool {
	return recursiveDeepSliceCmp(reflect.ValueOf(s0), reflect.ValueOf(s1), cmpFn)
}

func recursiveDeepSliceCmp(s0, s1 reflect.Value, cmpFn func(e0, e1 any) bool) bool {
	if s0.Type().Kind() != s1.Type().Kind() {
		return false
	}
	if s0.Type().Kind() != reflect.Slice {
		return cmpFn(s0.Interface(), s1.Interface())
	}
	if s0.Len() != s1.Len() {
		return false
	}
	for ii := 0; ii < s0.Len(); ii++ {
		if !recursiveDeepSliceCmp(s0.Index(ii), s1.Index(ii), cmpFn) {
			return false
		}
	}
	return true
}

// Flag creates a flag for []T with the given name, description and default value.
// It takes as input a parser for an individual T value.
func Flag[T any](name string, defaultValue []T, usage string,
	parserFn func(valueStr string) (T, error)) *[]T {
	f := &genericSliceFlagImpl[T]{
		parsedSlice: defaultValue,
		parserFn:    parserFn,
	}
	flag.Var(f, name, usage)
	return &f.parsedSlice
}

// genericSliceFlagImpl implements flag.Value for a generic type.
type genericSliceFlagImpl[T any] struct {
	parsedSlice []T
	parserFn    func(valueStr string) (T, error)
}

func (f *genericSliceFlagImpl[T]) String() string {
	if len(f.parsedSlice) == 0 {
		return ""
	}
	parts := make([]string, len(f.parsedSlice))
	for ii, elem := range f.parsedSlice {
		if stringer, ok := any(elem).(fmt.Stringer); ok {
			parts[ii] = stringer.String()
		} else {
			parts[ii] = fmt.Sprintf("%v", elem)
		}
	}
	return strings.Join(parts, ",")
}

func (f *genericSliceFlagImpl[T]) Set(listStr string) error {
	if listStr == "" {
		f.parsedSlice = make([]T, 0)
		return nil
	}
	parts := strings.Split(listStr, ",")
	f.parsedSlice = make([]T, len(parts))
	var err error
	for ii, part := range parts {
		f.parsedSlice[ii], err = f.parserFn(strings.TrimSpace(part))
		if err != nil {
			return err
		}
	}
	return nil
}
