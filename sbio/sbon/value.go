// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbon

// Value is the dynamically typed SBON value tree: Null, Float, Bool, Int,
// Str, List, or *Map. It deliberately replaces a stringly-typed `any` with
// a sealed interface so a caller cannot construct a value shape the wire
// format has no tag for.
type Value interface {
	sbonValue()
}

// Null is the SBON null value.
type Null struct{}

// Float is an SBON float64 value.
type Float float64

// Bool is an SBON boolean value.
type Bool bool

// Int is an SBON signed-integer value.
type Int int64

// Str is an SBON string value.
type Str string

// List is an SBON ordered list of values.
type List []Value

func (Null) sbonValue()   {}
func (Float) sbonValue()  {}
func (Bool) sbonValue()   {}
func (Int) sbonValue()    {}
func (Str) sbonValue()    {}
func (List) sbonValue()   {}
func (*Map) sbonValue()   {}

// Map is an insertion-order-preserving string-keyed map of Values, the
// shape SBAsset6's metadata block and every nested SBON object use. Setting
// an already-present key updates the value in place without moving it;
// this is what gives "last write wins, first position wins" duplicate-key
// semantics on decode.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{vals: map[string]Value{}}
}

// Set assigns key to val, appending key to the iteration order if it is
// new.
func (m *Map) Set(key string, val Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = val
}

// Get returns the value at key, if present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Delete removes key, if present.
func (m *Map) Delete(key string) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the map's keys in insertion order. The returned slice must
// not be mutated.
func (m *Map) Keys() []string { return m.keys }

// Range calls fn for every entry in insertion order, stopping early if fn
// returns false.
func (m *Map) Range(fn func(key string, val Value) bool) {
	for _, k := range m.keys {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

// Equal reports whether m and other have the same keys, in the same order,
// with structurally equal values.
func (m *Map) Equal(other *Map) bool {
	if m == nil || other == nil {
		return m == other
	}
	if len(m.keys) != len(other.keys) {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k {
			return false
		}
		if !valuesEqual(m.vals[k], other.vals[k]) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv, ok := b.(*Map)
		return ok && av.Equal(bv)
	default:
		return a == b
	}
}
