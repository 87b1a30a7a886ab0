// Package features turns opportunity, bidder, market and historical records into
// fixed-schema numeric feature vectors.
package features

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSchemaMismatch indicates a vector whose feature names differ from the expected schema
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// Feature is one named numeric value
type Feature struct {
	Name  string
	Value float64
}

// Group is implemented by every fixed-schema feature group
type Group interface {
	Fields() []Feature
}

// Vector is the flat, ordered feature representation of one opportunity/bidder pair.
// A Vector is immutable; With returns a modified copy.
type Vector struct {
	names  []string
	values []float64
}

// NewVector builds a vector from parallel name/value slices
func NewVector(names []string, values []float64) (Vector, error) {
	if len(names) != len(values) {
		return Vector{}, fmt.Errorf("%w: %d names for %d values", ErrSchemaMismatch, len(names), len(values))
	}
	v := Vector{
		names:  make([]string, len(names)),
		values: make([]float64, len(values)),
	}
	copy(v.names, names)
	copy(v.values, values)
	return v, nil
}

// Assemble concatenates feature groups in the given order
func Assemble(groups ...Group) Vector {
	var v Vector
	for _, g := range groups {
		for _, f := range g.Fields() {
			v.names = append(v.names, f.Name)
			v.values = append(v.values, f.Value)
		}
	}
	return v
}

// Len returns the number of features
func (v Vector) Len() int {
	return len(v.names)
}

// Names returns a copy of the ordered feature names
func (v Vector) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Values returns a copy of the ordered feature values
func (v Vector) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// Get returns the value of a named feature
func (v Vector) Get(name string) (float64, bool) {
	if idx, ok := schemaIndex[name]; ok && idx < len(v.names) && v.names[idx] == name {
		return v.values[idx], true
	}
	for i, n := range v.names {
		if n == name {
			return v.values[i], true
		}
	}
	return 0, false
}

// Value returns the value of a named feature, or zero when absent
func (v Vector) Value(name string) float64 {
	val, _ := v.Get(name)
	return val
}

// With returns a copy of the vector with one feature replaced
func (v Vector) With(name string, value float64) Vector {
	out := Vector{names: v.names, values: v.Values()}
	for i, n := range v.names {
		if n == name {
			out.values[i] = value
			break
		}
	}
	return out
}

// Map returns the vector as a name to value map
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.names))
	for i, n := range v.names {
		m[n] = v.values[i]
	}
	return m
}

// Validate checks that the vector carries exactly the schema's names in order
func (v Vector) Validate(schema []string) error {
	if len(v.names) != len(schema) {
		return fmt.Errorf("%w: expected %d features, got %d (missing %v, unexpected %v)",
			ErrSchemaMismatch, len(schema), len(v.names), diff(schema, v.names), diff(v.names, schema))
	}
	for i, name := range schema {
		if v.names[i] != name {
			return fmt.Errorf("%w: position %d is %q, expected %q", ErrSchemaMismatch, i, v.names[i], name)
		}
	}
	return nil
}

func diff(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, n := range b {
		set[n] = struct{}{}
	}
	var out []string
	for _, n := range a {
		if _, ok := set[n]; !ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
