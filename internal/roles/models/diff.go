package models

import (
	"reflect"

	"rolesync/internal/documents"
)

// Project returns the value of field in f and whether it is present.
func Project(f documents.Fields, field string) (any, bool) {
	v, ok := f[field]
	return v, ok
}

// FieldChange describes how one tracked field moved between two document states.
type FieldChange struct {
	Field   string
	Value   any  // value after the write; nil when removed
	Present bool // false when the field is absent after the write
}

// Changed compares field between before and after. A field absent from both
// states compares equal to itself.
func Changed(before, after documents.Fields, field string) (FieldChange, bool) {
	bv, bok := Project(before, field)
	av, aok := Project(after, field)
	if bok == aok && reflect.DeepEqual(bv, av) {
		return FieldChange{}, false
	}
	return FieldChange{Field: field, Value: av, Present: aok}, true
}

// Diff returns the changes of every tracked field that differs, in the order
// the fields were given.
func Diff(before, after documents.Fields, fields ...string) []FieldChange {
	var out []FieldChange
	for _, field := range fields {
		if c, ok := Changed(before, after, field); ok {
			out = append(out, c)
		}
	}
	return out
}
