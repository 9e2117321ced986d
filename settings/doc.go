// Package settings implements the ordered key/value container handed to
// elements at construction and update time.
//
// Every key carries up to three independent layers: a user value, a default
// value and an autoselect value. Plain getters return the user value when
// present, otherwise the default, otherwise the zero value. Defaults survive
// Clear, so an element can be reset to its factory state with
//
//	s.Clear()
//	descriptor.Defaults(s)
//
// Values are bool, int64, float64, string, nested *Data or *Array. The
// canonical text form is JSON holding user values only, with key order
// preserved and integers kept distinct from floats. YAML is accepted as an
// alternative form, and Decode maps the effective values onto a struct with
// mapstructure.
package settings
