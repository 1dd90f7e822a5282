// Package param implements the parameter binder (spec §4.2): it validates
// and merges named, positional, and default parameters against a per-node
// schema, producing a single chokepoint before which no downstream code runs
// against unvalidated configuration (spec §9 design note).
package param

import (
	"fmt"
	"regexp"

	"github.com/speechflow/engine/errs"
	"github.com/xeipuuv/gojsonschema"
)

// Type is the primitive tag a schema entry declares.
type Type int

const (
	// String parameters are validated, optionally, against a regular
	// expression (Match).
	String Type = iota
	// Number parameters are validated, optionally, against a predicate
	// (NumberMatch).
	Number
	// Boolean parameters carry no further validation.
	Boolean
	// Object parameters are structured values validated against a JSON
	// Schema document (ObjectSchema) — a supplement to spec §4.2's three
	// primitive tags, used by nodes that accept structured defaults.
	Object
)

// Entry describes one named parameter in a node's schema.
type Entry struct {
	Type Type

	// Pos, if non-nil, is the zero-based index into the positional
	// argument list this parameter may be bound from when not supplied as
	// a named option.
	Pos *int

	// Default is used when the parameter is supplied neither as a named
	// option nor (if Pos is set) as a positional argument.
	Default any

	// Match is a regular expression applied to String parameters.
	Match *regexp.Regexp

	// NumberMatch is a predicate applied to Number parameters.
	NumberMatch func(float64) bool

	// ObjectSchema is a JSON Schema (as a Go value, marshalable to JSON)
	// applied to Object parameters.
	ObjectSchema any
}

// Schema is a mapping from parameter name to its Entry.
type Schema map[string]Entry

// Pos is a convenience constructor for a positional index, since Go does not
// allow taking the address of an int literal inline.
func Pos(i int) *int {
	return &i
}

// Bound is the validated configuration a node sees after Bind succeeds: a
// plain map from name to its bound value (always assignable to the
// declared Type).
type Bound map[string]any

// Bind validates and merges named options and positional arguments against
// schema, following the four-step rule of spec §4.2:
//  1. a named option, if supplied, must match type and Match/NumberMatch;
//  2. else a positional argument, if schema declares Pos and enough args
//     were supplied;
//  3. else Default, if present;
//  4. else ConfigError: required parameter missing.
//
// Finally, any named option not declared in schema, and any positional
// argument not claimed by some entry's Pos, is rejected.
func Bind(schema Schema, named map[string]any, positional []any) (Bound, error) {
	bound := make(Bound, len(schema))
	claimedPositions := make(map[int]bool)

	for name, entry := range schema {
		if entry.Pos != nil {
			claimedPositions[*entry.Pos] = true
		}
		value, found, err := bindOne(name, entry, named, positional, claimedPositions)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &errs.ConfigErrorKind{Reason: fmt.Sprintf("required parameter %q missing", name)}
		}
		bound[name] = value
	}

	if err := rejectUnknownNamed(schema, named); err != nil {
		return nil, err
	}
	if err := rejectUnclaimedPositional(positional, claimedPositions); err != nil {
		return nil, err
	}

	return bound, nil
}

func bindOne(
	name string,
	entry Entry,
	named map[string]any,
	positional []any,
	claimedPositions map[int]bool,
) (any, bool, error) {
	if v, ok := named[name]; ok {
		if err := validate(name, entry, v); err != nil {
			return nil, false, err
		}
		return v, true, nil
	}

	if entry.Pos != nil && *entry.Pos < len(positional) {
		v := positional[*entry.Pos]
		if err := validate(name, entry, v); err != nil {
			return nil, false, err
		}
		claimedPositions[*entry.Pos] = true
		return v, true, nil
	}

	if entry.Default != nil {
		return entry.Default, true, nil
	}

	return nil, false, nil
}

func rejectUnknownNamed(schema Schema, named map[string]any) error {
	for name := range named {
		if _, ok := schema[name]; !ok {
			return &errs.ConfigErrorKind{Reason: fmt.Sprintf("unknown named parameter %q", name)}
		}
	}
	return nil
}

func rejectUnclaimedPositional(positional []any, claimed map[int]bool) error {
	for i := range positional {
		if !claimed[i] {
			return &errs.ConfigErrorKind{Reason: fmt.Sprintf("unclaimed positional argument at index %d", i)}
		}
	}
	return nil
}

func validate(name string, entry Entry, v any) error {
	switch entry.Type {
	case String:
		s, ok := v.(string)
		if !ok {
			return &errs.ConfigErrorKind{Reason: fmt.Sprintf("parameter %q: expected string, got %T", name, v)}
		}
		if entry.Match != nil && !entry.Match.MatchString(s) {
			return &errs.ConfigErrorKind{Reason: fmt.Sprintf("parameter %q: %q does not match %s", name, s, entry.Match.String())}
		}
		return nil
	case Number:
		n, ok := toFloat(v)
		if !ok {
			return &errs.ConfigErrorKind{Reason: fmt.Sprintf("parameter %q: expected number, got %T", name, v)}
		}
		if entry.NumberMatch != nil && !entry.NumberMatch(n) {
			return &errs.ConfigErrorKind{Reason: fmt.Sprintf("parameter %q: %v fails predicate", name, n)}
		}
		return nil
	case Boolean:
		if _, ok := v.(bool); !ok {
			return &errs.ConfigErrorKind{Reason: fmt.Sprintf("parameter %q: expected boolean, got %T", name, v)}
		}
		return nil
	case Object:
		return validateObject(name, entry, v)
	default:
		return &errs.ConfigErrorKind{Reason: fmt.Sprintf("parameter %q: unknown schema type", name)}
	}
}

func validateObject(name string, entry Entry, v any) error {
	if entry.ObjectSchema == nil {
		return nil
	}
	schemaLoader := gojsonschema.NewGoLoader(entry.ObjectSchema)
	docLoader := gojsonschema.NewGoLoader(v)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return &errs.ConfigErrorKind{Reason: fmt.Sprintf("parameter %q: schema validation error: %v", name, err)}
	}
	if !result.Valid() {
		return &errs.ConfigErrorKind{Reason: fmt.Sprintf("parameter %q: %v", name, result.Errors())}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
