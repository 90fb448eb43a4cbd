package resolver

import (
	"encoding/json"
	"strings"
)

// Kind discriminates the shapes a submitted answer can take.
type Kind int

const (
	KindNone Kind = iota
	KindName
	KindAddress
	KindList
	KindObject
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindName:
		return "name"
	case KindAddress:
		return "address"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	case KindScalar:
		return "scalar"
	}
	return "unknown"
}

// Display strings for answers that carry nothing to show.
const (
	NoAnswer    = "No answer"
	NoSelection = "No selection"
)

var addressKeys = [...]string{"street", "city", "state", "zip"}

// Value is an answer normalized into one of the Kind shapes.
type Value struct {
	Kind Kind

	// First and Last are set for KindName.
	First, Last string
	// Parts holds the present address components for KindAddress and the
	// stringified elements for KindList.
	Parts []string
	// Raw is the original value for KindObject and KindScalar.
	Raw any
}

// Classify sorts v into a Kind. The checks run in a fixed order: missing,
// name object, address object, array, other object, scalar. An object
// with both name and address keys is a name.
func Classify(v any) Value {
	v = normalize(v)
	switch t := v.(type) {
	case nil:
		return Value{Kind: KindNone}
	case Object:
		first, _ := t.Get("firstName")
		last, _ := t.Get("lastName")
		if truthy(first) || truthy(last) {
			return Value{Kind: KindName, First: orEmpty(first), Last: orEmpty(last)}
		}
		var parts []string
		for _, k := range addressKeys {
			if c, _ := t.Get(k); truthy(c) {
				parts = append(parts, toString(c))
			}
		}
		if len(parts) > 0 {
			return Value{Kind: KindAddress, Parts: parts}
		}
		return Value{Kind: KindObject, Raw: t}
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = toString(e)
		}
		return Value{Kind: KindList, Parts: parts}
	}
	return Value{Kind: KindScalar, Raw: v}
}

// String renders the value for display and export.
func (v Value) String() string {
	switch v.Kind {
	case KindNone:
		return NoAnswer
	case KindName:
		return v.First + " " + v.Last
	case KindAddress:
		return strings.Join(v.Parts, ", ")
	case KindList:
		if len(v.Parts) == 0 {
			return NoSelection
		}
		return strings.Join(v.Parts, ", ")
	case KindObject:
		return Stringify(v.Raw)
	}
	return toString(v.Raw)
}

// Format renders one submitted answer as display text.
func Format(v any) string {
	return Classify(v).String()
}

func orEmpty(v any) string {
	if !truthy(v) {
		return ""
	}
	return toString(v)
}

// truthy reports whether a browser would treat v as true in a condition.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		s := numberString(t)
		return s != "0" && s != "NaN"
	}
	return true
}
