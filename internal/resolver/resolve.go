// Package resolver turns raw submission payloads into display rows.
//
// A payload is an ordered JSON object keyed by field id. Each entry becomes
// one Row whose label and type come from the form's field schema when the
// schema knows the id. Rows always follow payload order; the schema never
// reorders rows or adds missing fields.
package resolver

import "strconv"

// Field is the part of a form field that resolution needs.
type Field struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Row is one resolved answer.
type Row struct {
	Position     int     `json:"position"`
	FieldID      string  `json:"fieldId"`
	Label        string  `json:"label"`
	FieldType    *string `json:"fieldType"`
	DisplayValue string  `json:"displayValue"`
}

// Type returns the field type or "" when the schema had none.
func (r Row) Type() string {
	if r.FieldType == nil {
		return ""
	}
	return *r.FieldType
}

// Resolve builds the display rows for one submission payload, unwrapping a
// legacy formData envelope first. A nil schema is allowed.
func Resolve(data Object, schema []Field) []Row {
	entries := Unwrap(data)
	rows := make([]Row, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, Row{
			Position:     i,
			FieldID:      e.Key,
			Label:        ResolveLabel(e.Key, i, schema),
			FieldType:    ResolveType(e.Key, schema),
			DisplayValue: Format(e.Value),
		})
	}
	return rows
}

// Unwrap returns data.formData when present and non-null, data otherwise.
// An array envelope is keyed by element index. A scalar envelope is not an
// answer map and is ignored.
func Unwrap(data Object) Object {
	inner, ok := data.Get("formData")
	if !ok {
		return data
	}
	switch t := normalize(inner).(type) {
	case Object:
		return t
	case []any:
		obj := make(Object, len(t))
		for i, v := range t {
			obj[i] = Entry{Key: strconv.Itoa(i), Value: v}
		}
		return obj
	}
	// A string envelope is ignored; a browser would split it into characters.
	return data
}

// ResolveLabel picks the label for the entry at position: the schema label,
// then "Question n" for legacy all-digit keys, then the key itself.
func ResolveLabel(fieldID string, position int, schema []Field) string {
	if f, ok := lookup(fieldID, schema); ok && f.Label != "" {
		return f.Label
	}
	if isDigits(fieldID) {
		return QuestionLabel(position)
	}
	return fieldID
}

// QuestionLabel is the positional label for a 0-based position.
func QuestionLabel(position int) string {
	return "Question " + strconv.Itoa(position+1)
}

// ResolveType returns the schema type for fieldID, or nil when the schema
// does not know the field.
func ResolveType(fieldID string, schema []Field) *string {
	f, ok := lookup(fieldID, schema)
	if !ok {
		return nil
	}
	t := f.Type
	return &t
}

func lookup(fieldID string, schema []Field) (Field, bool) {
	for _, f := range schema {
		if f.ID == fieldID {
			return f, true
		}
	}
	return Field{}, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
