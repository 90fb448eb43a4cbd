package models

import (
	"time"

	"github.com/parisxmas/formdesk/internal/resolver"
)

// FieldDefinition is used for typed access to known field properties.
type FieldDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Required    bool     `json:"required,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// Key is the submission data key for the field. Older builders wrote the
// key as "name" instead of "id".
func (f FieldDefinition) Key() string {
	if f.ID != "" {
		return f.ID
	}
	return f.Name
}

// Form stores fields as raw maps to preserve all builder properties (layout,
// validation, styling) the backend does not interpret.
type Form struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"ownerId"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description string           `json:"description,omitempty"`
	Fields      []map[string]any `json:"fields"`
	Published   bool             `json:"published"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// TypedFields reads the known properties of each raw field map. A property
// of an unexpected type is left at its zero value; it never hides the
// other properties or the other fields.
func (f *Form) TypedFields() []FieldDefinition {
	if len(f.Fields) == 0 {
		return nil
	}
	fields := make([]FieldDefinition, 0, len(f.Fields))
	for _, raw := range f.Fields {
		fields = append(fields, typedField(raw))
	}
	return fields
}

func typedField(raw map[string]any) FieldDefinition {
	fd := FieldDefinition{
		ID:          stringProp(raw, "id"),
		Name:        stringProp(raw, "name"),
		Label:       stringProp(raw, "label"),
		Type:        stringProp(raw, "type"),
		Placeholder: stringProp(raw, "placeholder"),
	}
	switch v := raw["required"].(type) {
	case bool:
		fd.Required = v
	case string:
		fd.Required = v == "true"
	}
	if opts, ok := raw["options"].([]any); ok {
		for _, o := range opts {
			switch t := o.(type) {
			case string:
				fd.Options = append(fd.Options, t)
			case map[string]any:
				if label := stringProp(t, "label"); label != "" {
					fd.Options = append(fd.Options, label)
				} else if value := stringProp(t, "value"); value != "" {
					fd.Options = append(fd.Options, value)
				}
			}
		}
	}
	return fd
}

func stringProp(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// Schema is the field list in the shape the resolver reads.
func (f *Form) Schema() []resolver.Field {
	typed := f.TypedFields()
	schema := make([]resolver.Field, 0, len(typed))
	for _, fd := range typed {
		schema = append(schema, resolver.Field{ID: fd.Key(), Label: fd.Label, Type: fd.Type})
	}
	return schema
}
