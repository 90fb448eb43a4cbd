package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
)

func formFromJSON(t *testing.T, fields string) *models.Form {
	t.Helper()
	f := &models.Form{}
	require.NoError(t, json.Unmarshal([]byte(fields), &f.Fields))
	return f
}

func TestSchemaSurvivesOddProperties(t *testing.T) {
	form := formFromJSON(t, `[
		{"id":"email","label":"Email Address","type":"email"},
		{"id":"plan","label":"Plan","type":"select","options":[{"label":"Pro","value":"pro"},{"value":"free"},"legacy"]},
		{"id":7,"name":"age","label":"Age","type":"number","required":"true"},
		{"id":"notes","label":{"en":"Notes"},"type":"textarea","x-layout":{"w":2}}
	]`)

	want := []resolver.Field{
		{ID: "email", Label: "Email Address", Type: "email"},
		{ID: "plan", Label: "Plan", Type: "select"},
		{ID: "age", Label: "Age", Type: "number"},
		{ID: "notes", Label: "", Type: "textarea"},
	}
	assert.Equal(t, want, form.Schema())

	typed := form.TypedFields()
	require.Len(t, typed, 4)
	assert.Equal(t, []string{"Pro", "free", "legacy"}, typed[1].Options)
	assert.True(t, typed[2].Required)
	assert.False(t, typed[0].Required)

	rows := resolver.Resolve(resolver.Object{{Key: "email", Value: "a@b.com"}, {Key: "plan", Value: "pro"}}, form.Schema())
	require.Len(t, rows, 2)
	assert.Equal(t, "Email Address", rows[0].Label)
	assert.Equal(t, "Plan", rows[1].Label)
	require.NotNil(t, rows[1].FieldType)
	assert.Equal(t, "select", *rows[1].FieldType)
}

func TestSchemaOfEmptyForm(t *testing.T) {
	assert.Empty(t, (&models.Form{}).Schema())
	assert.Nil(t, (&models.Form{}).TypedFields())
}
