package resolver_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/formdesk/internal/resolver"
)

func TestParseDataKeepsKeyOrder(t *testing.T) {
	obj, err := resolver.ParseData([]byte(`{"z":1,"a":{"y":2,"b":3},"m":[{"q":1,"c":2}]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":{"y":2,"b":3},"m":[{"q":1,"c":2}]}`, string(out))
}

func TestParseDataDuplicateKeys(t *testing.T) {
	obj, err := resolver.ParseData([]byte(`{"a":1,"b":2,"a":3}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, obj.Keys())
	v, _ := obj.Get("a")
	assert.Equal(t, json.Number("3"), v)
}

func TestParseDataRejectsNonObjects(t *testing.T) {
	for _, in := range []string{`[1,2]`, `"x"`, `{"a":1} {}`, `{"a":`} {
		_, err := resolver.ParseData([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestObjectRoundTripInStruct(t *testing.T) {
	type envelope struct {
		Data resolver.Object `json:"data"`
	}
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"q2":"b","q1":"a"}}`), &env))
	assert.Equal(t, []string{"q2", "q1"}, env.Data.Keys())

	out, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"q2":"b","q1":"a"}}`, string(out))
}

func TestStringifyMatchesBrowserOutput(t *testing.T) {
	assert.Equal(t, `"a<b>&c"`, resolver.Stringify("a<b>&c"))
	assert.Equal(t, `"line\nbreak \"q\" \\"`, resolver.Stringify("line\nbreak \"q\" \\"))
	assert.Equal(t, `"\u0001"`, resolver.Stringify("\x01"))
	assert.Equal(t, `null`, resolver.Stringify(nil))
	assert.Equal(t, `[1,"x",null]`, resolver.Stringify([]any{1, "x", nil}))
	assert.Equal(t, `1e-7`, resolver.Stringify(json.Number("0.0000001")))
	assert.Equal(t, `0`, resolver.Stringify(json.Number("-0")))
}
