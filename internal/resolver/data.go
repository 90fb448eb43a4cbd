package resolver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"strconv"
)

// Entry is one key/value pair of a submission payload.
type Entry struct {
	Key   string
	Value any
}

// Object is a JSON object with browser key order: array-index keys first in
// ascending numeric order, then every other key in the order it was written.
// Go maps keep no order, and submission rows must come out in this one.
type Object []Entry

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, e := range o {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in object order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, e := range o {
		keys[i] = e.Key
	}
	return keys
}

// set keeps the first position of a repeated key and the last value,
// which is what a browser JSON.parse does. A new array-index key goes after
// the smaller indexes and before every other key.
func (o Object) set(key string, value any) Object {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = value
			return o
		}
	}
	idx, ok := arrayIndex(key)
	if !ok {
		return append(o, Entry{Key: key, Value: value})
	}
	at := len(o)
	for i, e := range o {
		if n, isIdx := arrayIndex(e.Key); !isIdx || n > idx {
			at = i
			break
		}
	}
	return slices.Insert(o, at, Entry{Key: key, Value: value})
}

// arrayIndex reports whether key is a canonical array index: a decimal
// integer below 2^32-1 without leading zeros, so "0" and "42" are and "01"
// and "-1" are not.
func arrayIndex(key string) (uint32, bool) {
	if key == "" || len(key) > 10 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

// MarshalJSON writes the object back with its original key order.
func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	return []byte(Stringify(o)), nil
}

// UnmarshalJSON decodes a JSON object keeping key order. JSON null leaves
// the object empty.
func (o *Object) UnmarshalJSON(b []byte) error {
	obj, err := ParseData(b)
	if err != nil {
		return err
	}
	*o = obj
	return nil
}

// ParseData decodes a submission payload. Nested objects are decoded as
// Object, arrays as []any, numbers as json.Number. Empty input and JSON
// null yield an empty object.
func ParseData(b []byte) (Object, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, fmt.Errorf("resolver: decode data: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("resolver: decode data: trailing content after object")
	}

	switch t := v.(type) {
	case nil:
		return nil, nil
	case Object:
		return t, nil
	default:
		return nil, fmt.Errorf("resolver: data must be a JSON object, got %T", v)
	}
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := Object{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", kt)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj = obj.set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %v", delim)
}

// normalize maps values built in Go code onto the shapes ParseData
// produces, so callers may pass map[string]any, []string or native numbers.
// Plain maps carry no order; their keys are sorted, then placed in object
// order.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, json.Number, Object:
		return v
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(Object, 0, len(t))
		for _, k := range keys {
			obj = obj.set(k, normalize(t[k]))
		}
		return obj
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case float64:
		return json.Number(strconv.FormatFloat(t, 'g', -1, 64))
	case float32:
		return json.Number(strconv.FormatFloat(float64(t), 'g', -1, 32))
	case int:
		return json.Number(strconv.Itoa(t))
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case int32:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case uint:
		return json.Number(strconv.FormatUint(uint64(t), 10))
	case uint64:
		return json.Number(strconv.FormatUint(t, 10))
	case json.RawMessage:
		var out any
		dec := json.NewDecoder(bytes.NewReader(t))
		dec.UseNumber()
		if val, err := decodeValue(dec); err == nil {
			out = val
		}
		return out
	}
	return fmt.Sprint(v)
}
