package api

import (
	"bytes"
	"encoding/json"
)

// Value is a named response value.
type Value struct {
	Name  string
	Value any
}

// Response collects the values an operation produces. Values keep the order
// in which they were first added.
type Response struct {
	values []Value
	index  map[string]int
}

// NewResponse creates an empty response.
func NewResponse() *Response {
	return &Response{index: make(map[string]int)}
}

// Add sets a value, replacing any previous value of the same name in place.
func (r *Response) Add(name string, v any) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.values[i].Value = v
		return
	}
	r.index[name] = len(r.values)
	r.values = append(r.values, Value{Name: name, Value: v})
}

// Get returns a value by name.
func (r *Response) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i].Value, true
}

// Append adds v to the list stored under name, creating the list if needed.
// A non-list value already stored under name becomes the first element.
func (r *Response) Append(name string, v any) {
	cur, ok := r.Get(name)
	if !ok {
		r.Add(name, []any{v})
		return
	}
	list, isList := cur.([]any)
	if !isList {
		list = []any{cur}
	}
	r.Add(name, append(list, v))
}

// Values returns the values in order.
func (r *Response) Values() []Value {
	out := make([]Value, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns the number of values.
func (r *Response) Len() int {
	return len(r.values)
}

// MarshalJSON encodes the values as an object in insertion order.
func (r *Response) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(v.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
