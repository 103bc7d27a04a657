// Package command models the named operations carried by a command payload,
// for example {"set-property": {"a": "1"}, "unset-property": "b"}.
package command

import (
	"errors"
	"fmt"
	"sort"

	"github.com/artpar/specgate/domain/spec"
)

// ErrMalformedPayload is returned for payloads that cannot be parsed into
// operations.
var ErrMalformedPayload = errors.New("malformed command payload")

// Operation is one named entry of a command payload. Errors found while
// validating or reading it accumulate on the operation itself.
type Operation struct {
	Name   string
	Data   any
	errors []string
}

// New creates an operation.
func New(name string, data any) *Operation {
	return &Operation{Name: name, Data: data}
}

// AddError records a problem with this operation.
func (o *Operation) AddError(msg string) {
	o.errors = append(o.errors, msg)
}

// Errors returns the recorded problems.
func (o *Operation) Errors() []string {
	out := make([]string, len(o.errors))
	copy(out, o.errors)
	return out
}

// HasErrors reports whether any problem was recorded.
func (o *Operation) HasErrors() bool {
	return len(o.errors) > 0
}

// Clone copies the operation, its data and its recorded errors.
func (o *Operation) Clone() *Operation {
	cp := &Operation{
		Name: o.Name,
		Data: spec.CloneValue(o.Data, spec.DefaultCopyDepth),
	}
	if len(o.errors) > 0 {
		cp.errors = append([]string(nil), o.errors...)
	}
	return cp
}

// Clone copies every operation in ops.
func Clone(ops []*Operation) []*Operation {
	out := make([]*Operation, len(ops))
	for i, op := range ops {
		out[i] = op.Clone()
	}
	return out
}

// ErrorEntry reports the problems of a single operation.
type ErrorEntry struct {
	Name   string   `json:"name"`
	Data   any      `json:"data"`
	Errors []string `json:"errorMessages"`
}

// CaptureErrors returns an entry for every operation that recorded an error,
// in payload order.
func CaptureErrors(ops []*Operation) []ErrorEntry {
	var entries []ErrorEntry
	for _, op := range ops {
		if op.HasErrors() {
			entries = append(entries, ErrorEntry{Name: op.Name, Data: op.Data, Errors: op.Errors()})
		}
	}
	return entries
}

// Map returns the operation data as an object. A missing or mistyped body
// records an error and returns nil.
func (o *Operation) Map() map[string]any {
	m, ok := o.Data.(map[string]any)
	if !ok {
		o.AddError(fmt.Sprintf("the command '%s' must have an object body", o.Name))
		return nil
	}
	return m
}

// Str returns a required string field. An empty key reads the body itself.
func (o *Operation) Str(key string) string {
	v, ok := o.lookup(key)
	if !ok {
		o.AddError(fmt.Sprintf("'%s' is a required field", o.fieldName(key)))
		return ""
	}
	s, ok := v.(string)
	if !ok {
		o.AddError(fmt.Sprintf("'%s' must be a string", o.fieldName(key)))
		return ""
	}
	return s
}

// OptStr returns an optional string field, or def when absent.
func (o *Operation) OptStr(key, def string) string {
	v, ok := o.lookup(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		o.AddError(fmt.Sprintf("'%s' must be a string", o.fieldName(key)))
		return def
	}
	return s
}

// Bool returns an optional boolean field, or def when absent. The strings
// "true" and "false" are accepted as well.
func (o *Operation) Bool(key string, def bool) bool {
	v, ok := o.lookup(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch b {
		case "true":
			return true
		case "false":
			return false
		}
	}
	o.AddError(fmt.Sprintf("'%s' must be a boolean", o.fieldName(key)))
	return def
}

// Strings returns a field holding a string or a list of strings. An empty key
// reads the body itself.
func (o *Operation) Strings(key string) []string {
	v, ok := o.lookup(key)
	if !ok {
		o.AddError(fmt.Sprintf("'%s' is a required field", o.fieldName(key)))
		return nil
	}

	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				o.AddError(fmt.Sprintf("'%s' must contain only strings", o.fieldName(key)))
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		o.AddError(fmt.Sprintf("'%s' must be a string or a list of strings", o.fieldName(key)))
		return nil
	}
}

// Keys returns the field names of an object body in sorted order.
func (o *Operation) Keys() []string {
	m, ok := o.Data.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o *Operation) lookup(key string) (any, bool) {
	if key == "" {
		return o.Data, o.Data != nil
	}
	m, ok := o.Data.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (o *Operation) fieldName(key string) string {
	if key == "" {
		return o.Name
	}
	return key
}
