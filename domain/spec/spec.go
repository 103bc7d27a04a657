// Package spec defines the declarative description of an operation: the HTTP
// methods it answers, its URL templates, query parameters, path parts and the
// JSON schemas of the commands it accepts.
package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known names.
const (
	// Namespace is the logical prefix every spec resource lives under.
	Namespace = "apispec/"

	// IntrospectSegment is the reserved path segment of introspection routes.
	IntrospectSegment = "_introspect"

	// EmptySpecName is the resource used when a handler declares no spec.
	EmptySpecName = "emptySpec"

	// HandlerNameKey is the substitution key filled with a handler's name.
	HandlerNameKey = "handlerName"
)

// SupportedMethods lists the HTTP methods a spec may declare, in lookup order.
var SupportedMethods = []string{"GET", "POST", "PUT", "DELETE"}

// KnownParamTypes lists the accepted query parameter types.
var KnownParamTypes = []string{"string", "boolean", "list", "int", "double", "object"}

// PartTypes lists the accepted path part types.
var PartTypes = []string{"enum", "string", "int", "number", "boolean"}

// Spec describes a single operation.
type Spec struct {
	Documentation string                   `json:"documentation,omitempty"`
	Description   string                   `json:"description,omitempty"`
	Methods       []string                 `json:"methods"`
	URL           URL                      `json:"url"`
	Commands      map[string]CommandSchema `json:"commands,omitempty"`
}

// URL holds the path templates and their parameters.
type URL struct {
	Paths  []string         `json:"paths"`
	Params map[string]Param `json:"params,omitempty"`
	Parts  map[string]Part  `json:"parts,omitempty"`
}

// Param is a query parameter declaration.
// Description is a pointer so an absent description can be told apart from
// an empty one.
type Param struct {
	Type        string  `json:"type"`
	Description *string `json:"description"`
	Default     any     `json:"default,omitempty"`
	Example     any     `json:"example,omitempty"`
}

// Part is a path wildcard declaration.
type Part struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// CommandSchema is either an inline JSON schema or a reference to another
// spec resource by name. The zero value is neither and encodes as null.
type CommandSchema struct {
	Inline map[string]any
	Ref    string
}

// InlineSchema wraps a JSON schema document.
func InlineSchema(schema map[string]any) CommandSchema {
	return CommandSchema{Inline: schema}
}

// RefSchema refers to the resource apispec/<name>.json.
func RefSchema(name string) CommandSchema {
	return CommandSchema{Ref: name}
}

// IsRef reports whether the schema is a reference.
func (c CommandSchema) IsRef() bool {
	return c.Ref != "" && c.Inline == nil
}

// IsZero reports whether the schema carries nothing.
func (c CommandSchema) IsZero() bool {
	return c.Ref == "" && c.Inline == nil
}

// MarshalJSON implements json.Marshaler.
func (c CommandSchema) MarshalJSON() ([]byte, error) {
	switch {
	case c.Inline != nil:
		return json.Marshal(c.Inline)
	case c.Ref != "":
		return json.Marshal(c.Ref)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *CommandSchema) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = CommandSchema{}

	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		return json.Unmarshal(data, &c.Ref)
	case len(data) > 0 && data[0] == '{':
		return json.Unmarshal(data, &c.Inline)
	default:
		return fmt.Errorf("command schema must be an object or a resource name, got %s", data)
	}
}

// ErrEmptyDocument is returned by Parse for blank or null input.
var ErrEmptyDocument = errors.New("empty spec document")

// Parse decodes a spec document.
func Parse(data []byte) (Spec, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Spec{}, ErrEmptyDocument
	}

	var s Spec
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return Spec{}, fmt.Errorf("parse spec: %w", err)
	}
	return s, nil
}

// Marshal encodes a spec with indentation.
func Marshal(s Spec) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// CommandNames returns the command names of the spec in sorted order.
func (s Spec) CommandNames() []string {
	return sortedKeys(s.Commands)
}

// WithCommand returns a copy of s whose commands are narrowed to name alone.
// A missing command yields an entry with a zero schema. A spec that declares
// no commands at all is returned unchanged.
func (s Spec) WithCommand(name string) Spec {
	out := s.Clone()
	if s.Commands == nil {
		return out
	}
	narrowed := map[string]CommandSchema{name: {}}
	if c, ok := out.Commands[name]; ok {
		narrowed[name] = c
	}
	out.Commands = narrowed
	return out
}

// Equal reports whether a and b encode to the same JSON document.
func Equal(a, b Spec) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// Source names where a handler's spec comes from: an inline document or a
// named resource. The zero Source stands for the empty spec.
type Source struct {
	Inline *Spec
	Name   string
}

// IsZero reports whether the source names nothing.
func (s Source) IsZero() bool {
	return s.Inline == nil && s.Name == ""
}
