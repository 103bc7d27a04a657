// Package validation compiles the command schemas of a spec and validates
// command payloads against them.
package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/artpar/specgate/domain/spec"
)

// Validator checks command bodies against one compiled schema.
type Validator struct {
	name   string
	schema *openapi3.Schema
}

// Name returns the command the validator belongs to.
func (v *Validator) Name() string {
	return v.name
}

// Validate returns every violation found in data. A valid body yields nil.
func (v *Validator) Validate(data any) []string {
	err := v.schema.VisitJSON(data, openapi3.MultiErrors())
	if err == nil {
		return nil
	}
	var msgs []string
	flatten(err, &msgs)
	return msgs
}

func flatten(err error, out *[]string) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			flatten(inner, out)
		}
	case *openapi3.SchemaError:
		msg := e.Reason
		if ptr := e.JSONPointer(); len(ptr) > 0 {
			msg = "/" + strings.Join(ptr, "/") + ": " + msg
		}
		*out = append(*out, msg)
	default:
		*out = append(*out, err.Error())
	}
}

// Set maps command names to their validators.
type Set map[string]*Validator

// Names returns the command names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CompileError lists every command schema that failed to compile.
type CompileError struct {
	Problems []string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid command schemas:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Compile builds a validator for every command. References must have been
// resolved beforehand. No commands yields a nil set.
func Compile(commands map[string]spec.CommandSchema) (Set, error) {
	if len(commands) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make(Set, len(commands))
	var problems []string
	for _, name := range names {
		v, err := compileOne(name, commands[name])
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		set[name] = v
	}

	if len(problems) > 0 {
		return nil, &CompileError{Problems: problems}
	}
	return set, nil
}

// CompileSpec compiles the commands of s.
func CompileSpec(s spec.Spec) (Set, error) {
	return Compile(s.Commands)
}

// annotationKeywords are accepted next to the OpenAPI schema keywords and
// carry no validation meaning.
var annotationKeywords = []string{
	"$schema",
	"$id",
	"$comment",
	"documentation",
	"examples",
}

func compileOne(name string, c spec.CommandSchema) (*Validator, error) {
	switch {
	case c.IsZero():
		return nil, fmt.Errorf("command %q has no schema", name)
	case c.IsRef():
		return nil, fmt.Errorf("command %q refers to unresolved resource %q", name, c.Ref)
	}

	raw, err := json.Marshal(c.Inline)
	if err != nil {
		return nil, fmt.Errorf("command %q: encode schema: %w", name, err)
	}

	schema := openapi3.NewSchema()
	if err := json.Unmarshal(raw, schema); err != nil {
		return nil, fmt.Errorf("command %q: decode schema: %w", name, err)
	}
	if err := schema.Validate(context.Background(), openapi3.AllowExtraSiblingFields(annotationKeywords...)); err != nil {
		return nil, fmt.Errorf("command %q: %w", name, err)
	}

	return &Validator{name: name, schema: schema}, nil
}
