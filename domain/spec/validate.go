package spec

import (
	"fmt"
	"slices"
	"strings"

	"github.com/artpar/specgate/domain/pathtrie"
)

// ValidationError collects every structural problem found in a spec.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid spec:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Validate checks the structural rules of a spec: declared methods are
// supported, at least one path exists, every query parameter is typed and
// described, and the wildcard names of the paths match the declared parts
// exactly. Command schemas are checked separately when they are compiled.
func Validate(s Spec) error {
	var problems []string

	for _, m := range s.Methods {
		if !slices.Contains(SupportedMethods, m) {
			problems = append(problems, fmt.Sprintf("unsupported method %q, supported methods are %v", m, SupportedMethods))
		}
	}

	if len(s.URL.Paths) == 0 {
		problems = append(problems, "url.paths must not be empty")
	}

	for _, name := range sortedKeys(s.URL.Params) {
		p := s.URL.Params[name]
		if !slices.Contains(KnownParamTypes, p.Type) {
			problems = append(problems, fmt.Sprintf("param %q has unknown type %q, known types are %v", name, p.Type, KnownParamTypes))
		}
		if p.Description == nil {
			problems = append(problems, fmt.Sprintf("param %q has no description", name))
		}
	}

	wildcards := pathtrie.WildcardNames(s.URL.Paths)
	for _, name := range wildcards {
		part, ok := s.URL.Parts[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("path wildcard %q has no entry in url.parts", name))
			continue
		}
		if !slices.Contains(PartTypes, part.Type) {
			problems = append(problems, fmt.Sprintf("part %q has unknown type %q, known types are %v", name, part.Type, PartTypes))
		}
	}
	for _, name := range sortedKeys(s.URL.Parts) {
		if !slices.Contains(wildcards, name) {
			problems = append(problems, fmt.Sprintf("part %q does not appear as a wildcard in any path", name))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
