// Package pathtrie provides a segment trie that maps path templates to values.
//
// A template is a "/"-separated list of segments. Each segment is one of:
//
//	literal      matches exactly:                  /c/config
//	{name}       captures one segment as "name":   /c/{collection}
//	$name        replaced at insert time by the
//	             substitution value for "name":    /$handlerName
//
// Lookups walk the concrete path one segment at a time, preferring a literal
// child over the wildcard child. Reserved literal names never bind to a
// wildcard, so /c/{collection}/_introspect can never capture "_introspect".
package pathtrie

import (
	"fmt"
	"sort"
	"strings"
)

// Template is a compiled path template ready for insertion.
type Template struct {
	// Source is the normalized template text after substitution.
	Source   string
	segments []segment
}

type segment struct {
	literal  string
	wildcard bool
	name     string // capture name when wildcard
}

// Segments returns the number of segments in the template.
func (t Template) Segments() int {
	return len(t.segments)
}

// Captures returns the capture names of the template, in path order.
func (t Template) Captures() []string {
	var names []string
	for _, s := range t.segments {
		if s.wildcard {
			names = append(names, s.name)
		}
	}
	return names
}

// Compile parses a template, expanding $name markers and remapping {name}
// captures through subst. A $name marker without a substitution is an error.
func Compile(template string, subst map[string]string) (Template, error) {
	parts := Split(template)
	segs := make([]segment, 0, len(parts))

	for _, p := range parts {
		if strings.HasPrefix(p, "$") {
			key := p[1:]
			val, ok := subst[key]
			if !ok || strings.Trim(val, "/") == "" {
				return Template{}, fmt.Errorf("template %q: no substitution provided for %q", template, p)
			}
			// A substitution may itself span several segments.
			for _, sp := range Split(val) {
				segs = append(segs, segment{literal: sp})
			}
			continue
		}

		if name, ok := WildcardName(p); ok {
			if mapped, ok := subst[name]; ok && mapped != "" {
				name = mapped
			}
			segs = append(segs, segment{wildcard: true, name: name})
			continue
		}

		segs = append(segs, segment{literal: p})
	}

	return Template{Source: render(segs), segments: segs}, nil
}

func render(segs []segment) string {
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		if s.wildcard {
			b.WriteString("{" + s.name + "}")
		} else {
			b.WriteString(s.literal)
		}
	}
	return b.String()
}

// WildcardName returns the capture name of a {name} segment.
func WildcardName(seg string) (string, bool) {
	if len(seg) > 2 && seg[0] == '{' && seg[len(seg)-1] == '}' {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}

// WildcardNames returns the sorted, de-duplicated capture names used across
// the given templates.
func WildcardNames(templates []string) []string {
	seen := make(map[string]struct{})
	for _, t := range templates {
		for _, p := range Split(t) {
			if name, ok := WildcardName(p); ok {
				seen[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Split breaks a path into its non-empty segments.
func Split(path string) []string {
	raw := strings.Split(path, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Normalize collapses duplicate slashes and drops the trailing slash.
// The empty path normalizes to "/". Normalize(Normalize(p)) == Normalize(p).
func Normalize(path string) string {
	parts := Split(path)
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}
