package spec

import "sort"

// DefaultCopyDepth bounds how deep free-form JSON values are copied.
const DefaultCopyDepth = 5

// Clone returns a copy of s that shares no mutable storage with it, up to
// DefaultCopyDepth levels of nesting inside free-form values.
func (s Spec) Clone() Spec {
	return s.CloneDepth(DefaultCopyDepth)
}

// CloneDepth copies s. Free-form values (inline schemas, defaults, examples)
// are copied depth levels deep; anything nested further is shared.
func (s Spec) CloneDepth(depth int) Spec {
	out := Spec{
		Documentation: s.Documentation,
		Description:   s.Description,
		Methods:       cloneStrings(s.Methods),
		URL: URL{
			Paths: cloneStrings(s.URL.Paths),
		},
	}

	if s.URL.Params != nil {
		out.URL.Params = make(map[string]Param, len(s.URL.Params))
		for name, p := range s.URL.Params {
			cp := Param{
				Type:    p.Type,
				Default: CloneValue(p.Default, depth),
				Example: CloneValue(p.Example, depth),
			}
			if p.Description != nil {
				d := *p.Description
				cp.Description = &d
			}
			out.URL.Params[name] = cp
		}
	}

	if s.URL.Parts != nil {
		out.URL.Parts = make(map[string]Part, len(s.URL.Parts))
		for name, p := range s.URL.Parts {
			out.URL.Parts[name] = Part{Type: p.Type, Description: p.Description, Enum: cloneStrings(p.Enum)}
		}
	}

	if s.Commands != nil {
		out.Commands = make(map[string]CommandSchema, len(s.Commands))
		for name, c := range s.Commands {
			cp := CommandSchema{Ref: c.Ref}
			if c.Inline != nil {
				cp.Inline, _ = CloneValue(c.Inline, depth).(map[string]any)
			}
			out.Commands[name] = cp
		}
	}

	return out
}

// CloneValue copies a decoded JSON value. Maps and slices are copied depth
// levels deep; at depth zero the value itself is returned.
func CloneValue(v any, depth int) any {
	if depth <= 0 {
		return v
	}

	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return val
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item, depth-1)
		}
		return out
	case []any:
		if val == nil {
			return val
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item, depth-1)
		}
		return out
	case []string:
		return cloneStrings(val)
	default:
		return v
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
