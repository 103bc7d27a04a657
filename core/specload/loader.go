// Package specload fetches spec resources from a chain of sources and
// resolves the command schemas they refer to by name.
//
// Nothing is cached: every Load reads the resources again and composes a
// fresh spec, so callers never share mutable state through the loader.
package specload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/artpar/specgate/domain/spec"
	"github.com/artpar/specgate/ports"
)

// ErrResourceNotFound is returned when no source holds a resource.
var ErrResourceNotFound = errors.New("resource not found")

// ResourceName returns the resource name of a spec or schema, for example
// "core.config" becomes "apispec/core.config.json".
func ResourceName(name string) string {
	return spec.Namespace + name + ".json"
}

// Loader reads specs from its sources in order; the first source holding a
// resource wins.
type Loader struct {
	sources []ports.SpecSource
	depth   int
	logger  zerolog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithCopyDepth sets how deep free-form values of loaded specs are copied.
func WithCopyDepth(depth int) Option {
	return func(l *Loader) {
		l.depth = depth
	}
}

// New creates a loader over sources.
func New(logger zerolog.Logger, sources []ports.SpecSource, opts ...Option) *Loader {
	l := &Loader{
		sources: sources,
		depth:   spec.DefaultCopyDepth,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) read(ctx context.Context, resource string) ([]byte, error) {
	for _, src := range l.sources {
		data, err := src.ReadSpec(ctx, resource)
		if errors.Is(err, ports.ErrSpecNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", resource, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, resource)
}

// Resource reads and parses a spec resource by its full name.
func (l *Loader) Resource(ctx context.Context, resource string) (spec.Spec, error) {
	data, err := l.read(ctx, resource)
	if err != nil {
		return spec.Spec{}, err
	}
	s, err := spec.Parse(data)
	if err != nil {
		return spec.Spec{}, fmt.Errorf("%s: %w", resource, err)
	}
	return s.CloneDepth(l.depth), nil
}

// Schema reads a command schema resource by its full name.
func (l *Loader) Schema(ctx context.Context, resource string) (map[string]any, error) {
	data, err := l.read(ctx, resource)
	if err != nil {
		return nil, err
	}

	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("%s: parse schema: %w", resource, err)
	}
	if schema == nil {
		return nil, fmt.Errorf("%s: %w", resource, spec.ErrEmptyDocument)
	}
	cp, _ := spec.CloneValue(schema, l.depth).(map[string]any)
	return cp, nil
}

// Load reads the spec called name and inlines its referenced command schemas.
func (l *Loader) Load(ctx context.Context, name string) (spec.Spec, error) {
	s, err := l.Resource(ctx, ResourceName(name))
	if err != nil {
		return spec.Spec{}, err
	}
	s, err = l.ResolveCommandReferences(ctx, s)
	if err != nil {
		return spec.Spec{}, fmt.Errorf("spec %s: %w", name, err)
	}

	l.logger.Debug().Str("spec", name).Int("commands", len(s.Commands)).Msg("spec loaded")
	return s, nil
}

// ResolveCommandReferences returns a copy of s in which every command that
// refers to a resource by name is replaced by that resource's schema.
func (l *Loader) ResolveCommandReferences(ctx context.Context, s spec.Spec) (spec.Spec, error) {
	out := s.CloneDepth(l.depth)
	for _, name := range out.CommandNames() {
		c := out.Commands[name]
		if !c.IsRef() {
			continue
		}
		schema, err := l.Schema(ctx, ResourceName(c.Ref))
		if err != nil {
			return spec.Spec{}, fmt.Errorf("command %q: %w", name, err)
		}
		out.Commands[name] = spec.InlineSchema(schema)
	}
	return out, nil
}

// Construct builds the spec a handler declares: an inline spec with its
// references resolved, a named spec, or the empty spec when src is zero.
func (l *Loader) Construct(ctx context.Context, src spec.Source) (spec.Spec, error) {
	if src.Inline != nil {
		return l.ResolveCommandReferences(ctx, *src.Inline)
	}
	name := src.Name
	if name == "" {
		name = spec.EmptySpecName
	}
	return l.Load(ctx, name)
}
