package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/artpar/specgate/core/registry"
	"github.com/artpar/specgate/domain/spec"
	"github.com/artpar/specgate/ports"
)

// ErrNoSpecStore is returned when an operation needs the spec database and
// none is configured.
var ErrNoSpecStore = errors.New("no spec database configured (specs.database)")

// SpecCheck is the outcome of checking one spec.
type SpecCheck struct {
	Name string
	Err  error
}

// CheckSpecs loads each named spec and checks it the way registration
// would. With no names, the specs of the configured handlers are checked.
func (a *App) CheckSpecs(ctx context.Context, names []string) []SpecCheck {
	if len(names) > 0 {
		checks := make([]SpecCheck, 0, len(names))
		for _, name := range names {
			checks = append(checks, SpecCheck{Name: name, Err: a.checkSource(ctx, name, spec.Source{Name: name})})
		}
		return checks
	}

	handlers := a.Config().Handlers
	checks := make([]SpecCheck, 0, len(handlers))
	for _, h := range handlers {
		src, err := h.Source()
		if err == nil {
			err = a.checkSource(ctx, h.Name, src)
		}
		checks = append(checks, SpecCheck{Name: h.Name, Err: err})
	}
	return checks
}

// SpecNames lists the specs every source holds, sorted and without
// duplicates. Command schema resources are listed too.
func (a *App) SpecNames(ctx context.Context) ([]string, error) {
	var names []string
	for _, src := range a.fileSources {
		n, err := src.Names()
		if err != nil {
			return nil, err
		}
		names = append(names, n...)
	}
	if a.SpecStore != nil {
		n, err := a.SpecStore.Names(ctx)
		if err != nil {
			return nil, err
		}
		names = append(names, n...)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

func (a *App) checkSource(ctx context.Context, handlerName string, src spec.Source) error {
	s, err := a.Loader.Construct(ctx, src)
	if err != nil {
		return err
	}
	return registry.Check(s, map[string]string{spec.HandlerNameKey: handlerName})
}

// ImportSpec checks a spec document and stores it as the newest revision of
// name in the spec database.
func (a *App) ImportSpec(ctx context.Context, name string, document []byte) (ports.SpecRevision, error) {
	if a.SpecStore == nil {
		return ports.SpecRevision{}, ErrNoSpecStore
	}

	s, err := spec.Parse(document)
	if err != nil {
		return ports.SpecRevision{}, fmt.Errorf("spec %s: %w", name, err)
	}
	resolved, err := a.Loader.ResolveCommandReferences(ctx, s)
	if err != nil {
		return ports.SpecRevision{}, fmt.Errorf("spec %s: %w", name, err)
	}
	if err := registry.Check(resolved, map[string]string{spec.HandlerNameKey: name}); err != nil {
		return ports.SpecRevision{}, fmt.Errorf("spec %s: %w", name, err)
	}

	rev, err := a.SpecStore.Put(ctx, name, document)
	if err != nil {
		return ports.SpecRevision{}, err
	}
	a.Logger.Info().Str("spec", rev.Name).Str("revision", rev.ID).Msg("spec imported")
	return rev, nil
}

// SpecRevisions returns the stored revisions of name, newest first.
func (a *App) SpecRevisions(ctx context.Context, name string) ([]ports.SpecRevision, error) {
	if a.SpecStore == nil {
		return nil, ErrNoSpecStore
	}
	return a.SpecStore.Revisions(ctx, name)
}

// DeleteSpec removes every stored revision of name. Specs of the other
// sources are untouched, so an embedded spec of the same name is served
// again afterwards.
func (a *App) DeleteSpec(ctx context.Context, name string) error {
	if a.SpecStore == nil {
		return ErrNoSpecStore
	}
	if err := a.SpecStore.Delete(ctx, name); err != nil {
		return err
	}
	a.Logger.Info().Str("spec", name).Msg("spec deleted")
	return nil
}
