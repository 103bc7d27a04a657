package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/specgate/app"
	"github.com/artpar/specgate/config"
	"github.com/artpar/specgate/core/api"
	"github.com/artpar/specgate/core/registry"
	"github.com/artpar/specgate/core/specload"
	"github.com/artpar/specgate/domain/spec"
)

// handlerSet builds configured handlers and registers them. Property stores
// outlive re-registration so a reload keeps their contents.
type handlerSet struct {
	registry *registry.Registry
	loader   *specload.Loader
	logger   zerolog.Logger

	mu         sync.Mutex
	properties map[string]*app.Properties
}

func newHandlerSet(reg *registry.Registry, loader *specload.Loader, logger zerolog.Logger) *handlerSet {
	return &handlerSet{
		registry:   reg,
		loader:     loader,
		logger:     logger,
		properties: make(map[string]*app.Properties),
	}
}

func (s *handlerSet) build(h config.HandlerConfig) (api.Handler, error) {
	switch h.Kind {
	case config.KindProperties:
		s.mu.Lock()
		defer s.mu.Unlock()
		p, ok := s.properties[h.Name]
		if !ok {
			p = app.NewProperties(h.Properties, s.logger.With().Str("handler", h.Name).Logger())
			s.properties[h.Name] = p
		}
		return p, nil
	case config.KindEcho:
		return app.Echo{}, nil
	case config.KindRoutes:
		return app.NewRoutes(s.registry), nil
	default:
		return nil, fmt.Errorf("unknown handler kind %q", h.Kind)
	}
}

func (s *handlerSet) register(ctx context.Context, h config.HandlerConfig) error {
	src, err := h.Source()
	if err != nil {
		return err
	}

	if h.Lazy {
		holder := app.NewLazyHolder(h.Name, func() (api.Handler, error) {
			return s.build(h)
		}, s.logger)
		return s.registry.RegisterLazy(ctx, s.loader, holder, registry.LazyInfo{Name: h.Name, Spec: src})
	}

	sp, err := s.loader.Construct(ctx, src)
	if err != nil {
		return fmt.Errorf("handler %s: %w", h.Name, err)
	}
	handler, err := s.build(h)
	if err != nil {
		return fmt.Errorf("handler %s: %w", h.Name, err)
	}
	return s.registry.Register(api.New(sp, handler), map[string]string{spec.HandlerNameKey: h.Name})
}

func (s *handlerSet) registerAll(ctx context.Context, handlers []config.HandlerConfig) error {
	var errs []error
	for _, h := range handlers {
		if err := s.register(ctx, h); err != nil {
			s.logger.Error().Err(err).Str("handler", h.Name).Msg("handler not registered")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
