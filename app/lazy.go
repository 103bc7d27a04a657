package app

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/artpar/specgate/core/api"
)

// HandlerFactory builds a handler.
type HandlerFactory func() (api.Handler, error)

// LazyHolder builds its handler on the first Get. A failed build is retried
// on the next Get; until then requests fail with 503.
type LazyHolder struct {
	name    string
	factory HandlerFactory
	logger  zerolog.Logger

	mu      sync.Mutex
	handler api.Handler
	loaded  atomic.Bool
}

// NewLazyHolder creates a holder for the handler named name.
func NewLazyHolder(name string, factory HandlerFactory, logger zerolog.Logger) *LazyHolder {
	return &LazyHolder{name: name, factory: factory, logger: logger}
}

// Loaded reports whether the handler has been built.
func (h *LazyHolder) Loaded() bool {
	return h.loaded.Load()
}

// Get returns the handler, building it if needed.
func (h *LazyHolder) Get() api.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.handler != nil {
		return h.handler
	}

	handler, err := h.factory()
	if err != nil {
		h.logger.Error().Err(err).Str("handler", h.name).Msg("lazy handler failed to load")
		return api.HandlerFunc(func(api.Request, *api.Response) error {
			return &api.StatusError{
				Status:  http.StatusServiceUnavailable,
				Message: "handler '" + h.name + "' is not available",
				Err:     err,
			}
		})
	}

	h.handler = handler
	h.loaded.Store(true)
	h.logger.Info().Str("handler", h.name).Msg("lazy handler loaded")
	return handler
}
