package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/specgate/adapters/metrics"
	"github.com/artpar/specgate/core/api"
	"github.com/artpar/specgate/core/registry"
	"github.com/artpar/specgate/core/validation"
	"github.com/artpar/specgate/domain/command"
	"github.com/artpar/specgate/pkg/jsonapi"
)

// PermissionHeader carries the permission name an operation declares.
const PermissionHeader = "X-Permission-Name"

// DefaultMaxBodyBytes limits command payloads.
const DefaultMaxBodyBytes = 1 << 20

// Routes resolves (path, method) pairs to operations.
type Routes interface {
	Lookup(path, method string) (registry.Match, bool)
	Methods() []string
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// BasePath is stripped from request paths before lookup. Empty or "/"
	// dispatches every path.
	BasePath string
	// ValidateCommands runs payloads through the operation's command
	// schemas. When false, payloads are only parsed.
	ValidateCommands bool
	MaxBodyBytes     int64
	Metrics          *metrics.Collector
}

// Dispatcher routes HTTP requests to registered operations.
type Dispatcher struct {
	routes   Routes
	basePath string
	validate atomic.Bool
	maxBody  int64
	logger   zerolog.Logger
	metrics  *metrics.Collector
}

// NewDispatcher creates a dispatcher over routes.
func NewDispatcher(routes Routes, logger zerolog.Logger, cfg DispatcherConfig) *Dispatcher {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	d := &Dispatcher{
		routes:   routes,
		basePath: normalizeBasePath(cfg.BasePath),
		maxBody:  maxBody,
		logger:   logger,
		metrics:  cfg.Metrics,
	}
	d.validate.Store(cfg.ValidateCommands)
	return d
}

// SetValidateCommands turns payload validation on or off.
func (d *Dispatcher) SetValidateCommands(on bool) {
	d.validate.Store(on)
}

func normalizeBasePath(p string) string {
	p = strings.TrimSuffix(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// BasePath returns the normalized base path.
func (d *Dispatcher) BasePath() string {
	return d.basePath
}

// operationPath strips the base path. ok is false when path lies outside it.
func (d *Dispatcher) operationPath(path string) (string, bool) {
	if d.basePath == "" {
		return path, true
	}
	if path == d.basePath {
		return "/", true
	}
	rest, found := strings.CutPrefix(path, d.basePath+"/")
	if !found {
		return "", false
	}
	return "/" + rest, true
}

// allowedMethods lists the methods that do bind path.
func (d *Dispatcher) allowedMethods(path string) []string {
	var allowed []string
	for _, m := range d.routes.Methods() {
		if _, ok := d.routes.Lookup(path, m); ok {
			allowed = append(allowed, m)
		}
	}
	return allowed
}

// ServeHTTP resolves the operation, validates the command payload when the
// operation declares commands, executes it and writes its response values.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path, ok := d.operationPath(r.URL.Path)
	if !ok {
		jsonapi.WriteError(w, jsonapi.ErrRouteNotFound(r.Method, r.URL.Path))
		return
	}

	match, ok := d.routes.Lookup(path, r.Method)
	if !ok {
		if allowed := d.allowedMethods(path); len(allowed) > 0 {
			jsonapi.WriteMethodNotAllowed(w, r.Method, allowed)
			return
		}
		jsonapi.WriteError(w, jsonapi.ErrRouteNotFound(r.Method, path))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, d.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonapi.WriteError(w, jsonapi.ErrFromStatus(http.StatusRequestEntityTooLarge, err.Error()))
			return
		}
		jsonapi.WriteError(w, jsonapi.ErrBadRequest("read request body: "+err.Error()))
		return
	}

	call := api.NewRequest(r.Context(), r.Method, path, r.URL.Query(), match.Parts, nil)
	if len(body) > 0 {
		call = call.WithBody(body)
	}

	if match.Validators != nil && len(bytes.TrimSpace(body)) > 0 {
		ops, err := validation.CommandOperations(bytes.NewReader(body), match.Validators, d.validate.Load())
		if err != nil {
			d.writeError(w, r, match, err)
			return
		}
		call = call.WithCommands(ops)
	}

	if name, ok := api.PermissionNameOf(match.Operation, call); ok {
		w.Header().Set(PermissionHeader, name)
		d.logger.Debug().
			Str("template", match.Template).
			Str("permission", name).
			Msg("operation permission")
	}

	rsp := api.NewResponse()
	if err := match.Operation.Execute(call, rsp); err != nil {
		d.writeError(w, r, match, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(rsp)
}

func (d *Dispatcher) writeError(w http.ResponseWriter, r *http.Request, match registry.Match, err error) {
	reqID := middleware.GetReqID(r.Context())

	var payloadErr *validation.PayloadError
	switch {
	case errors.As(err, &payloadErr):
		for _, entry := range payloadErr.Errors {
			d.metrics.ObserveCommandFailure(entry.Name)
		}
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusBadRequest, "invalid_command_payload", "Invalid Command Payload").
			ID(reqID).
			Detail(payloadErr.Error()).
			Meta("errors", payloadErr.Errors).
			Build())

	case errors.Is(err, command.ErrMalformedPayload):
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusBadRequest, "malformed_payload", "Malformed Payload").
			ID(reqID).
			Detail(err.Error()).
			Build())

	default:
		status := api.StatusOf(err)
		if status >= http.StatusInternalServerError {
			d.logger.Error().
				Err(err).
				Str("method", match.Method).
				Str("template", match.Template).
				Str("request_id", reqID).
				Msg("operation failed")
		}
		apiErr := jsonapi.ErrFromStatus(status, err.Error())
		apiErr.ID = reqID
		jsonapi.WriteError(w, apiErr)
	}
}
