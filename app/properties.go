// Package app contains the built-in operations specgate serves.
package app

import (
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/specgate/core/api"
	"github.com/artpar/specgate/core/validation"
	"github.com/artpar/specgate/domain/command"
)

// Property command names.
const (
	CmdSetProperty   = "set-property"
	CmdUnsetProperty = "unset-property"
)

// Properties keeps a set of named string properties in memory.
//
// GET lists the properties, optionally filtered by the prefix parameter, or
// returns the one named by the {name} path part. POST applies set-property
// and unset-property commands in payload order.
type Properties struct {
	mu     sync.RWMutex
	props  map[string]string
	logger zerolog.Logger
}

// NewProperties creates a property store holding initial.
func NewProperties(initial map[string]string, logger zerolog.Logger) *Properties {
	props := make(map[string]string, len(initial))
	maps.Copy(props, initial)
	return &Properties{props: props, logger: logger}
}

// Get returns a property.
func (p *Properties) Get(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.props[name]
	return v, ok
}

// Snapshot returns a copy of the properties whose name has prefix.
func (p *Properties) Snapshot(prefix string) map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]string)
	for k, v := range p.props {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out
}

// PermissionName names the permission a request needs.
func (p *Properties) PermissionName(req api.Request) string {
	if req.Method() == http.MethodGet {
		return "properties:read"
	}
	return "properties:write"
}

// Execute serves a request.
func (p *Properties) Execute(req api.Request, rsp *api.Response) error {
	if req.Method() == http.MethodGet {
		return p.read(req, rsp)
	}
	return p.apply(req, rsp)
}

func (p *Properties) read(req api.Request, rsp *api.Response) error {
	if name := req.PathPart("name"); name != "" {
		v, ok := p.Get(name)
		if !ok {
			return api.Errorf(http.StatusNotFound, "property '%s' is not set", name)
		}
		rsp.Add("name", name)
		rsp.Add("value", v)
		return nil
	}
	rsp.Add("properties", p.Snapshot(req.Param("prefix")))
	return nil
}

func (p *Properties) apply(req api.Request, rsp *api.Response) error {
	ops := req.Commands()
	if len(ops) == 0 {
		return api.Errorf(http.StatusBadRequest, "no commands to apply, expected one of '%s' or '%s'", CmdSetProperty, CmdUnsetProperty)
	}

	// Values are extracted for every command before anything changes, so a
	// payload either applies whole or not at all.
	type change struct {
		set   map[string]string
		unset []string
	}
	changes := make([]change, 0, len(ops))
	for _, op := range ops {
		switch op.Name {
		case CmdSetProperty:
			set := make(map[string]string)
			for _, k := range op.Keys() {
				set[k] = op.Str(k)
			}
			changes = append(changes, change{set: set})
		case CmdUnsetProperty:
			changes = append(changes, change{unset: op.Strings("")})
		default:
			op.AddError("unsupported command '" + op.Name + "'")
		}
	}
	if errs := command.CaptureErrors(ops); len(errs) > 0 {
		return &validation.PayloadError{Errors: errs}
	}

	p.mu.Lock()
	for _, c := range changes {
		for _, k := range slices.Sorted(maps.Keys(c.set)) {
			p.props[k] = c.set[k]
			rsp.Append("set", k)
		}
		for _, k := range c.unset {
			delete(p.props, k)
			rsp.Append("unset", k)
		}
	}
	p.mu.Unlock()

	p.logger.Debug().Int("commands", len(ops)).Msg("properties updated")
	rsp.Add("properties", p.Snapshot(""))
	return nil
}
