package api

import (
	"sync/atomic"

	"github.com/artpar/specgate/domain/spec"
)

// Holder gives access to a handler that may still be loading.
type Holder interface {
	// Loaded reports whether the handler is fully constructed.
	Loaded() bool

	// Get returns the handler, constructing it if needed.
	Get() Handler
}

// Deferred is an operation whose handler comes from a Holder. Its spec is the
// placeholder given at construction, whatever the handler turns out to be.
//
// Until the holder reports itself loaded, every call goes through Get. After
// that the handler is cached and reused.
type Deferred struct {
	spec     spec.Spec
	holder   Holder
	delegate atomic.Pointer[handlerRef]
}

type handlerRef struct {
	h Handler
}

// NewDeferred creates a deferred operation.
func NewDeferred(placeholder spec.Spec, holder Holder) *Deferred {
	return &Deferred{spec: placeholder.Clone(), holder: holder}
}

// Spec returns a copy of the placeholder spec.
func (d *Deferred) Spec() spec.Spec {
	return d.spec.Clone()
}

// Execute runs the current handler of the holder.
func (d *Deferred) Execute(req Request, rsp *Response) error {
	return d.resolve().Execute(req, rsp)
}

// PermissionName forwards to the handler once it is loaded.
func (d *Deferred) PermissionName(req Request) string {
	ref := d.delegate.Load()
	if ref == nil {
		return ""
	}
	if pn, ok := ref.h.(PermissionNamer); ok {
		return pn.PermissionName(req)
	}
	return ""
}

// Cached reports whether the handler has been cached.
func (d *Deferred) Cached() bool {
	return d.delegate.Load() != nil
}

func (d *Deferred) resolve() Handler {
	if ref := d.delegate.Load(); ref != nil {
		return ref.h
	}
	if !d.holder.Loaded() {
		return d.holder.Get()
	}

	// Concurrent first calls may both store; they store the same handler.
	ref := &handlerRef{h: d.holder.Get()}
	d.delegate.Store(ref)
	return ref.h
}
