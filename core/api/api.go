// Package api defines operations: callable units bound to a spec.
//
// An operation is either a Base (a handler with a fixed spec), a Deferred
// operation whose handler is resolved on first use, or the Introspect
// operation that the registry generates for every registered operation.
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/artpar/specgate/domain/spec"
)

// Handler executes a request.
type Handler interface {
	Execute(req Request, rsp *Response) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req Request, rsp *Response) error

// Execute calls f.
func (f HandlerFunc) Execute(req Request, rsp *Response) error {
	return f(req, rsp)
}

// Operation is a handler described by a spec.
type Operation interface {
	Handler

	// Spec returns a copy of the operation's spec. Callers may modify it.
	Spec() spec.Spec
}

// PermissionNamer is implemented by operations and handlers that name the
// permission a request needs.
type PermissionNamer interface {
	PermissionName(req Request) string
}

// PermissionNameOf returns the permission name op declares for req.
// ok is false when op does not declare one.
func PermissionNameOf(op Operation, req Request) (name string, ok bool) {
	pn, isNamer := op.(PermissionNamer)
	if !isNamer {
		return "", false
	}
	name = pn.PermissionName(req)
	return name, name != ""
}

// Base binds a handler to a fixed spec.
type Base struct {
	spec    spec.Spec
	handler Handler
}

// New creates an operation for h. When h is a PermissionNamer the returned
// operation is one too.
func New(s spec.Spec, h Handler) Operation {
	b := &Base{spec: s.Clone(), handler: h}
	if pn, ok := h.(PermissionNamer); ok {
		return &namedBase{Base: b, namer: pn}
	}
	return b
}

// Spec returns a copy of the spec.
func (b *Base) Spec() spec.Spec {
	return b.spec.Clone()
}

// Execute runs the handler.
func (b *Base) Execute(req Request, rsp *Response) error {
	return b.handler.Execute(req, rsp)
}

// Handler returns the wrapped handler.
func (b *Base) Handler() Handler {
	return b.handler
}

type namedBase struct {
	*Base
	namer PermissionNamer
}

func (n *namedBase) PermissionName(req Request) string {
	return n.namer.PermissionName(req)
}

// StatusError is an error that maps to an HTTP status.
type StatusError struct {
	Status  int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status of the error.
func (e *StatusError) HTTPStatus() int {
	return e.Status
}

// Errorf creates a StatusError with a formatted message.
func Errorf(status int, format string, args ...any) error {
	return &StatusError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// BadRequest wraps err as a 400 error.
func BadRequest(msg string, err error) error {
	return &StatusError{Status: http.StatusBadRequest, Message: msg, Err: err}
}

// StatusOf returns the status carried by err, or 500. Any error in the chain
// with an HTTPStatus() int method carries a status.
func StatusOf(err error) int {
	var sc interface{ HTTPStatus() int }
	if errors.As(err, &sc) && sc.HTTPStatus() != 0 {
		return sc.HTTPStatus()
	}
	return http.StatusInternalServerError
}
