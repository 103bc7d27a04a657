package api

import "github.com/artpar/specgate/domain/spec"

// CommandParam selects a single command in an introspection request.
const CommandParam = "command"

// SpecKey is the response list introspection results are appended to.
const SpecKey = "spec"

// Introspect answers with the spec of another operation.
type Introspect struct {
	base Operation
}

// NewIntrospect creates the introspection operation for base.
func NewIntrospect(base Operation) *Introspect {
	return &Introspect{base: base}
}

// Spec returns the spec of the introspected operation.
func (i *Introspect) Spec() spec.Spec {
	return i.base.Spec()
}

// Execute appends the spec to the response. With a command parameter the
// spec's commands are narrowed to that one entry.
func (i *Introspect) Execute(req Request, rsp *Response) error {
	s := i.base.Spec()
	if name := req.Param(CommandParam); name != "" {
		s = s.WithCommand(name)
	}
	rsp.Append(SpecKey, s)
	return nil
}
